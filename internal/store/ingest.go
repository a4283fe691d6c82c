package store

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"bichat/internal/dataset"
)

// PreviewRows is the number of rows echoed back after an ingest.
const PreviewRows = 50

// IngestResult summarises a replaced table.
type IngestResult struct {
	Database     string            `json:"database"`
	Table        string            `json:"table_name"`
	RowsInserted int               `json:"rows_inserted"`
	Columns      []string          `json:"columns"`
	DataTypes    map[string]string `json:"data_types"`
	Preview      *dataset.Dataset  `json:"preview"`
}

// Ingest replaces table in database db with the contents of ds. Columns
// whose non-null cells all parse as numbers become floating point columns,
// everything else text.
func (w *Workspace) Ingest(ctx context.Context, db, table string, ds *dataset.Dataset) (*IngestResult, error) {
	d, err := w.database(db)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("table name is required")
	}
	cols := ds.Columns()
	if len(cols) == 0 {
		return nil, fmt.Errorf("no columns to ingest into %s", table)
	}

	numeric := make(map[string]bool, len(cols))
	types := make(map[string]string, len(cols))
	defs := make([]string, len(cols))
	for i, c := range cols {
		numeric[c] = strictlyNumeric(ds, c)
		types[c] = columnType(d.Driver, numeric[c])
		defs[i] = QuoteIdent(c) + " " + types[c]
	}

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // Ignore error - will fail if transaction was committed
	}()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+QuoteIdent(table)); err != nil {
		return nil, fmt.Errorf("failed to drop table %s: %w", table, err)
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdent(table), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return nil, fmt.Errorf("failed to create table %s: %w", table, err)
	}

	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = QuoteIdent(c)
		marks[i] = Placeholder(d.Driver, i+1)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		QuoteIdent(table), strings.Join(quoted, ", "), strings.Join(marks, ", "))

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(cols))
	for n, r := range ds.Rows() {
		for i, c := range cols {
			args[i] = sqlValue(r[c], numeric[c])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return nil, fmt.Errorf("failed to insert row %d: %w", n+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit ingest: %w", err)
	}

	w.log(ctx).Info("Table ingested", "database", d.Name, "table", table, "rows", ds.Len(), "columns", len(cols))
	return &IngestResult{
		Database:     d.Name,
		Table:        table,
		RowsInserted: ds.Len(),
		Columns:      cols,
		DataTypes:    types,
		Preview:      ds.Head(PreviewRows),
	}, nil
}

// strictlyNumeric reports whether every non-null cell of column is a
// number or text that parses completely as one. All-null columns are text.
func strictlyNumeric(ds *dataset.Dataset, column string) bool {
	seen := false
	for _, r := range ds.Rows() {
		v := r[column]
		switch v.Kind {
		case dataset.KindNull:
			continue
		case dataset.KindNumber:
			if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
				return false
			}
		case dataset.KindText:
			s := strings.TrimSpace(v.Text)
			if s == "" {
				continue
			}
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				return false
			}
		}
		seen = true
	}
	return seen
}

func columnType(driver string, numeric bool) string {
	switch {
	case numeric && driver == DriverPostgres:
		return "DOUBLE PRECISION"
	case numeric && driver == DriverSQLite:
		return "REAL"
	case numeric && driver == DriverSQLServer:
		return "FLOAT"
	case numeric:
		return "DOUBLE"
	case driver == DriverDuckDB:
		return "VARCHAR"
	case driver == DriverSQLServer:
		return "NVARCHAR(MAX)"
	default:
		return "TEXT"
	}
}

func sqlValue(v dataset.Value, numeric bool) any {
	switch v.Kind {
	case dataset.KindNumber:
		if !numeric {
			return v.String()
		}
		return v.Num
	case dataset.KindText:
		if numeric {
			s := strings.TrimSpace(v.Text)
			if s == "" {
				return nil
			}
			f, _ := strconv.ParseFloat(s, 64)
			return f
		}
		return v.Text
	default:
		return nil
	}
}
