package store

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"bichat/internal/dataset"
)

// internalTables hold workspace metadata and are hidden from listings.
var internalTables = []string{descriptionsTable, historyTable}

// Column describes one table column.
type Column struct {
	Name       string  `json:"column_name"`
	Type       string  `json:"type"`
	NotNull    bool    `json:"notnull"`
	Default    *string `json:"default_value"`
	PrimaryKey bool    `json:"primary_key"`
}

// ListTables returns the user tables of database db in name order.
func (w *Workspace) ListTables(ctx context.Context, db string) ([]string, error) {
	d, err := w.database(db)
	if err != nil {
		return nil, err
	}

	var query string
	switch d.Driver {
	case DriverDuckDB:
		query = `SELECT table_name FROM information_schema.tables WHERE table_schema = 'main' ORDER BY table_name`
	case DriverSQLite:
		query = `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
	case DriverPostgres:
		query = `SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' ORDER BY table_name`
	case DriverSQLServer:
		query = `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME`
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, d.Driver)
	}

	rows, err := d.conn.QueryContext(ctx, query)
	if err != nil {
		w.log(ctx).Error("Failed to list tables", "error", err, "database", d.Name)
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		if d.Name == WorkspaceName && slices.Contains(internalTables, name) {
			continue
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return tables, nil
}

// TableSchema describes the columns of table. Unknown tables yield
// ErrTableNotFound.
func (w *Workspace) TableSchema(ctx context.Context, db, table string) ([]Column, error) {
	d, err := w.database(db)
	if err != nil {
		return nil, err
	}

	var (
		query string
		args  []any
	)
	switch d.Driver {
	case DriverDuckDB, DriverSQLite:
		query = fmt.Sprintf("PRAGMA table_info(%s)", QuoteLiteral(table))
	case DriverPostgres:
		query = `SELECT column_name AS name, data_type AS type,
				CASE WHEN is_nullable = 'NO' THEN 1 ELSE 0 END AS notnull,
				column_default AS dflt_value, 0 AS pk
			FROM information_schema.columns
			WHERE table_schema = 'public' AND table_name = $1
			ORDER BY ordinal_position`
		args = append(args, table)
	case DriverSQLServer:
		query = `SELECT COLUMN_NAME AS name, DATA_TYPE AS type,
				CASE WHEN IS_NULLABLE = 'NO' THEN 1 ELSE 0 END AS notnull,
				COLUMN_DEFAULT AS dflt_value, 0 AS pk
			FROM INFORMATION_SCHEMA.COLUMNS
			WHERE TABLE_NAME = @p1
			ORDER BY ORDINAL_POSITION`
		args = append(args, table)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, d.Driver)
	}

	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		// DuckDB reports unknown tables as a catalog error.
		if strings.Contains(err.Error(), "does not exist") {
			return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
		}
		return nil, fmt.Errorf("failed to get schema for table %s: %w", table, err)
	}
	defer rows.Close()

	info, err := dataset.Scan(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to get schema for table %s: %w", table, err)
	}
	if info.IsEmpty() {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	cols := make([]Column, 0, info.Len())
	for _, r := range info.Rows() {
		c := Column{
			Name:       r["name"].String(),
			Type:       r["type"].String(),
			NotNull:    truthy(r["notnull"]),
			PrimaryKey: truthy(r["pk"]),
		}
		if v := r["dflt_value"]; !v.IsNull() {
			s := v.String()
			c.Default = &s
		}
		cols = append(cols, c)
	}
	return cols, nil
}

func truthy(v dataset.Value) bool {
	switch v.Kind {
	case dataset.KindNumber:
		return v.Num != 0
	case dataset.KindText:
		s := strings.ToLower(v.Text)
		return s == "true" || s == "1" || s == "t"
	default:
		return false
	}
}

// Execute runs query against database db and returns the rows with the
// driver's column order.
func (w *Workspace) Execute(ctx context.Context, db, query string) (*dataset.Dataset, error) {
	d, err := w.database(db)
	if err != nil {
		return nil, err
	}

	rows, err := d.conn.QueryContext(ctx, query)
	if err != nil {
		w.log(ctx).Warn("Query failed", "error", err, "database", d.Name, "query", truncate(query, 200))
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	ds, err := dataset.Scan(rows)
	if err != nil {
		return nil, err
	}
	w.log(ctx).Info("Query executed", "database", d.Name, "rows", ds.Len())
	return ds, nil
}

// QuoteIdent quotes an identifier. SQL Server accepts double quotes with
// QUOTED_IDENTIFIER on, which is the driver default.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// SampleQuery selects the first n rows of table in driver's dialect.
func SampleQuery(driver, table string, n int) string {
	if driver == DriverSQLServer {
		return fmt.Sprintf("SELECT TOP %d * FROM %s", n, QuoteIdent(table))
	}
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d", QuoteIdent(table), n)
}

// Placeholder is the n-th (1-based) bind parameter in driver's syntax.
func Placeholder(driver string, n int) string {
	if driver == DriverSQLServer {
		return "@p" + strconv.Itoa(n)
	}
	return "$" + strconv.Itoa(n)
}

// QuoteLiteral quotes a string literal.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
