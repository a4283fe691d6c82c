package nlsql

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"bichat/internal/store"
)

// sqlDialect is what prompts say about a database engine.
type sqlDialect struct {
	Name     string
	RowLimit string
}

func dialectFor(driver string) sqlDialect {
	limit := fmt.Sprintf("LIMIT %d for searches", searchRows)
	switch driver {
	case store.DriverSQLite:
		return sqlDialect{Name: "SQLite", RowLimit: limit}
	case store.DriverPostgres:
		return sqlDialect{Name: "PostgreSQL", RowLimit: limit}
	case store.DriverSQLServer:
		return sqlDialect{
			Name:     "Microsoft SQL Server (T-SQL)",
			RowLimit: fmt.Sprintf("SELECT TOP %d for searches; T-SQL has no LIMIT clause", searchRows),
		}
	default:
		return sqlDialect{Name: "DuckDB (PostgreSQL-compatible syntax)", RowLimit: limit}
	}
}

// describeSchema renders the tables of db for a prompt: description, columns
// and a few sample rows each.
func describeSchema(ctx context.Context, cat Catalog, db string, tables []string) (string, error) {
	descriptions, err := cat.Descriptions(ctx, db)
	if err != nil {
		return "", err
	}
	driver, err := cat.Driver(db)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i, table := range tables {
		cols, err := cat.TableSchema(ctx, db, table)
		if err != nil {
			return "", fmt.Errorf("failed to read schema for %s: %w", table, err)
		}
		fmt.Fprintf(&sb, "%d. **%s**", i+1, table)
		if d := descriptions[table]; d != "" {
			fmt.Fprintf(&sb, " - %s", d)
		}
		sb.WriteString("\n")
		for _, c := range cols {
			fmt.Fprintf(&sb, "   - %s (%s)\n", c.Name, c.Type)
		}

		sample, err := cat.Execute(ctx, db, store.SampleQuery(driver, table, sampleRows))
		if err == nil && !sample.IsEmpty() {
			b, err := json.Marshal(sample)
			if err == nil {
				fmt.Fprintf(&sb, "   Sample rows: %s\n", b)
			}
		}
	}
	return sb.String(), nil
}
