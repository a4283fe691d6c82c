package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"charm.land/fantasy"

	"bichat/internal/dataset"
	"bichat/internal/store"
)

// ErrNotReadOnly is returned by run_sql for statements that could modify data.
var ErrNotReadOnly = errors.New("only read-only queries are allowed")

// Catalog is what the tools need from the store.
type Catalog interface {
	ListTables(ctx context.Context, db string) ([]string, error)
	TableSchema(ctx context.Context, db, table string) ([]store.Column, error)
	Descriptions(ctx context.Context, db string) (map[string]string, error)
	Execute(ctx context.Context, db, query string) (*dataset.Dataset, error)
}

type describeTableInput struct {
	Table string `json:"table" description:"Name of the table to describe"`
}

type runSQLInput struct {
	Query string `json:"query" description:"A single read-only SQL statement (SELECT or WITH)"`
}

type listTablesInput struct{}

// toolset executes the tools against one database.
type toolset struct {
	cat     Catalog
	db      string
	maxRows int
}

type tableInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (ts toolset) listTables(ctx context.Context) (string, error) {
	tables, err := ts.cat.ListTables(ctx, ts.db)
	if err != nil {
		return "", fmt.Errorf("failed to list tables: %w", err)
	}
	descriptions, err := ts.cat.Descriptions(ctx, ts.db)
	if err != nil {
		return "", fmt.Errorf("failed to read descriptions: %w", err)
	}

	out := make([]tableInfo, len(tables))
	for i, t := range tables {
		out[i] = tableInfo{Name: t, Description: descriptions[t]}
	}
	return encode(out)
}

func (ts toolset) describeTable(ctx context.Context, table string) (string, error) {
	if table == "" {
		return "", fmt.Errorf("table parameter is required")
	}
	cols, err := ts.cat.TableSchema(ctx, ts.db, table)
	if err != nil {
		return "", fmt.Errorf("failed to describe %s: %w", table, err)
	}
	descriptions, err := ts.cat.Descriptions(ctx, ts.db)
	if err != nil {
		return "", fmt.Errorf("failed to read descriptions: %w", err)
	}
	return encode(map[string]any{
		"table":       table,
		"description": descriptions[table],
		"columns":     cols,
	})
}

func (ts toolset) runSQL(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(query), ";"))
	if err := checkReadOnly(query); err != nil {
		return "", err
	}
	ds, err := ts.cat.Execute(ctx, ts.db, query)
	if err != nil {
		return "", err
	}
	return encode(map[string]any{
		"columns":   ds.Columns(),
		"rows":      ds.Head(ts.maxRows),
		"row_count": ds.Len(),
		"truncated": ds.Len() > ts.maxRows,
	})
}

var readOnlyKeywords = []string{"select", "with", "show", "describe", "explain", "pragma", "values"}

func checkReadOnly(query string) error {
	if query == "" {
		return fmt.Errorf("query parameter is required")
	}
	if strings.Contains(query, ";") {
		return fmt.Errorf("%w: multiple statements", ErrNotReadOnly)
	}
	first := strings.ToLower(strings.Fields(query)[0])
	for _, k := range readOnlyKeywords {
		if first == k {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotReadOnly, strings.ToUpper(first))
}

func encode(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result as JSON: %v", err)
	}
	return string(b), nil
}

// respond turns a tool outcome into a response; errors are reported to the
// model rather than aborting the run.
func respond(out string, err error) (fantasy.ToolResponse, error) {
	if err != nil {
		return fantasy.NewTextErrorResponse(err.Error()), nil
	}
	return fantasy.NewTextResponse(out), nil
}

// Tools returns list_tables, describe_table and run_sql bound to database db.
func Tools(cat Catalog, db string, maxRows int) []fantasy.AgentTool {
	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}
	ts := toolset{cat: cat, db: db, maxRows: maxRows}

	return []fantasy.AgentTool{
		fantasy.NewAgentTool(
			"list_tables",
			"List the tables of the database with their descriptions",
			func(ctx context.Context, _ listTablesInput, _ fantasy.ToolCall) (fantasy.ToolResponse, error) {
				return respond(ts.listTables(ctx))
			},
		),
		fantasy.NewAgentTool(
			"describe_table",
			"Show the columns (name, type, nullability, default, primary key) and description of a table",
			func(ctx context.Context, in describeTableInput, _ fantasy.ToolCall) (fantasy.ToolResponse, error) {
				return respond(ts.describeTable(ctx, in.Table))
			},
		),
		fantasy.NewAgentTool(
			"run_sql",
			fmt.Sprintf("Run a read-only SQL query and return up to %d rows as JSON", maxRows),
			func(ctx context.Context, in runSQLInput, _ fantasy.ToolCall) (fantasy.ToolResponse, error) {
				return respond(ts.runSQL(ctx, in.Query))
			},
		),
	}
}
