package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bichat/internal/dataset"
	"bichat/internal/store"
	"bichat/internal/testutil"
)

func testToolset(t *testing.T, maxRows int) toolset {
	t.Helper()
	ctx := context.Background()
	w, err := store.Open(ctx, t.TempDir(), store.Options{
		WorkspaceDriver: store.DriverSQLite,
		Logger:          testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	rows := []dataset.Record{
		{"region": dataset.Text("North"), "sales": dataset.Text("1200")},
		{"region": dataset.Text("South"), "sales": dataset.Text("800")},
		{"region": dataset.Text("East"), "sales": dataset.Text("300")},
	}
	_, err = w.Ingest(ctx, "", "sales", dataset.New([]string{"region", "sales"}, rows))
	require.NoError(t, err)
	_, err = w.SetDescription(ctx, "", "sales", "Sales by region")
	require.NoError(t, err)

	return toolset{cat: w, maxRows: maxRows}
}

func TestListTablesTool(t *testing.T) {
	ts := testToolset(t, 10)

	out, err := ts.listTables(context.Background())
	require.NoError(t, err)

	var got []tableInfo
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []tableInfo{{Name: "sales", Description: "Sales by region"}}, got)
}

func TestDescribeTableTool(t *testing.T) {
	ts := testToolset(t, 10)

	out, err := ts.describeTable(context.Background(), "sales")
	require.NoError(t, err)
	assert.Contains(t, out, `"column_name": "region"`)
	assert.Contains(t, out, `"description": "Sales by region"`)

	_, err = ts.describeTable(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrTableNotFound)

	_, err = ts.describeTable(context.Background(), "")
	assert.Error(t, err)
}

func TestRunSQLTool(t *testing.T) {
	ts := testToolset(t, 2)

	out, err := ts.runSQL(context.Background(), "SELECT region, sales FROM sales ORDER BY sales DESC;")
	require.NoError(t, err)

	var got struct {
		Columns   []string          `json:"columns"`
		Rows      []json.RawMessage `json:"rows"`
		RowCount  int               `json:"row_count"`
		Truncated bool              `json:"truncated"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []string{"region", "sales"}, got.Columns)
	assert.Len(t, got.Rows, 2)
	assert.Equal(t, 3, got.RowCount)
	assert.True(t, got.Truncated)
}

func TestCheckReadOnly(t *testing.T) {
	tests := []struct {
		query string
		ok    bool
	}{
		{"SELECT 1", true},
		{"  with t as (select 1) select * from t", true},
		{"EXPLAIN SELECT 1", true},
		{"DROP TABLE sales", false},
		{"DELETE FROM sales", false},
		{"SELECT 1; DROP TABLE sales", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			err := checkReadOnly(tt.query)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestRunSQLRejectsWrites(t *testing.T) {
	ts := testToolset(t, 10)

	_, err := ts.runSQL(context.Background(), "DELETE FROM sales")
	assert.ErrorIs(t, err, ErrNotReadOnly)

	out, err := ts.runSQL(context.Background(), "SELECT COUNT(*) AS n FROM sales")
	require.NoError(t, err)
	assert.Contains(t, out, `"row_count": 1`)
}

func TestTools(t *testing.T) {
	tools := Tools(testToolset(t, 10).cat, "", 0)

	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Info().Name
	}
	assert.Equal(t, []string{"list_tables", "describe_table", "run_sql"}, names)
}

func TestNewConfig(t *testing.T) {
	cat := testToolset(t, 10).cat

	tests := []struct {
		name    string
		opts    []AgentOption
		wantErr bool
	}{
		{"valid", []AgentOption{WithAPIKey("k"), WithCatalog(cat)}, false},
		{"missing key", []AgentOption{WithCatalog(cat)}, true},
		{"missing catalog", []AgentOption{WithAPIKey("k")}, true},
		{"empty key", []AgentOption{WithAPIKey(""), WithCatalog(cat)}, true},
		{"empty model", []AgentOption{WithAPIKey("k"), WithCatalog(cat), WithModel("")}, true},
		{"bad max rows", []AgentOption{WithAPIKey("k"), WithCatalog(cat), WithMaxRows(0)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := newConfig(tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, defaultModel, cfg.model)
			assert.Equal(t, defaultMaxRows, cfg.maxRows)
		})
	}
}

func TestWithAPIKeyFromEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := newConfig([]AgentOption{WithAPIKeyFromEnv()})
	assert.Error(t, err)

	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	cfg, err := newConfig([]AgentOption{WithAPIKeyFromEnv(), WithCatalog(testToolset(t, 1).cat)})
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.apiKey)
}
