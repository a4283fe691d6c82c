package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bichat/internal/dataset"
	"bichat/internal/logging"
	"bichat/internal/nlsql"
	"bichat/internal/store"
	"bichat/internal/testutil"
)

// scriptedLLM returns its replies in order, repeating the last one.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []string
	prompts []string
}

func (s *scriptedLLM) Complete(_ context.Context, req nlsql.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, req.Prompt)
	if len(s.replies) == 0 {
		return "", errors.New("no reply")
	}
	r := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return r, nil
}

type testEnv struct {
	ws      *store.Workspace
	handler http.Handler
}

func newEnv(t *testing.T, llm nlsql.Completer) *testEnv {
	t.Helper()
	logger := testutil.NewTestLogger(t)
	ws, err := store.Open(context.Background(), t.TempDir(), store.Options{
		WorkspaceDriver: store.DriverSQLite,
		Logger:          logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })

	cfg := Config{Store: ws, Logger: logger, AllowedOrigins: []string{"http://localhost:5173"}}
	if llm != nil {
		cfg.Assistant = nlsql.NewAssistant(llm, ws, nlsql.WithLogger(logger))
	}
	return &testEnv{ws: ws, handler: New(cfg).Routes()}
}

func (e *testEnv) seedSales(t *testing.T) {
	t.Helper()
	ds := dataset.New([]string{"month", "sales"}, []dataset.Record{
		{"month": dataset.Text("Jan"), "sales": dataset.Text("1200")},
		{"month": dataset.Text("Feb"), "sales": dataset.Text("800")},
	})
	_, err := e.ws.Ingest(context.Background(), "", "sales", ds)
	require.NoError(t, err)
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == nil {
		r = httptest.NewRequest(method, path, nil)
	} else {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = httptest.NewRequest(method, path, bytes.NewReader(b))
		r.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, r)
	return rec
}

func (e *testEnv) upload(t *testing.T, path, fileName, content string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, path, &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, r)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestCatalogEndpoints(t *testing.T) {
	e := newEnv(t, nil)
	e.seedSales(t)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"databases", "/api/databases", http.StatusOK},
		{"tables", "/api/tables", http.StatusOK},
		{"tables unknown db", "/api/tables?db=nope", http.StatusNotFound},
		{"schema", "/api/schema?table=sales", http.StatusOK},
		{"schema missing table", "/api/schema?table=missing", http.StatusNotFound},
		{"schema no table", "/api/schema", http.StatusBadRequest},
		{"health", "/health", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}

	out := decode(t, e.do(t, http.MethodGet, "/api/tables", nil))
	assert.Equal(t, []any{"sales"}, out["tables"])
}

func TestQuery(t *testing.T) {
	e := newEnv(t, nil)
	e.seedSales(t)

	rec := e.do(t, http.MethodPost, "/api/query", map[string]string{"query": "SELECT month, sales FROM sales ORDER BY sales"})
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "Query executed successfully. Found 2 rows.", out["message"])
	assert.Equal(t, []any{"month", "sales"}, out["columns"])
	rows := out["data"].([]any)
	assert.Equal(t, "Feb", rows[0].(map[string]any)["month"])

	rec = e.do(t, http.MethodPost, "/api/query", map[string]string{"query": "SELECT nope FROM sales"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "Error executing query")

	rec = e.do(t, http.MethodPost, "/api/query", map[string]string{"query": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/query", map[string]string{"db": "nope", "query": "SELECT 1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConnections(t *testing.T) {
	e := newEnv(t, nil)
	dsn := filepath.Join(t.TempDir(), "extra.sqlite")

	rec := e.do(t, http.MethodPost, "/api/connections", map[string]string{"name": "extra", "driver": "sqlite", "dsn": dsn})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "connected", decode(t, rec)["status"])

	rec = e.do(t, http.MethodPost, "/api/connections", map[string]string{"name": "extra", "driver": "sqlite", "dsn": dsn})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/connections", map[string]string{"name": "ora", "driver": "oracle", "dsn": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/connections/test", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "connected", decode(t, rec)["status"])

	rec = e.do(t, http.MethodDelete, "/api/connections/extra", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, http.MethodDelete, "/api/connections/extra", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// the workspace is not a registered connection
	rec = e.do(t, http.MethodDelete, "/api/connections/"+store.WorkspaceName, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "not a registered connection")
}

const salesCSV = "Month,Total Sales,Empty\nJan,1200,\nFeb,800,\n"

func TestUploadFlow(t *testing.T) {
	e := newEnv(t, nil)

	rec := e.upload(t, "/api/upload/null-columns", "Q1 Sales.csv", salesCSV, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, []any{"Empty"}, out["null_cols"])
	assert.EqualValues(t, 2, out["rows"])

	rec = e.upload(t, "/api/upload/preprocess", "Q1 Sales.csv", salesCSV, map[string]string{"null_cols": "Empty"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []any{"Month", "Total Sales"}, decode(t, rec)["columns"])

	rec = e.upload(t, "/api/upload", "Q1 Sales.csv", salesCSV, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out = decode(t, rec)
	assert.Equal(t, "q1_sales", out["table_name"])
	assert.EqualValues(t, 2, out["rows_inserted"])
	assert.Equal(t, []any{"Month", "Total_Sales"}, out["columns"])

	tables, err := e.ws.ListTables(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"q1_sales"}, tables)

	rec = e.upload(t, "/api/upload?table=custom", "Q1 Sales.csv", salesCSV, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "custom", decode(t, rec)["table_name"])
}

func TestUploadErrors(t *testing.T) {
	e := newEnv(t, nil)

	rec := e.upload(t, "/api/upload", "notes.txt", "hello", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.upload(t, "/api/upload", "empty.csv", "a,b\n,\n", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/upload", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestJSON(t *testing.T) {
	e := newEnv(t, nil)

	body := map[string]any{
		"table_name": "regions",
		"data":       []map[string]any{{"Region Name": "North", "Sales": 10}, {"Region Name": "South", "Sales": 20}},
	}
	rec := e.do(t, http.MethodPost, "/api/ingest", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	ds, err := e.ws.Execute(context.Background(), "", `SELECT SUM("Sales") AS total FROM regions`)
	require.NoError(t, err)
	assert.Equal(t, dataset.Number(30), ds.Rows()[0]["total"])

	rec = e.do(t, http.MethodPost, "/api/ingest", map[string]any{"table_name": "x", "data": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/ingest", map[string]any{"data": []any{map[string]int{"a": 1}}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDescriptions(t *testing.T) {
	e := newEnv(t, nil)

	rec := e.do(t, http.MethodPut, "/api/descriptions", map[string]string{"table_name": "sales", "description": " Monthly sales "})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodGet, "/api/descriptions?table=sales", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Monthly sales", decode(t, rec)["description"])

	rec = e.do(t, http.MethodGet, "/api/descriptions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"sales": "Monthly sales"}, decode(t, rec)["descriptions"])

	rec = e.do(t, http.MethodPut, "/api/descriptions", map[string]string{"description": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/descriptions/generate", map[string]string{"table_name": "sales"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGenerateDescription(t *testing.T) {
	e := newEnv(t, &scriptedLLM{replies: []string{"Monthly sales totals."}})
	e.seedSales(t)

	rec := e.do(t, http.MethodPost, "/api/descriptions/generate", map[string]string{"table_name": "sales"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Monthly sales totals.", decode(t, rec)["description"])
}

func TestAgentWithoutKey(t *testing.T) {
	e := newEnv(t, nil)

	for _, path := range []string{"/api/agent", "/api/multi-agent"} {
		rec := e.do(t, http.MethodPost, path, map[string]string{"question": "q"})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestAgentAndHistory(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		`{"query_type": "analysis", "explanation": "Total", "sql_query": "SELECT SUM(sales) AS total FROM sales;"}`,
		"Total sales were **2,000**.",
	}}
	e := newEnv(t, llm)
	e.seedSales(t)

	rec := e.do(t, http.MethodPost, "/api/agent", map[string]string{"question": "total sales?"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, "SELECT SUM(sales) AS total FROM sales", out["sql_query"])
	assert.Equal(t, "Total sales were **2,000**.", out["answer"])
	assert.Equal(t, []any{"total"}, out["columns"])
	assert.NotContains(t, out, "routing_decision")

	rec = e.do(t, http.MethodPost, "/api/agent", map[string]string{"question": " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode(t, rec)["history"].([]any)
	require.Len(t, history, 1)
	turn := history[0].(map[string]any)
	assert.Equal(t, "total sales?", turn["question"])
	assert.EqualValues(t, 1, turn["row_count"])

	rec = e.do(t, http.MethodGet, "/api/history?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMultiAgent(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		`{"selected_table": "sales", "confidence": "high", "reasoning": "sales figures"}`,
		`{"query_type": "analysis", "explanation": "Best", "sql_query": "SELECT month FROM sales ORDER BY sales DESC LIMIT 1"}`,
		"January led.",
	}}
	e := newEnv(t, llm)
	e.seedSales(t)
	_, err := e.ws.Ingest(context.Background(), "", "orders", dataset.New([]string{"id"}, []dataset.Record{{"id": dataset.Text("1")}}))
	require.NoError(t, err)

	rec := e.do(t, http.MethodPost, "/api/multi-agent", map[string]string{"question": "best month?"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	routing := out["routing_decision"].(map[string]any)
	assert.Equal(t, "sales", routing["selected_table"])
	assert.Equal(t, "January led.", out["answer"])
}

func TestMultiAgentCompanyScope(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		`{"query_type": "analysis", "explanation": "Total", "sql_query": "SELECT SUM(sales) AS total FROM sales"}`,
		"Total was 2,000.",
	}}
	e := newEnv(t, llm)
	e.seedSales(t)

	rec := e.do(t, http.MethodPost, "/api/multi-agent", map[string]string{
		"question":     "total sales?",
		"company_code": "C1587",
		"company_name": "Acme",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// one table: routing needs no model call
	require.Len(t, llm.prompts, 2)
	assert.Contains(t, llm.prompts[0], "Company: Acme")
	assert.Contains(t, llm.prompts[0], "= 'C1587' in the WHERE clause")
	assert.NotContains(t, llm.prompts[1], "C1587")
}

func TestMultiAgentStatus(t *testing.T) {
	e := newEnv(t, nil)
	e.seedSales(t)

	rec := e.do(t, http.MethodGet, "/api/multi-agent/status", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, "unavailable", out["status"])
	assert.Equal(t, false, out["assistant_configured"])
	assert.Equal(t, store.WorkspaceName, out["database"])
	assert.Equal(t, []any{"sales"}, out["available_tables"])
	assert.Contains(t, out["agents"], "router-agent")

	e = newEnv(t, &scriptedLLM{replies: []string{"unused"}})
	out = decode(t, e.do(t, http.MethodGet, "/api/multi-agent/status", nil))
	assert.Equal(t, "operational", out["status"])
	assert.Equal(t, []any{}, out["available_tables"])

	rec = e.do(t, http.MethodGet, "/api/multi-agent/status?db=nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func rowsJSON(n int) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = map[string]any{"name": fmt.Sprintf("row %02d", i+1), "value": i + 1}
	}
	return out
}

func TestTableView(t *testing.T) {
	e := newEnv(t, nil)

	rec := e.do(t, http.MethodPost, "/api/view/table", map[string]any{
		"data": rowsJSON(12),
		"op":   map[string]any{"type": "next"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decode(t, rec)
	assert.EqualValues(t, 2, page["page"])
	assert.EqualValues(t, 11, page["from"])
	assert.EqualValues(t, 12, page["to"])
	assert.Equal(t, "Showing 11–12 of 12", page["showing"])
	assert.Len(t, page["rows"], 2)

	// The returned state round-trips with the next operation.
	rec = e.do(t, http.MethodPost, "/api/view/table", map[string]any{
		"data":  rowsJSON(12),
		"state": page["state"],
		"op":    map[string]any{"type": "filter", "column": "name", "value": "ROW 1"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode(t, rec)
	assert.EqualValues(t, 1, page["page"])
	assert.EqualValues(t, 3, page["total"])
	first := page["rows"].([]any)[0].(map[string]any)
	assert.EqualValues(t, 10, first["value"])

	rec = e.do(t, http.MethodPost, "/api/view/table", map[string]any{"data": rowsJSON(1), "op": map[string]any{"type": "zoom"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/view/table", map[string]any{"data": "not records"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/view/table", map[string]any{"data": nil})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["empty"])
}

func TestChartView(t *testing.T) {
	e := newEnv(t, nil)
	data := []map[string]any{{"month": "Jan", "sales": 1200}, {"month": "Feb", "sales": 800}}

	rec := e.do(t, http.MethodPost, "/api/view/chart", map[string]any{"data": data})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode(t, rec)
	assert.Equal(t, true, view["ready"])
	assert.Len(t, view["bars"], 2)
	assert.EqualValues(t, 1300, view["domain"].(map[string]any)["max"])

	rec = e.do(t, http.MethodPost, "/api/view/chart?format=svg&width=400&height=200", map[string]any{"data": data, "x": "month", "y": "sales"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "<svg"))

	rec = e.do(t, http.MethodPost, "/api/view/chart?format=png", map[string]any{"data": data})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	// Nothing to draw: the JSON view explains why.
	rec = e.do(t, http.MethodPost, "/api/view/chart?format=svg", map[string]any{"data": []any{}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "No data available", decode(t, rec)["message"])
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, slog.LevelInfo)
	ws, err := store.Open(context.Background(), t.TempDir(), store.Options{WorkspaceDriver: store.DriverSQLite})
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	h := New(Config{Store: ws, Logger: logger}).Routes()

	body := strings.NewReader(`{"query": "SELECT 1 AS one"}`)
	r := httptest.NewRequest(http.MethodPost, "/api/query", body)
	r.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// the store logs with the logger the request carries
	assert.Contains(t, buf.String(), `"msg":"Query executed"`)
	assert.Contains(t, buf.String(), `"request_id":"req-42"`)
	assert.Contains(t, buf.String(), `"path":"/api/query"`)
}

func TestCORS(t *testing.T) {
	e := newEnv(t, nil)

	r := httptest.NewRequest(http.MethodOptions, "/api/query", nil)
	r.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodGet, "/api/databases", nil)
	r.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	e.handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", store.ErrTableNotFound), http.StatusNotFound},
		{store.ErrDatabaseExists, http.StatusConflict},
		{fmt.Errorf("%w: workspace", store.ErrNotRegistered), http.StatusConflict},
		{invalid("bad"), http.StatusBadRequest},
		{dataset.ErrInvalidJSON, http.StatusBadRequest},
		{nlsql.ErrNoTables, http.StatusBadRequest},
		{errNoAssistant, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
