package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bichat/internal/dataset"
)

func salesDataset() *dataset.Dataset {
	return dataset.New([]string{"month", "sales"}, []dataset.Record{
		{"month": dataset.Text("Jan"), "sales": dataset.Number(100)},
		{"month": dataset.Text("Feb"), "sales": dataset.Number(1250.5)},
	})
}

func TestRenderDataset(t *testing.T) {
	tests := []struct {
		format string
		want   []string
	}{
		{formatTable, []string{"month", "sales", "Feb", "1250.5", "(2 rows)"}},
		{formatCSV, []string{"month,sales", "Jan,100"}},
		{formatMarkdown, []string{"| month | sales |", "| Jan | 100 |"}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, renderDataset(&buf, salesDataset(), tt.format))
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
		})
	}
}

func TestRenderDatasetJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderDataset(&buf, salesDataset(), formatJSON))

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "Jan", rows[0]["month"])
	assert.Equal(t, 1250.5, rows[1]["sales"])
}

func TestRenderDatasetEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderDataset(&buf, dataset.Empty(), formatTable))
	assert.Equal(t, "(0 rows)\n", buf.String())
}

func TestRenderDatasetUnknownFormat(t *testing.T) {
	err := renderDataset(&bytes.Buffer{}, salesDataset(), "xml")
	assert.ErrorContains(t, err, "unknown format")
}

func testCommand(t *testing.T, dataDir string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "test"}
	c.Flags().String("data-dir", "", "")
	c.Flags().String("workspace-driver", "", "")
	require.NoError(t, c.Flags().Set("data-dir", dataDir))
	require.NoError(t, c.Flags().Set("workspace-driver", "sqlite"))
	c.SetContext(context.Background())
	return c
}

func TestSetup(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	dir := t.TempDir()

	a, err := setup(testCommand(t, dir))
	require.NoError(t, err)
	defer a.close()

	assert.Equal(t, dir, a.cfg.DataDir)
	assert.Nil(t, a.assistant)
	assert.Equal(t, dir, a.store.DataDir())

	ds, err := a.store.Execute(a.ctx(), "", "SELECT 1 AS one")
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, ds.Columns())
}

func TestSetupWithAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	a, err := setup(testCommand(t, t.TempDir()))
	require.NoError(t, err)
	defer a.close()

	require.NotNil(t, a.assistant)
	assert.NotNil(t, a.requireAssistant().Describer)
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"serve", "query", "tables", "schema", "ask", "upload", "describe", "chart"}
	var got []string
	for _, c := range rootCmd.Commands() {
		got = append(got, c.Name())
	}
	for _, name := range want {
		assert.Contains(t, got, name)
	}
	assert.True(t, strings.HasPrefix(rootCmd.Use, "bichat"))
}
