package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesJSONToDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")

	logger, closer, err := Setup(dir, slog.LevelInfo)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("query executed", "rows", 3)
	require.NoError(t, closer.Close())

	raw, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(raw), &entry))
	assert.Equal(t, "query executed", entry["msg"])
	assert.EqualValues(t, 3, entry["rows"])
	assert.Contains(t, entry, slog.SourceKey)
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelDebug)

	var fallbackBuf bytes.Buffer
	fallback := New(&fallbackBuf, slog.LevelDebug)

	ctx := WithLogger(context.Background(), l)
	FromContext(ctx, fallback).Info("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.Empty(t, fallbackBuf.String())

	FromContext(context.Background(), fallback).Info("fallback")
	assert.Contains(t, fallbackBuf.String(), "fallback")

	assert.NotNil(t, FromContext(context.Background(), nil))
	assert.NotNil(t, OrDiscard(nil))
}
