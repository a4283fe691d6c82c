package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("data-dir", DefaultDataDir, "")
	fs.Int("port", DefaultPort, "")
	fs.String("model", "", "")
	return fs
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(AnthropicAPIKeyVariable, "")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultDataDir, cfg.DataDir)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, DefaultModel, cfg.DescriptionModel)
	assert.Equal(t, DefaultMaxSQLRetries, cfg.MaxSQLRetries)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.False(t, cfg.HasAPIKey())
	assert.Empty(t, cfg.ConfigFile)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /from/file
port: 4000
model: file-model
max_sql_retries: 9
request_timeout: 15s
log_level: debug
`), 0o644))

	t.Setenv("BICHAT_PORT", "5000")
	t.Setenv("BICHAT_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv(AnthropicAPIKeyVariable, "sk-test")

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--model", "flag-model"}))

	cfg, err := Load(path, fs)
	require.NoError(t, err)

	assert.Equal(t, "/from/file", cfg.DataDir, "file beats default")
	assert.Equal(t, 5000, cfg.Port, "env beats file")
	assert.Equal(t, "flag-model", cfg.Model, "flag beats file")
	assert.Equal(t, MaxSQLRetriesCap, cfg.MaxSQLRetries, "clamped")
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, "sk-test", cfg.AnthropicAPIKey)
	assert.Equal(t, path, cfg.ConfigFile)
}

func TestLoadUnsetFlagsDoNotOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BICHAT_DATA_DIR", "/from/env")

	fs := testFlags()
	require.NoError(t, fs.Parse(nil))

	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.DataDir)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"bad port", func(c *Config) { c.Port = 0 }, true},
		{"bad driver", func(c *Config) { c.WorkspaceDriver = "oracle" }, true},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"empty data dir", func(c *Config) { c.DataDir = "" }, true},
		{"negative retries clamp", func(c *Config) { c.MaxSQLRetries = -2 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				DataDir:         "data",
				Port:            DefaultPort,
				Model:           DefaultModel,
				LogLevel:        "info",
				RequestTimeout:  time.Second,
				WorkspaceDriver: "sqlite",
			}
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.GreaterOrEqual(t, cfg.MaxSQLRetries, 0)
		})
	}
}
