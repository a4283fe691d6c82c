// Package config loads bichat settings from defaults, an optional YAML
// file, BICHAT_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Defaults.
const (
	DefaultDataDir          = "./data"
	DefaultPort             = 3000
	DefaultModel            = "claude-haiku-4-5"
	DefaultMaxSQLRetries    = 3
	DefaultPageSize         = 10
	DefaultLogLevel         = "info"
	DefaultRequestTimeout   = 60 * time.Second
	DefaultWorkspaceDriver  = "duckdb"
	DefaultConfigFile       = "bichat.yaml"
	MaxSQLRetriesCap        = 5
	EnvPrefix               = "BICHAT_"
	AnthropicAPIKeyVariable = "ANTHROPIC_API_KEY"
)

// Config is the resolved configuration.
type Config struct {
	DataDir          string        `koanf:"data_dir"`
	Port             int           `koanf:"port"`
	Model            string        `koanf:"model"`
	DescriptionModel string        `koanf:"description_model"`
	MaxSQLRetries    int           `koanf:"max_sql_retries"`
	PageSize         int           `koanf:"page_size"`
	LogLevel         string        `koanf:"log_level"`
	AllowedOrigins   []string      `koanf:"allowed_origins"`
	RequestTimeout   time.Duration `koanf:"request_timeout"`
	WorkspaceDriver  string        `koanf:"workspace_driver"`
	AnthropicAPIKey  string        `koanf:"anthropic_api_key"`

	// ConfigFile is the file that was loaded, if any.
	ConfigFile string `koanf:"-"`
}

// Validate checks values that would otherwise fail later and far from
// their source. MaxSQLRetries is clamped rather than rejected.
func (c *Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	switch c.WorkspaceDriver {
	case "duckdb", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("workspace_driver must be duckdb or sqlite, got %q", c.WorkspaceDriver))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout))
	}

	c.MaxSQLRetries = max(0, min(c.MaxSQLRetries, MaxSQLRetriesCap))
	if c.DescriptionModel == "" {
		c.DescriptionModel = c.Model
	}
	return errors.Join(errs...)
}

// HasAPIKey reports whether LLM-backed features can run.
func (c *Config) HasAPIKey() bool { return c.AnthropicAPIKey != "" }

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
