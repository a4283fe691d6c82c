// Package nlsql answers natural language questions about a database: it
// routes a question to a table, asks a language model for SQL, executes it
// with self-correction on failure and describes the result for business users.
package nlsql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"bichat/internal/dataset"
	"bichat/internal/logging"
	"bichat/internal/store"
)

// NoDataMessage is the answer given when there is nothing to describe.
const NoDataMessage = "I don't have data for this query. Please try another question."

const (
	DefaultModel       = "claude-haiku-4-5"
	DefaultMaxAttempts = 3
	maxAttemptsCap     = 5
	sampleRows         = 3
	searchRows         = 200
	describeRows       = 50
)

var (
	ErrNoTables = errors.New("no tables available")
	ErrEmptySQL = errors.New("model generated empty SQL query")
)

// Catalog is the view of the store the assistants need.
type Catalog interface {
	Driver(db string) (string, error)
	ListTables(ctx context.Context, db string) ([]string, error)
	TableSchema(ctx context.Context, db, table string) ([]store.Column, error)
	Descriptions(ctx context.Context, db string) (map[string]string, error)
	Execute(ctx context.Context, db, query string) (*dataset.Dataset, error)
}

type settings struct {
	model            string
	descriptionModel string
	maxAttempts      int
	logger           *slog.Logger
}

func (s settings) log(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// Option configures a Generator, Router, Describer or Assistant.
type Option func(*settings)

// WithModel sets the model used for SQL generation and routing.
func WithModel(model string) Option {
	return func(s *settings) {
		if model != "" {
			s.model = model
		}
	}
}

// WithDescriptionModel sets the model used for result descriptions.
func WithDescriptionModel(model string) Option {
	return func(s *settings) { s.descriptionModel = model }
}

// WithMaxAttempts sets how many times SQL is generated before giving up.
// Values are clamped to 1..5.
func WithMaxAttempts(n int) Option {
	return func(s *settings) {
		if n < 1 {
			n = 1
		}
		if n > maxAttemptsCap {
			n = maxAttemptsCap
		}
		s.maxAttempts = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = logging.OrDiscard(l) }
}

// Scope restricts an answer to one company's rows. The zero Scope is
// unrestricted.
type Scope struct {
	CompanyCode string `json:"company_code,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
}

// IsZero reports whether s restricts nothing.
func (s Scope) IsZero() bool { return strings.TrimSpace(s.CompanyCode) == "" }

// AskOption configures a single question.
type AskOption func(*Scope)

// WithScope limits generated SQL to the rows of company code.
func WithScope(code, name string) AskOption {
	return func(s *Scope) {
		s.CompanyCode = strings.TrimSpace(code)
		s.CompanyName = strings.TrimSpace(name)
	}
}

func newScope(opts []AskOption) Scope {
	var s Scope
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func newSettings(opts []Option) settings {
	s := settings{
		model:       DefaultModel,
		maxAttempts: DefaultMaxAttempts,
		logger:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.descriptionModel == "" {
		s.descriptionModel = s.model
	}
	return s
}

// extractJSON pulls the JSON object out of a model response that may be
// wrapped in a markdown fence or surrounded by prose.
func extractJSON(text string) string {
	s := text
	if i := strings.Index(s, "```json"); i >= 0 {
		s = s[i+len("```json"):]
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
	} else if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") {
		return s
	}
	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

func decodeJSON(text string, v any) error {
	if err := json.Unmarshal([]byte(extractJSON(text)), v); err != nil {
		return fmt.Errorf("failed to parse model response as JSON: %w", err)
	}
	return nil
}

// CleanSQL removes markdown fences and trailing semicolons.
func CleanSQL(sql string) string {
	sql = strings.ReplaceAll(sql, "```sql", "")
	sql = strings.ReplaceAll(sql, "```", "")
	sql = strings.TrimSpace(sql)
	for strings.HasSuffix(sql, ";") {
		sql = strings.TrimSpace(strings.TrimSuffix(sql, ";"))
	}
	return sql
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
