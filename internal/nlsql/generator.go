package nlsql

import (
	"context"
	"fmt"

	"bichat/internal/dataset"
)

// Query is the model's SQL answer.
type Query struct {
	QueryType   string `json:"query_type"`
	Explanation string `json:"explanation"`
	SQL         string `json:"sql_query"`
}

// Result is an executed query.
type Result struct {
	Query
	Attempts int              `json:"attempts"`
	Data     *dataset.Dataset `json:"data"`
}

// Generator turns questions into SQL and runs it.
type Generator struct {
	llm Completer
	cat Catalog
	settings
}

// NewGenerator creates a Generator.
func NewGenerator(llm Completer, cat Catalog, opts ...Option) *Generator {
	return &Generator{llm: llm, cat: cat, settings: newSettings(opts)}
}

// Answer generates SQL for question over every table of db and executes it.
func (g *Generator) Answer(ctx context.Context, db, question string, opts ...AskOption) (*Result, error) {
	tables, err := g.cat.ListTables(ctx, db)
	if err != nil {
		return nil, err
	}
	return g.AnswerFrom(ctx, db, question, tables, opts...)
}

// AnswerFrom is Answer restricted to tables. A query that fails to execute
// is sent back to the model with the error until it succeeds or the attempts
// run out.
func (g *Generator) AnswerFrom(ctx context.Context, db, question string, tables []string, opts ...AskOption) (*Result, error) {
	if len(tables) == 0 {
		return nil, ErrNoTables
	}
	driver, err := g.cat.Driver(db)
	if err != nil {
		return nil, err
	}
	schema, err := describeSchema(ctx, g.cat, db, tables)
	if err != nil {
		return nil, err
	}

	scope := newScope(opts)
	if !scope.IsZero() {
		g.log(ctx).Info("Scoping SQL to company", "company_code", scope.CompanyCode, "company_name", scope.CompanyName)
	}

	var (
		lastErr     error
		previousSQL string
	)
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		prompt := sqlPrompt(dialectFor(driver), schema, question, scope)
		if attempt > 1 {
			g.log(ctx).Info("Retrying SQL generation with error correction",
				"question", question, "attempt", attempt, "previous_error", lastErr.Error())
			prompt = correctionPrompt(prompt, attempt, previousSQL, lastErr.Error())
		} else {
			g.log(ctx).Info("Generating SQL", "question", question, "database", db, "tables", len(tables))
		}

		q, err := g.generate(ctx, prompt, attempt)
		if err != nil {
			g.log(ctx).Error("Failed to generate SQL", "error", err, "question", question, "attempt", attempt)
			return nil, fmt.Errorf("SQL generation failed: %w", err)
		}
		previousSQL = q.SQL

		g.log(ctx).Info("Executing generated SQL",
			"query_type", q.QueryType, "sql_preview", truncateString(q.SQL, 150), "attempt", attempt)
		data, err := g.cat.Execute(ctx, db, q.SQL)
		if err != nil {
			lastErr = err
			g.log(ctx).Warn("SQL execution failed, will retry if attempts remain",
				"error", err, "sql", q.SQL, "attempt", attempt, "max_attempts", g.maxAttempts)
			continue
		}

		if attempt > 1 {
			g.log(ctx).Info("SQL succeeded after self-correction", "attempt", attempt)
		}
		return &Result{Query: *q, Attempts: attempt, Data: data}, nil
	}

	return nil, fmt.Errorf("SQL execution failed after %d attempts: %w", g.maxAttempts, lastErr)
}

func (g *Generator) generate(ctx context.Context, prompt string, attempt int) (*Query, error) {
	text, err := g.llm.Complete(ctx, Request{Model: g.model, Prompt: prompt, MaxTokens: 4000})
	if err != nil {
		return nil, err
	}

	var q Query
	if err := decodeJSON(text, &q); err != nil {
		g.log(ctx).Error("Failed to parse SQL response",
			"error", err, "response_preview", truncateString(text, 200), "attempt", attempt)
		return nil, err
	}
	q.SQL = CleanSQL(q.SQL)
	if q.SQL == "" {
		return nil, ErrEmptySQL
	}
	return &q, nil
}
