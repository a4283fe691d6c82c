package nlsql

import (
	"cmp"
	"context"
	"slices"
	"strings"
)

// Confidence levels reported by a routing decision.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Decision is the table a question was routed to.
type Decision struct {
	SelectedTable string `json:"selected_table"`
	Confidence    string `json:"confidence"`
	Reasoning     string `json:"reasoning"`
}

// Router picks the one table best suited to answer a question.
type Router struct {
	llm Completer
	cat Catalog
	settings
}

// NewRouter creates a Router.
func NewRouter(llm Completer, cat Catalog, opts ...Option) *Router {
	return &Router{llm: llm, cat: cat, settings: newSettings(opts)}
}

// Route asks the model for a table of db. When the answer cannot be parsed
// the first table named in it is used, and failing that the first table of
// db with low confidence.
func (r *Router) Route(ctx context.Context, db, question string) (Decision, error) {
	tables, err := r.cat.ListTables(ctx, db)
	if err != nil {
		return Decision{}, err
	}
	if len(tables) == 0 {
		return Decision{}, ErrNoTables
	}
	if len(tables) == 1 {
		return Decision{SelectedTable: tables[0], Confidence: ConfidenceHigh, Reasoning: "only one table available"}, nil
	}

	descriptions, err := r.cat.Descriptions(ctx, db)
	if err != nil {
		return Decision{}, err
	}

	text, err := r.llm.Complete(ctx, Request{Model: r.model, Prompt: routerPrompt(tables, descriptions, question), MaxTokens: 1000})
	if err != nil {
		r.log(ctx).Warn("Routing failed, using first table", "error", err, "question", question)
		return Decision{SelectedTable: tables[0], Confidence: ConfidenceLow, Reasoning: "router unavailable, defaulted to first table"}, nil
	}

	var d Decision
	if err := decodeJSON(text, &d); err == nil {
		if t, ok := matchTable(tables, d.SelectedTable); ok {
			d.SelectedTable = t
			if d.Confidence == "" {
				d.Confidence = ConfidenceMedium
			}
			r.log(ctx).Info("Question routed", "table", d.SelectedTable, "confidence", d.Confidence)
			return d, nil
		}
	}

	r.log(ctx).Warn("Could not parse routing decision", "response_preview", truncateString(text, 200))
	if t, ok := mentionedTable(tables, text); ok {
		return Decision{SelectedTable: t, Confidence: ConfidenceMedium, Reasoning: "table named in router response"}, nil
	}
	return Decision{SelectedTable: tables[0], Confidence: ConfidenceLow, Reasoning: "could not parse router response, defaulted to first table"}, nil
}

func matchTable(tables []string, name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, t := range tables {
		if strings.EqualFold(t, name) {
			return t, true
		}
	}
	return "", false
}

// mentionedTable finds the longest table name contained in text.
func mentionedTable(tables []string, text string) (string, bool) {
	sorted := slices.Clone(tables)
	slices.SortStableFunc(sorted, func(a, b string) int { return cmp.Compare(len(b), len(a)) })
	lower := strings.ToLower(text)
	for _, t := range sorted {
		if strings.Contains(lower, strings.ToLower(t)) {
			return t, true
		}
	}
	return "", false
}
