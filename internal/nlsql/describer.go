package nlsql

import (
	"context"
	"encoding/json"
	"strings"

	"bichat/internal/dataset"
)

// Describer writes a business summary of a result.
type Describer struct {
	llm Completer
	settings
}

// NewDescriber creates a Describer.
func NewDescriber(llm Completer, opts ...Option) *Describer {
	return &Describer{llm: llm, settings: newSettings(opts)}
}

// Describe summarises the first records of ds. It never fails: an empty
// result or a model error yields NoDataMessage.
func (d *Describer) Describe(ctx context.Context, ds *dataset.Dataset, sql, question string) string {
	if ds == nil || ds.IsEmpty() {
		return NoDataMessage
	}

	head := ds.Head(describeRows)
	data, err := json.Marshal(head)
	if err != nil {
		d.log(ctx).Error("Failed to encode data for description", "error", err)
		return NoDataMessage
	}

	text, err := d.llm.Complete(ctx, Request{
		Model:     d.descriptionModel,
		Prompt:    describePrompt(string(data), sql, question, head.Len()),
		MaxTokens: 2000,
	})
	if err != nil {
		d.log(ctx).Warn("Description failed", "error", err, "question", question)
		return NoDataMessage
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return NoDataMessage
	}
	return text
}

// DescribeTable drafts a one or two sentence description of a table from its
// columns and sample rows.
func (d *Describer) DescribeTable(ctx context.Context, cat Catalog, db, table string) (string, error) {
	schema, err := describeSchema(ctx, cat, db, []string{table})
	if err != nil {
		return "", err
	}
	text, err := d.llm.Complete(ctx, Request{
		Model: d.descriptionModel,
		Prompt: "Write a one or two sentence business description of this table for an analyst choosing which table to query. " +
			"Return only the description.\n\n" + schema,
		MaxTokens: 300,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
