package nlsql

import (
	"context"

	"bichat/internal/dataset"
)

// Answer is a question answered end to end.
type Answer struct {
	Question    string           `json:"question"`
	Database    string           `json:"database"`
	QueryType   string           `json:"query_type"`
	Explanation string           `json:"explanation"`
	SQL         string           `json:"sql_query"`
	Attempts    int              `json:"attempts"`
	Columns     []string         `json:"columns"`
	Data        *dataset.Dataset `json:"data"`
	Answer      string           `json:"answer"`
	Routing     *Decision        `json:"routing_decision,omitempty"`
}

// Assistant combines a Generator, a Router and a Describer.
type Assistant struct {
	Generator *Generator
	Router    *Router
	Describer *Describer
}

// NewAssistant creates an Assistant whose parts share opts.
func NewAssistant(llm Completer, cat Catalog, opts ...Option) *Assistant {
	return &Assistant{
		Generator: NewGenerator(llm, cat, opts...),
		Router:    NewRouter(llm, cat, opts...),
		Describer: NewDescriber(llm, opts...),
	}
}

// Ask answers question using every table of db.
func (a *Assistant) Ask(ctx context.Context, db, question string, opts ...AskOption) (*Answer, error) {
	res, err := a.Generator.Answer(ctx, db, question, opts...)
	if err != nil {
		return nil, err
	}
	return a.finish(ctx, db, question, res, nil), nil
}

// MultiAgent routes question to one table first and generates SQL against
// that table only.
func (a *Assistant) MultiAgent(ctx context.Context, db, question string, opts ...AskOption) (*Answer, error) {
	decision, err := a.Router.Route(ctx, db, question)
	if err != nil {
		return nil, err
	}
	res, err := a.Generator.AnswerFrom(ctx, db, question, []string{decision.SelectedTable}, opts...)
	if err != nil {
		return nil, err
	}
	return a.finish(ctx, db, question, res, &decision), nil
}

func (a *Assistant) finish(ctx context.Context, db, question string, res *Result, decision *Decision) *Answer {
	data := res.Data
	if data == nil {
		data = dataset.Empty()
	}
	return &Answer{
		Question:    question,
		Database:    db,
		QueryType:   res.QueryType,
		Explanation: res.Explanation,
		SQL:         res.SQL,
		Attempts:    res.Attempts,
		Columns:     data.Columns(),
		Data:        data,
		Answer:      a.Describer.Describe(ctx, data, res.SQL, question),
		Routing:     decision,
	}
}
