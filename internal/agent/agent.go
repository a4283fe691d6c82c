// Package agent builds a tool-using chat agent that explores a database on
// its own: it lists tables, reads schemas and runs read-only SQL.
package agent

import (
	"context"
	"fmt"
	"os"

	"charm.land/fantasy"
	"charm.land/fantasy/providers/anthropic"
)

const (
	defaultModel        = "claude-haiku-4-5"
	defaultMaxRows      = 50
	defaultSystemPrompt = "You are a business intelligence assistant. You have tools to list the tables of a database, describe a table and run read-only SQL against it. " +
		"Look at the schema before writing SQL, prefer aggregated queries, and answer in short business-friendly markdown that cites the numbers you found."
)

// AgentConfig holds the configuration for creating an ask agent
type AgentConfig struct {
	apiKey       string
	model        string
	systemPrompt string
	catalog      Catalog
	database     string
	maxRows      int
}

// AgentOption is a functional option for configuring the agent
type AgentOption func(*AgentConfig) error

// WithAPIKey sets the Anthropic API key
func WithAPIKey(apiKey string) AgentOption {
	return func(c *AgentConfig) error {
		if apiKey == "" {
			return fmt.Errorf("API key cannot be empty")
		}
		c.apiKey = apiKey
		return nil
	}
}

// WithAPIKeyFromEnv sets the API key from the ANTHROPIC_API_KEY environment variable
func WithAPIKeyFromEnv() AgentOption {
	return func(c *AgentConfig) error {
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
		c.apiKey = apiKey
		return nil
	}
}

// WithModel sets the Claude model to use (default: claude-haiku-4-5)
func WithModel(model string) AgentOption {
	return func(c *AgentConfig) error {
		if model == "" {
			return fmt.Errorf("model cannot be empty")
		}
		c.model = model
		return nil
	}
}

// WithSystemPrompt sets a custom system prompt
func WithSystemPrompt(prompt string) AgentOption {
	return func(c *AgentConfig) error {
		c.systemPrompt = prompt
		return nil
	}
}

// WithCatalog sets the catalog the tools query.
func WithCatalog(cat Catalog) AgentOption {
	return func(c *AgentConfig) error {
		if cat == nil {
			return fmt.Errorf("catalog cannot be nil")
		}
		c.catalog = cat
		return nil
	}
}

// WithDatabase sets the database the tools run against ("" is the workspace).
func WithDatabase(db string) AgentOption {
	return func(c *AgentConfig) error {
		c.database = db
		return nil
	}
}

// WithMaxRows caps how many result rows run_sql hands back to the model.
func WithMaxRows(n int) AgentOption {
	return func(c *AgentConfig) error {
		if n <= 0 {
			return fmt.Errorf("max rows must be positive, got %d", n)
		}
		c.maxRows = n
		return nil
	}
}

func newConfig(opts []AgentOption) (*AgentConfig, error) {
	config := &AgentConfig{
		model:        defaultModel,
		systemPrompt: defaultSystemPrompt,
		maxRows:      defaultMaxRows,
	}
	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if config.apiKey == "" {
		return nil, fmt.Errorf("API key is required (use WithAPIKey or WithAPIKeyFromEnv)")
	}
	if config.catalog == nil {
		return nil, fmt.Errorf("catalog is required (use WithCatalog)")
	}
	return config, nil
}

// NewAskAgent creates a Fantasy agent wired to the catalog's tools.
func NewAskAgent(ctx context.Context, opts ...AgentOption) (fantasy.Agent, error) {
	config, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	provider, err := anthropic.New(anthropic.WithAPIKey(config.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Anthropic provider: %w", err)
	}

	model, err := provider.LanguageModel(ctx, config.model)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Claude model: %w", err)
	}

	tools := Tools(config.catalog, config.database, config.maxRows)

	return fantasy.NewAgent(
		model,
		fantasy.WithSystemPrompt(config.systemPrompt),
		fantasy.WithTools(tools...),
	), nil
}

// GenerateResponse creates an agent and answers question in one call.
func GenerateResponse(ctx context.Context, question string, opts ...AgentOption) (string, error) {
	agent, err := NewAskAgent(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create agent: %w", err)
	}

	result, err := agent.Generate(ctx, fantasy.AgentCall{Prompt: question})
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}

	return result.Response.Content.Text(), nil
}
