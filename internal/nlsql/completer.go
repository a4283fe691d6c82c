package nlsql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Request is one single-turn completion.
type Request struct {
	Model     string
	System    string
	Prompt    string
	MaxTokens int64
}

// Completer sends a prompt to a language model and returns its text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// AnthropicCompleter is a Completer backed by the Anthropic Messages API.
type AnthropicCompleter struct {
	client anthropic.Client
}

// NewAnthropicCompleter creates a completer for apiKey.
func NewAnthropicCompleter(apiKey string, opts ...option.RequestOption) (*AnthropicCompleter, error) {
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY environment variable not set")
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicCompleter{client: anthropic.NewClient(opts...)}, nil
}

// Complete implements Completer.
func (c *AnthropicCompleter) Complete(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4000
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("Claude API error: %w", err)
	}
	if len(message.Content) == 0 {
		return "", errors.New("empty response from Claude")
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if textBlock, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(textBlock.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("no text response from Claude")
	}
	return sb.String(), nil
}
