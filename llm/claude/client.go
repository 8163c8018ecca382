package claude

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resolva/llm"
)

// Client is a client for the Claude API.
type Client struct {
	// client is the underlying Claude client.
	client *anthropic.Client

	// defaultModel is the model to use for completions.
	// It can be overridden using WithModel option.
	defaultModel string

	temperature float64
	maxTokens   int64
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithModel sets the model to use for completions.
// Default: anthropic.ModelClaude3_5SonnetLatest
func WithModel(modelName string) Option {
	return func(c *Client) {
		c.defaultModel = modelName
	}
}

// WithTemperature sets the temperature parameter for text generation.
// Range: 0.0 to 1.0
func WithTemperature(temp float64) Option {
	return func(c *Client) {
		c.temperature = temp
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(maxTokens int64) Option {
	return func(c *Client) {
		c.maxTokens = maxTokens
	}
}

// New creates a new client for the Claude API.
func New(apiKey string, options ...Option) (*Client, error) {
	client := &Client{
		defaultModel: anthropic.ModelClaude3_5SonnetLatest,
		temperature:  0.3,
		maxTokens:    1024,
	}

	for _, option := range options {
		option(client)
	}

	newClient := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	client.client = &newClient

	return client, nil
}

var _ llm.Client = (*Client)(nil)

// Complete generates a single completion for the request.
func (c *Client) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	params := anthropic.MessageNewParams{
		Model:       c.defaultModel,
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create message", goerr.V("model", c.defaultModel))
	}

	var texts []string
	for _, content := range resp.Content {
		textBlock := content.AsResponseTextBlock()
		if textBlock.Type == "text" {
			texts = append(texts, textBlock.Text)
		}
	}

	if len(texts) == 0 {
		return nil, goerr.New("no text content returned", goerr.V("model", c.defaultModel))
	}

	return &llm.Response{Text: strings.Join(texts, "\n")}, nil
}
