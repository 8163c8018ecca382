package openai

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resolva/llm"
	"github.com/sashabaranov/go-openai"
)

const (
	DefaultModel = "gpt-4o-mini"
)

// Client is a client for the OpenAI chat completion API.
type Client struct {
	// client is the underlying OpenAI client.
	client *openai.Client

	// defaultModel is the model to use for completions.
	// It can be overridden using WithModel option.
	defaultModel string

	// baseURL is a custom base URL for OpenAI-compatible endpoints
	// (proxies, Azure, self-hosted). If empty, the default endpoint is used.
	baseURL string

	temperature float32
	maxTokens   int
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithModel sets the model to use for completions.
// See default model in [DefaultModel].
func WithModel(modelName string) Option {
	return func(c *Client) {
		c.defaultModel = modelName
	}
}

// WithBaseURL sets a custom base URL for the OpenAI API. Allows usage with
// compatible endpoints, proxies, or self-hosted instances.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithTemperature sets the temperature parameter for text generation.
func WithTemperature(temp float32) Option {
	return func(c *Client) {
		c.temperature = temp
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(maxTokens int) Option {
	return func(c *Client) {
		c.maxTokens = maxTokens
	}
}

// New creates a new client for the OpenAI API.
func New(apiKey string, options ...Option) (*Client, error) {
	client := &Client{
		defaultModel: DefaultModel,
		temperature:  0.3,
		maxTokens:    1024,
	}

	for _, option := range options {
		option(client)
	}

	config := openai.DefaultConfig(apiKey)
	if client.baseURL != "" {
		config.BaseURL = client.baseURL
	}
	client.client = openai.NewClientWithConfig(config)

	return client, nil
}

var _ llm.Client = (*Client)(nil)

// Complete generates a single completion for the request.
func (c *Client) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.defaultModel,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create chat completion", goerr.V("model", c.defaultModel))
	}

	if len(resp.Choices) == 0 {
		return nil, goerr.New("no completion choices returned", goerr.V("model", c.defaultModel))
	}

	return &llm.Response{Text: resp.Choices[0].Message.Content}, nil
}
