// Package llm defines the language-model capability interface consumed by
// the resolution engine, and provider clients implementing it. The engine
// uses it only to compose the final narrative; it never drives token-level
// inference itself.
package llm

import "context"

// Request is one completion request.
type Request struct {
	// System is the system prompt, optional.
	System string

	// Prompt is the user prompt, including any grounding context.
	Prompt string
}

// Response is the generated text.
type Response struct {
	Text string
}

// Client is a client for a language-model service.
type Client interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}
