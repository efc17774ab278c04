// Package llm defines the text generation contract shared by every provider.
//
// The pipeline only needs generate(prompt) -> text; ChatRequest carries the
// prompt plus optional per-call overrides and ChatResponse the text plus
// token usage when the provider reports it.
package llm

import (
	"context"
)

// Client is implemented by every text generation provider.
type Client interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest represents a high-level request to the model
type ChatRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  *float64 // Override default temperature
	MaxTokens    *int     // Override default max tokens
	Model        *string  // Override default model
	JSONOutput   bool     // Ask providers that support it for application/json output
}

// ChatResponse represents the model response
type ChatResponse struct {
	Content string
	Model   string
	Usage   Usage
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Func adapts a plain function to the Client interface.
type Func func(ctx context.Context, req ChatRequest) (*ChatResponse, error)

// Chat calls f(ctx, req).
func (f Func) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return f(ctx, req)
}

// Text returns a Func that answers every request with the given content.
func Text(content string) Func {
	return func(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
		return &ChatResponse{Content: content}, nil
	}
}

var _ Client = Func(nil)
