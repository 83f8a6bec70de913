// Package llm defines the provider-agnostic text-generation client
// interface and the types flowing through it.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidybook/tidybook/internal/domain"
)

// ToolDecl describes a callable tool to the provider.
type ToolDecl struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema,omitempty"` // JSON Schema for the arguments
}

// GenerationRequest is the input to a Generate call.
type GenerationRequest struct {
	Messages     []domain.Message `json:"messages"`
	Instructions string           `json:"instructions,omitempty"`
	Tools        []ToolDecl       `json:"tools,omitempty"`
	MaxTokens    int              `json:"maxTokens,omitempty"`
}

// Usage tracks token consumption for one generation.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// GenerationResult is the normalized outcome of a generation. At least
// one of Text and ToolCalls is non-empty; a response carrying neither is
// rejected during normalization.
type GenerationResult struct {
	Text      string            `json:"text,omitempty"`
	ToolCalls []domain.ToolCall `json:"toolCalls,omitempty"`
	Usage     Usage             `json:"usage"`
	Model     string            `json:"model,omitempty"`
}

// Client is implemented by every text-generation provider.
type Client interface {
	// Generate sends one request and returns the normalized result.
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error)

	// Name returns the provider name (e.g. "openai").
	Name() string
}

// ProviderError is returned when a provider call fails.
type ProviderError struct {
	Provider string
	Code     int // HTTP-like status code, 0 when unknown
	Message  string
	Cause    error
}

func (e *ProviderError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// IsRetryable reports whether the error is a transient provider
// condition (rate limiting or a server-side failure). Everything else
// is terminal.
func IsRetryable(err error) bool {
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		return false
	}
	return provErr.Code == 429 || provErr.Code >= 500
}
