// Package llm talks to the LLM providers a model configuration can select.
package llm

import (
	"context"

	"github.com/arqioly/arqioly/pkg/models"
)

// GenerateRequest is one single-turn completion.
type GenerateRequest struct {
	// SystemPrompt is omitted from the request when empty.
	SystemPrompt string
	Prompt       string
	Temperature  float64
	MaxTokens    int
}

// GenerateResponseResult contains the LLM response and token usage.
type GenerateResponseResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// LLMClient defines the interface for LLM operations.
// Use this interface for dependency injection to enable mocking in tests.
type LLMClient interface {
	// GenerateResponse generates a completion for a single user message.
	GenerateResponse(ctx context.Context, req GenerateRequest) (*GenerateResponseResult, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetProvider returns the provider serving the model.
	GetProvider() models.Provider
}

// LLMClientFactory creates clients for a model configuration payload.
type LLMClientFactory interface {
	CreateForModel(ctx context.Context, params models.ModelParams) (LLMClient, error)
}
