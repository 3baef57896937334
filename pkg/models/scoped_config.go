package models

import (
	"slices"
	"time"
)

// DefaultConfigID identifies built-in defaults, which are never stored.
const DefaultConfigID = "default"

// builtinCreatedAt is fixed so repeated resolutions return equal values.
var builtinCreatedAt = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// DefaultSystemPromptContent is used when no stored system prompt matches.
const DefaultSystemPromptContent = `You are an expert at improving LLM prompts. Your task is to analyze prompts and suggest improved versions that are:
- Clearer and more specific
- Better structured
- More effective at eliciting desired responses
- Following best practices for prompt engineering

Maintain the original intent while enhancing clarity, structure, and effectiveness.`

// SystemPrompt is a scoped system instruction.
type SystemPrompt struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	ScopeType ScopeType `json:"scope_type"`
	ScopeID   string    `json:"scope_id,omitempty"`
	Priority  int       `json:"priority"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s SystemPrompt) GetID() string { return s.ID }

func (s SystemPrompt) ScopeRef() ScopeRef {
	return ScopeRef{Type: s.ScopeType, ID: s.ScopeID, Priority: s.Priority, CreatedAt: s.CreatedAt}
}

// DefaultSystemPrompt returns the built-in system prompt.
func DefaultSystemPrompt() SystemPrompt {
	return SystemPrompt{
		ID:        DefaultConfigID,
		Name:      "Default",
		Content:   DefaultSystemPromptContent,
		ScopeType: ScopeTeam,
		CreatedBy: "system",
		CreatedAt: builtinCreatedAt,
		UpdatedAt: builtinCreatedAt,
	}
}

// Provider is an LLM vendor.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderAzure     Provider = "azure"
)

// ProviderModels lists the selectable models per provider.
var ProviderModels = map[Provider][]string{
	ProviderOpenAI:    {"gpt-4o", "gpt-4o-mini", "gpt-4-turbo", "gpt-3.5-turbo"},
	ProviderAnthropic: {"claude-3-5-sonnet-20241022", "claude-3-opus-20240229", "claude-3-sonnet-20240229", "claude-3-haiku-20240307"},
	ProviderAzure:     {"gpt-4o", "gpt-4o-mini", "gpt-4-turbo", "gpt-35-turbo"},
}

// IsValid checks if the provider is known.
func (p Provider) IsValid() bool {
	_, ok := ProviderModels[p]
	return ok
}

// SupportsModel reports whether name is in the provider's model list.
func (p Provider) SupportsModel(name string) bool {
	return slices.Contains(ProviderModels[p], name)
}

// ModelParams is the payload of a model configuration.
type ModelParams struct {
	Provider    Provider `json:"provider"`
	ModelName   string   `json:"model_name"`
	Temperature float64  `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
}

// ModelConfig is a scoped set of LLM parameters.
type ModelConfig struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	ModelParams
	ScopeType ScopeType `json:"scope_type"`
	ScopeID   string    `json:"scope_id,omitempty"`
	Priority  int       `json:"priority"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

func (m ModelConfig) GetID() string { return m.ID }

func (m ModelConfig) ScopeRef() ScopeRef {
	return ScopeRef{Type: m.ScopeType, ID: m.ScopeID, Priority: m.Priority, CreatedAt: m.CreatedAt}
}

// DefaultModelConfig returns the built-in model configuration.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		ID:   DefaultConfigID,
		Name: "Default",
		ModelParams: ModelParams{
			Provider:    ProviderOpenAI,
			ModelName:   "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   2000,
		},
		ScopeType: ScopeTeam,
		CreatedBy: "system",
		CreatedAt: builtinCreatedAt,
	}
}
