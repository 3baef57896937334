// Package events publishes domain events about prompts and configuration.
package events

import (
	"context"

	"github.com/arqioly/arqioly/pkg/models"
)

// Event topics, relative to the configured subject prefix.
const (
	TopicPromptSaved     = "prompt.saved"
	TopicPromptArchived  = "prompt.archived"
	TopicPromptDeleted   = "prompt.deleted"
	TopicPromptImproved  = "prompt.improved"
	TopicPromptExecuted  = "prompt.executed"
	TopicConfigChanged   = "config.changed"
	TopicShareCreated    = "share.created"
	TopicShareRevoked    = "share.revoked"
	TopicTeamChanged     = "team.changed"
	TopicCatalogChanged  = "catalog.changed"
	TopicDefaultsSeeded  = "defaults.seeded"
	TopicExportCompleted = "export.completed"
	TopicMCPCall         = "mcp.call"
)

type PromptSaved struct {
	Prompt  *models.Prompt        `json:"prompt"`
	Version *models.PromptVersion `json:"version,omitempty"`
}

type PromptArchived struct {
	PromptID string `json:"prompt_id"`
	Archived bool   `json:"archived"`
}

type PromptDeleted struct {
	PromptID string `json:"prompt_id"`
}

type PromptImproved struct {
	PromptID  string `json:"prompt_id,omitempty"`
	Model     string `json:"model"`
	VersionID string `json:"version_id,omitempty"`
}

type PromptExecuted struct {
	Run *models.Run `json:"run"`
}

// ConfigChanged covers system prompts and model configs.
type ConfigChanged struct {
	Kind      string           `json:"kind"` // "system_prompt" or "model_config"
	ID        string           `json:"id"`
	ScopeType models.ScopeType `json:"scope_type"`
	ScopeID   string           `json:"scope_id,omitempty"`
	Deleted   bool             `json:"deleted,omitempty"`
}

type ShareChanged struct {
	ShareToken string `json:"share_token"`
	PromptID   string `json:"prompt_id"`
}

type TeamChanged struct {
	TeamID string `json:"team_id"`
	Action string `json:"action"`
}

type CatalogChanged struct {
	Kind   string `json:"kind"` // project, category, tag
	ID     string `json:"id"`
	Action string `json:"action"`
}

type ExportCompleted struct {
	Filename string `json:"filename"`
	Location string `json:"location,omitempty"`
	Prompts  int    `json:"prompts"`
}

// MCPCall is one tools/call or prompts/get served over MCP.
type MCPCall struct {
	Method     string `json:"method"`
	Name       string `json:"name"`
	PromptID   string `json:"prompt_id,omitempty"`
	Actor      string `json:"actor"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
