package models

import "time"

// Prompt is an authored prompt. Content history lives in PromptVersion.
type Prompt struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Content      string    `json:"content"`
	ProjectID    string    `json:"project_id"`
	CategoryID   string    `json:"category_id,omitempty"`
	Tags         []string  `json:"tags"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	IsArchived   bool      `json:"is_archived"`
	ExposedToMCP bool      `json:"exposed_to_mcp"`
}

func (p Prompt) GetID() string { return p.ID }

// HasTag reports whether the prompt carries the tag id.
func (p *Prompt) HasTag(tagID string) bool {
	for _, t := range p.Tags {
		if t == tagID {
			return true
		}
	}
	return false
}

// MCPVisible reports whether the prompt is listed over MCP.
func (p *Prompt) MCPVisible() bool {
	return p.ExposedToMCP && !p.IsArchived
}

// PromptVersion is an immutable snapshot of prompt content.
type PromptVersion struct {
	ID            string    `json:"id"`
	PromptID      string    `json:"prompt_id"`
	VersionNumber int       `json:"version_number"`
	Content       string    `json:"content"`
	ChangeNote    string    `json:"change_note"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	ImprovedFrom  string    `json:"improved_from,omitempty"`
}

func (v PromptVersion) GetID() string { return v.ID }

// Comment is a discussion entry on a prompt, optionally pinned to a version.
type Comment struct {
	ID         string    `json:"id"`
	PromptID   string    `json:"prompt_id"`
	VersionID  string    `json:"version_id,omitempty"`
	UserID     string    `json:"user_id"`
	UserName   string    `json:"user_name"`
	UserAvatar string    `json:"user_avatar,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (c Comment) GetID() string { return c.ID }

// RunStatus is the outcome of an execution.
type RunStatus string

const (
	RunPending RunStatus = "pending"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
)

// Run records one execution of a prompt version against an LLM.
type Run struct {
	ID              string    `json:"id"`
	PromptID        string    `json:"prompt_id"`
	PromptVersionID string    `json:"prompt_version_id"`
	Input           string    `json:"input"`
	Output          string    `json:"output"`
	Status          RunStatus `json:"status"`
	Error           string    `json:"error,omitempty"`
	Provider        string    `json:"provider"`
	Model           string    `json:"model"`
	CreatedBy       string    `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
}

func (r Run) GetID() string { return r.ID }

// SharedPrompt maps a public share token to a prompt.
type SharedPrompt struct {
	ShareToken string    `json:"share_token"`
	PromptID   string    `json:"prompt_id"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s SharedPrompt) GetID() string { return s.ShareToken }
