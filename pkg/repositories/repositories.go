// Package repositories provides typed access to the entity collections.
package repositories

import (
	"github.com/arqioly/arqioly/pkg/kv"
	"github.com/arqioly/arqioly/pkg/models"
)

// Repositories bundles every collection the services work with.
type Repositories struct {
	Prompts       Repository[models.Prompt]
	Versions      Repository[models.PromptVersion]
	Comments      Repository[models.Comment]
	Runs          Repository[models.Run]
	Projects      Repository[models.Project]
	Categories    Repository[models.Category]
	Tags          Repository[models.Tag]
	SystemPrompts Repository[models.SystemPrompt]
	ModelConfigs  Repository[models.ModelConfig]
	Teams         Repository[models.Team]
	TeamMembers   Repository[models.TeamMember]
	Shares        Repository[models.SharedPrompt]
}

// New creates all repositories over the same store.
func New(store kv.Store) *Repositories {
	return &Repositories{
		Prompts:       NewRepository[models.Prompt](store, "prompt"),
		Versions:      NewRepository[models.PromptVersion](store, "prompt version"),
		Comments:      NewRepository[models.Comment](store, "prompt comment"),
		Runs:          NewRepository[models.Run](store, "prompt run"),
		Projects:      NewRepository[models.Project](store, "project"),
		Categories:    NewRepository[models.Category](store, "category"),
		Tags:          NewRepository[models.Tag](store, "tag"),
		SystemPrompts: NewRepository[models.SystemPrompt](store, "system prompt"),
		ModelConfigs:  NewRepository[models.ModelConfig](store, "model config"),
		Teams:         NewRepository[models.Team](store, "team"),
		TeamMembers:   NewRepository[models.TeamMember](store, "team member"),
		Shares:        NewRepository[models.SharedPrompt](store, "shared prompt"),
	}
}
