package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/apperrors"
	"github.com/arqioly/arqioly/pkg/models"
	"github.com/arqioly/arqioly/pkg/repositories"
	"github.com/arqioly/arqioly/pkg/resolver"
)

// ResolveRequest identifies what to resolve configuration for. The override
// fields describe unsaved editor state and replace the stored prompt's
// references when non-nil. An empty ProjectID or CategoryID clears the
// reference and an empty TagIDs slice clears the tags.
type ResolveRequest struct {
	PromptID   string   `json:"prompt_id,omitempty"`
	ProjectID  *string  `json:"project_id,omitempty"`
	CategoryID *string  `json:"category_id,omitempty"`
	TagIDs     []string `json:"tag_ids,omitempty"`
}

// SystemPromptSelection chooses how a system prompt is picked for execution.
type SystemPromptSelection string

const (
	// SelectionNone sends no system prompt.
	SelectionNone SystemPromptSelection = "none"
	// SelectionDefault uses the resolved system prompt.
	SelectionDefault SystemPromptSelection = "default"
)

// ResolvedSystemPrompt is a resolution result with the matched scope.
type ResolvedSystemPrompt struct {
	SystemPrompt models.SystemPrompt `json:"system_prompt"`
	Level        models.ScopeType    `json:"level,omitempty"`
	IsDefault    bool                `json:"is_default"`
}

// ResolvedModelConfig is a resolution result with the matched scope.
type ResolvedModelConfig struct {
	ModelConfig models.ModelConfig `json:"model_config"`
	Level       models.ScopeType   `json:"level,omitempty"`
	IsDefault   bool               `json:"is_default"`
}

// ResolutionService loads a prompt's context and runs the scope resolver.
type ResolutionService interface {
	ResolveSystemPrompt(ctx context.Context, req ResolveRequest) (*ResolvedSystemPrompt, error)
	ResolveModelConfig(ctx context.Context, req ResolveRequest) (*ResolvedModelConfig, error)

	// SystemPromptForSelection returns nil for SelectionNone, the resolved
	// prompt for SelectionDefault, and otherwise the system prompt with that id.
	SystemPromptForSelection(ctx context.Context, selection SystemPromptSelection, req ResolveRequest) (*models.SystemPrompt, error)
}

type resolutionService struct {
	repos  *repositories.Repositories
	logger *zap.Logger
}

// NewResolutionService creates the service.
func NewResolutionService(repos *repositories.Repositories, logger *zap.Logger) ResolutionService {
	return &resolutionService{repos: repos, logger: logger.Named("resolution")}
}

var _ ResolutionService = (*resolutionService)(nil)

// target materializes the resolver input. References to entities that no
// longer exist are dropped so the resolver skips those levels.
func (s *resolutionService) target(ctx context.Context, req ResolveRequest) (resolver.Target, error) {
	var t resolver.Target
	if req.PromptID == "" {
		return t, nil
	}

	prompt, err := s.repos.Prompts.Get(ctx, req.PromptID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return t, nil
	}
	if err != nil {
		return t, fmt.Errorf("load prompt: %w", err)
	}

	projectID, categoryID, tagIDs := prompt.ProjectID, prompt.CategoryID, prompt.Tags
	if req.ProjectID != nil {
		projectID = *req.ProjectID
	}
	if req.CategoryID != nil {
		categoryID = *req.CategoryID
	}
	if req.TagIDs != nil {
		tagIDs = req.TagIDs
	}
	t.Prompt = &prompt

	if projectID != "" {
		p, err := s.repos.Projects.Get(ctx, projectID)
		switch {
		case err == nil:
			t.Project = &p
		case !errors.Is(err, apperrors.ErrNotFound):
			return t, fmt.Errorf("load project: %w", err)
		}
	}

	if categoryID != "" {
		c, err := s.repos.Categories.Get(ctx, categoryID)
		switch {
		case err == nil:
			t.Category = &c
		case !errors.Is(err, apperrors.ErrNotFound):
			return t, fmt.Errorf("load category: %w", err)
		}
	}

	if len(tagIDs) > 0 {
		tags, err := s.repos.Tags.List(ctx)
		if err != nil {
			return t, fmt.Errorf("load tags: %w", err)
		}
		byID := make(map[string]models.Tag, len(tags))
		for _, tag := range tags {
			byID[tag.ID] = tag
		}
		for _, id := range tagIDs {
			if tag, ok := byID[id]; ok {
				t.Tags = append(t.Tags, tag)
			}
		}
	}

	return t, nil
}

func (s *resolutionService) ResolveSystemPrompt(ctx context.Context, req ResolveRequest) (*ResolvedSystemPrompt, error) {
	target, err := s.target(ctx, req)
	if err != nil {
		return nil, err
	}
	var all []models.SystemPrompt
	if target.Prompt != nil {
		if all, err = s.repos.SystemPrompts.List(ctx); err != nil {
			return nil, fmt.Errorf("load system prompts: %w", err)
		}
	}

	res := resolver.SystemPrompt(target, all)
	s.logger.Debug("Resolved system prompt",
		zap.String("prompt_id", req.PromptID),
		zap.String("system_prompt_id", res.Value.ID),
		zap.String("level", string(res.Level)),
		zap.Bool("is_default", res.IsDefault))

	return &ResolvedSystemPrompt{SystemPrompt: res.Value, Level: res.Level, IsDefault: res.IsDefault}, nil
}

func (s *resolutionService) ResolveModelConfig(ctx context.Context, req ResolveRequest) (*ResolvedModelConfig, error) {
	target, err := s.target(ctx, req)
	if err != nil {
		return nil, err
	}
	var all []models.ModelConfig
	if target.Prompt != nil {
		if all, err = s.repos.ModelConfigs.List(ctx); err != nil {
			return nil, fmt.Errorf("load model configs: %w", err)
		}
	}

	res := resolver.ModelConfig(target, all)
	s.logger.Debug("Resolved model config",
		zap.String("prompt_id", req.PromptID),
		zap.String("model_config_id", res.Value.ID),
		zap.String("model", res.Value.ModelName),
		zap.String("level", string(res.Level)),
		zap.Bool("is_default", res.IsDefault))

	return &ResolvedModelConfig{ModelConfig: res.Value, Level: res.Level, IsDefault: res.IsDefault}, nil
}

func (s *resolutionService) SystemPromptForSelection(ctx context.Context, selection SystemPromptSelection, req ResolveRequest) (*models.SystemPrompt, error) {
	switch selection {
	case SelectionNone:
		return nil, nil
	case SelectionDefault, "":
		res, err := s.ResolveSystemPrompt(ctx, req)
		if err != nil {
			return nil, err
		}
		return &res.SystemPrompt, nil
	}

	sp, err := s.repos.SystemPrompts.Get(ctx, string(selection))
	if err != nil {
		return nil, err
	}
	return &sp, nil
}
