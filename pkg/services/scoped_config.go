package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/apperrors"
	"github.com/arqioly/arqioly/pkg/auth"
	"github.com/arqioly/arqioly/pkg/events"
	"github.com/arqioly/arqioly/pkg/models"
	"github.com/arqioly/arqioly/pkg/repositories"
)

// ScopeFilter narrows a scoped configuration listing. Empty fields match everything.
type ScopeFilter struct {
	ScopeType models.ScopeType
	ScopeID   string
}

func (f ScopeFilter) matches(ref models.ScopeRef) bool {
	if f.ScopeType != "" && ref.Type != f.ScopeType {
		return false
	}
	if f.ScopeID != "" && ref.ID != f.ScopeID {
		return false
	}
	return true
}

// SystemPromptInput is the writable part of a system prompt.
type SystemPromptInput struct {
	Name      string           `json:"name"`
	Content   string           `json:"content"`
	ScopeType models.ScopeType `json:"scope_type"`
	ScopeID   string           `json:"scope_id,omitempty"`
	Priority  int              `json:"priority"`
}

// ModelConfigInput is the writable part of a model configuration.
type ModelConfigInput struct {
	Name string `json:"name"`
	models.ModelParams
	ScopeType models.ScopeType `json:"scope_type"`
	ScopeID   string           `json:"scope_id,omitempty"`
	Priority  int              `json:"priority"`
}

// ScopedConfigService manages system prompts and model configurations.
type ScopedConfigService interface {
	ListSystemPrompts(ctx context.Context, filter ScopeFilter) ([]models.SystemPrompt, error)
	GetSystemPrompt(ctx context.Context, id string) (*models.SystemPrompt, error)
	CreateSystemPrompt(ctx context.Context, in SystemPromptInput) (*models.SystemPrompt, error)
	UpdateSystemPrompt(ctx context.Context, id string, in SystemPromptInput) (*models.SystemPrompt, error)
	DeleteSystemPrompt(ctx context.Context, id string) error

	ListModelConfigs(ctx context.Context, filter ScopeFilter) ([]models.ModelConfig, error)
	GetModelConfig(ctx context.Context, id string) (*models.ModelConfig, error)
	CreateModelConfig(ctx context.Context, in ModelConfigInput) (*models.ModelConfig, error)
	UpdateModelConfig(ctx context.Context, id string, in ModelConfigInput) (*models.ModelConfig, error)
	DeleteModelConfig(ctx context.Context, id string) error
}

type scopedConfigService struct {
	systemPrompts repositories.Repository[models.SystemPrompt]
	modelConfigs  repositories.Repository[models.ModelConfig]
	publisher     events.Publisher
	logger        *zap.Logger
}

// NewScopedConfigService creates the service.
func NewScopedConfigService(repos *repositories.Repositories, publisher events.Publisher, logger *zap.Logger) ScopedConfigService {
	return &scopedConfigService{
		systemPrompts: repos.SystemPrompts,
		modelConfigs:  repos.ModelConfigs,
		publisher:     publisher,
		logger:        logger.Named("scoped-config"),
	}
}

var _ ScopedConfigService = (*scopedConfigService)(nil)

// normalizeScope validates the scope and clears the scope id for team scope.
func normalizeScope(scopeType models.ScopeType, scopeID string) (string, error) {
	if !scopeType.IsValid() {
		return "", apperrors.Invalid("scope_type", fmt.Sprintf("must be one of team, project, category, tag, prompt; got %q", scopeType))
	}
	scopeID = strings.TrimSpace(scopeID)
	if scopeType == models.ScopeTeam {
		return "", nil
	}
	if scopeID == "" {
		return "", apperrors.Invalid("scope_id", fmt.Sprintf("required for %s scope", scopeType))
	}
	return scopeID, nil
}

func validateSystemPrompt(in *SystemPromptInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return apperrors.Invalid("name", "is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return apperrors.Invalid("content", "is required")
	}
	scopeID, err := normalizeScope(in.ScopeType, in.ScopeID)
	if err != nil {
		return err
	}
	in.ScopeID = scopeID
	return nil
}

func validateModelConfig(in *ModelConfigInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return apperrors.Invalid("name", "is required")
	}
	if !in.Provider.IsValid() {
		return apperrors.Invalid("provider", fmt.Sprintf("unknown provider %q", in.Provider))
	}
	if strings.TrimSpace(in.ModelName) == "" {
		return apperrors.Invalid("model_name", "is required")
	}
	if in.Temperature < 0 || in.Temperature > 2 {
		return apperrors.Invalid("temperature", "must be between 0 and 2")
	}
	if in.MaxTokens <= 0 {
		return apperrors.Invalid("max_tokens", "must be positive")
	}
	scopeID, err := normalizeScope(in.ScopeType, in.ScopeID)
	if err != nil {
		return err
	}
	in.ScopeID = scopeID
	return nil
}

// checkTeamDefault fails when another team-scoped config exists. Team scope
// is the global fallback and only one per kind is allowed.
func checkTeamDefault[T interface {
	repositories.Entity
	ScopeRef() models.ScopeRef
}](items []T, id string, kind string) error {
	for _, item := range items {
		if item.GetID() != id && item.ScopeRef().Type == models.ScopeTeam {
			return fmt.Errorf("a team default %s already exists (%s): %w", kind, item.GetID(), apperrors.ErrConflict)
		}
	}
	return nil
}

func (s *scopedConfigService) ListSystemPrompts(ctx context.Context, filter ScopeFilter) ([]models.SystemPrompt, error) {
	return s.systemPrompts.Find(ctx, func(p models.SystemPrompt) bool { return filter.matches(p.ScopeRef()) })
}

func (s *scopedConfigService) GetSystemPrompt(ctx context.Context, id string) (*models.SystemPrompt, error) {
	p, err := s.systemPrompts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *scopedConfigService) CreateSystemPrompt(ctx context.Context, in SystemPromptInput) (*models.SystemPrompt, error) {
	if err := validateSystemPrompt(&in); err != nil {
		return nil, err
	}

	ts := now()
	sp := models.SystemPrompt{
		ID:        newID(),
		Name:      in.Name,
		Content:   in.Content,
		ScopeType: in.ScopeType,
		ScopeID:   in.ScopeID,
		Priority:  in.Priority,
		CreatedBy: auth.GetActor(ctx).ID,
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	err := s.systemPrompts.Mutate(ctx, func(items []models.SystemPrompt) ([]models.SystemPrompt, error) {
		if sp.ScopeType == models.ScopeTeam {
			if err := checkTeamDefault(items, sp.ID, "system prompt"); err != nil {
				return nil, err
			}
		}
		return append(items, sp), nil
	})
	if err != nil {
		return nil, fmt.Errorf("create system prompt: %w", err)
	}

	s.logger.Info("System prompt created",
		zap.String("system_prompt_id", sp.ID),
		zap.String("scope_type", string(sp.ScopeType)),
		zap.String("scope_id", sp.ScopeID))
	s.configChanged(ctx, "system_prompt", sp.ID, sp.ScopeRef(), false)
	return &sp, nil
}

func (s *scopedConfigService) UpdateSystemPrompt(ctx context.Context, id string, in SystemPromptInput) (*models.SystemPrompt, error) {
	if err := validateSystemPrompt(&in); err != nil {
		return nil, err
	}

	var updated models.SystemPrompt
	err := s.systemPrompts.Mutate(ctx, func(items []models.SystemPrompt) ([]models.SystemPrompt, error) {
		idx := -1
		for i := range items {
			if items[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("system prompt %q: %w", id, apperrors.ErrNotFound)
		}
		if in.ScopeType == models.ScopeTeam {
			if err := checkTeamDefault(items, id, "system prompt"); err != nil {
				return nil, err
			}
		}
		sp := items[idx]
		sp.Name = in.Name
		sp.Content = in.Content
		sp.ScopeType = in.ScopeType
		sp.ScopeID = in.ScopeID
		sp.Priority = in.Priority
		sp.UpdatedAt = now()
		items[idx] = sp
		updated = sp
		return items, nil
	})
	if err != nil {
		return nil, fmt.Errorf("update system prompt: %w", err)
	}

	s.logger.Info("System prompt updated", zap.String("system_prompt_id", id))
	s.configChanged(ctx, "system_prompt", id, updated.ScopeRef(), false)
	return &updated, nil
}

func (s *scopedConfigService) DeleteSystemPrompt(ctx context.Context, id string) error {
	sp, err := s.systemPrompts.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.systemPrompts.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete system prompt: %w", err)
	}

	s.logger.Info("System prompt deleted", zap.String("system_prompt_id", id))
	s.configChanged(ctx, "system_prompt", id, sp.ScopeRef(), true)
	return nil
}

func (s *scopedConfigService) ListModelConfigs(ctx context.Context, filter ScopeFilter) ([]models.ModelConfig, error) {
	return s.modelConfigs.Find(ctx, func(m models.ModelConfig) bool { return filter.matches(m.ScopeRef()) })
}

func (s *scopedConfigService) GetModelConfig(ctx context.Context, id string) (*models.ModelConfig, error) {
	m, err := s.modelConfigs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *scopedConfigService) CreateModelConfig(ctx context.Context, in ModelConfigInput) (*models.ModelConfig, error) {
	if err := validateModelConfig(&in); err != nil {
		return nil, err
	}

	mc := models.ModelConfig{
		ID:          newID(),
		Name:        in.Name,
		ModelParams: in.ModelParams,
		ScopeType:   in.ScopeType,
		ScopeID:     in.ScopeID,
		Priority:    in.Priority,
		CreatedBy:   auth.GetActor(ctx).ID,
		CreatedAt:   now(),
	}

	err := s.modelConfigs.Mutate(ctx, func(items []models.ModelConfig) ([]models.ModelConfig, error) {
		if mc.ScopeType == models.ScopeTeam {
			if err := checkTeamDefault(items, mc.ID, "model config"); err != nil {
				return nil, err
			}
		}
		return append(items, mc), nil
	})
	if err != nil {
		return nil, fmt.Errorf("create model config: %w", err)
	}

	s.logger.Info("Model config created",
		zap.String("model_config_id", mc.ID),
		zap.String("provider", string(mc.Provider)),
		zap.String("model", mc.ModelName),
		zap.String("scope_type", string(mc.ScopeType)))
	s.configChanged(ctx, "model_config", mc.ID, mc.ScopeRef(), false)
	return &mc, nil
}

func (s *scopedConfigService) UpdateModelConfig(ctx context.Context, id string, in ModelConfigInput) (*models.ModelConfig, error) {
	if err := validateModelConfig(&in); err != nil {
		return nil, err
	}

	var updated models.ModelConfig
	err := s.modelConfigs.Mutate(ctx, func(items []models.ModelConfig) ([]models.ModelConfig, error) {
		idx := -1
		for i := range items {
			if items[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("model config %q: %w", id, apperrors.ErrNotFound)
		}
		if in.ScopeType == models.ScopeTeam {
			if err := checkTeamDefault(items, id, "model config"); err != nil {
				return nil, err
			}
		}
		mc := items[idx]
		mc.Name = in.Name
		mc.ModelParams = in.ModelParams
		mc.ScopeType = in.ScopeType
		mc.ScopeID = in.ScopeID
		mc.Priority = in.Priority
		items[idx] = mc
		updated = mc
		return items, nil
	})
	if err != nil {
		return nil, fmt.Errorf("update model config: %w", err)
	}

	s.logger.Info("Model config updated", zap.String("model_config_id", id))
	s.configChanged(ctx, "model_config", id, updated.ScopeRef(), false)
	return &updated, nil
}

func (s *scopedConfigService) DeleteModelConfig(ctx context.Context, id string) error {
	mc, err := s.modelConfigs.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.modelConfigs.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete model config: %w", err)
	}

	s.logger.Info("Model config deleted", zap.String("model_config_id", id))
	s.configChanged(ctx, "model_config", id, mc.ScopeRef(), true)
	return nil
}

func (s *scopedConfigService) configChanged(ctx context.Context, kind, id string, ref models.ScopeRef, deleted bool) {
	publish(ctx, s.publisher, s.logger, events.TopicConfigChanged, events.ConfigChanged{
		Kind:      kind,
		ID:        id,
		ScopeType: ref.Type,
		ScopeID:   ref.ID,
		Deleted:   deleted,
	})
}
