package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/apperrors"
	"github.com/arqioly/arqioly/pkg/auth"
	"github.com/arqioly/arqioly/pkg/events"
	"github.com/arqioly/arqioly/pkg/llm"
	"github.com/arqioly/arqioly/pkg/logging"
	"github.com/arqioly/arqioly/pkg/models"
	"github.com/arqioly/arqioly/pkg/placeholders"
	"github.com/arqioly/arqioly/pkg/repositories"
)

// ImprovedVersionNote is the change note of versions saved from Improve.
const ImprovedVersionNote = "Improved by AI"

// improveInstruction wraps the content sent for improvement.
const improveInstruction = "Improve this prompt:\n\n%s\n\nProvide only the improved prompt text, without any explanations or meta-commentary."

// ImproveRequest asks the LLM to rewrite prompt content. Content overrides the
// stored prompt content when set, so unsaved editor text can be improved.
type ImproveRequest struct {
	ResolveRequest
	Content string `json:"content,omitempty"`
	// Save stores the result as a new version of the prompt.
	Save bool `json:"save"`
}

// ImproveResult is the rewritten prompt and the configuration that produced it.
type ImproveResult struct {
	Improved       string                `json:"improved"`
	SystemPromptID string                `json:"system_prompt_id"`
	ModelConfig    models.ModelConfig    `json:"model_config"`
	Version        *models.PromptVersion `json:"version,omitempty"`
}

// ExecuteRequest runs a prompt against its resolved model.
type ExecuteRequest struct {
	PromptID string            `json:"prompt_id" validate:"required"`
	Values   map[string]string `json:"values"`
	// SystemPrompt selects none, default or a system prompt id.
	SystemPrompt SystemPromptSelection `json:"system_prompt"`
	// ModelConfigID overrides the resolved model config.
	ModelConfigID string `json:"model_config_id,omitempty"`
}

// AssistService calls LLMs on behalf of prompts.
type AssistService interface {
	Improve(ctx context.Context, req ImproveRequest) (*ImproveResult, error)
	// Execute runs the prompt and records a Run. A failed LLM call still
	// records a failed Run and returns it together with the error.
	Execute(ctx context.Context, req ExecuteRequest) (*models.Run, error)
	ListRuns(ctx context.Context, promptID string) ([]models.Run, error)
}

type assistService struct {
	repos      *repositories.Repositories
	prompts    PromptService
	resolution ResolutionService
	llm        llm.LLMClientFactory
	publisher  events.Publisher
	logger     *zap.Logger
}

// NewAssistService creates the service.
func NewAssistService(
	repos *repositories.Repositories,
	prompts PromptService,
	resolution ResolutionService,
	llmFactory llm.LLMClientFactory,
	publisher events.Publisher,
	logger *zap.Logger,
) AssistService {
	return &assistService{
		repos:      repos,
		prompts:    prompts,
		resolution: resolution,
		llm:        llmFactory,
		publisher:  publisher,
		logger:     logger.Named("assist"),
	}
}

var _ AssistService = (*assistService)(nil)

// wrapLLMError maps provider configuration problems to ErrUnavailable.
func wrapLLMError(err error) error {
	if errors.Is(err, llm.ErrProviderUnavailable) {
		return fmt.Errorf("%w: %w", apperrors.ErrUnavailable, err)
	}
	return err
}

func (s *assistService) Improve(ctx context.Context, req ImproveRequest) (*ImproveResult, error) {
	content := req.Content
	if content == "" && req.PromptID != "" {
		p, err := s.repos.Prompts.Get(ctx, req.PromptID)
		if err != nil {
			return nil, err
		}
		content = p.Content
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.Invalid("content", "is required")
	}
	if req.Save && req.PromptID == "" {
		return nil, apperrors.Invalid("prompt_id", "is required to save the improvement")
	}

	sp, err := s.resolution.ResolveSystemPrompt(ctx, req.ResolveRequest)
	if err != nil {
		return nil, err
	}
	mc, err := s.resolution.ResolveModelConfig(ctx, req.ResolveRequest)
	if err != nil {
		return nil, err
	}

	client, err := s.llm.CreateForModel(ctx, mc.ModelConfig.ModelParams)
	if err != nil {
		return nil, wrapLLMError(err)
	}

	resp, err := client.GenerateResponse(ctx, llm.GenerateRequest{
		SystemPrompt: sp.SystemPrompt.Content,
		Prompt:       fmt.Sprintf(improveInstruction, content),
		Temperature:  mc.ModelConfig.Temperature,
		MaxTokens:    mc.ModelConfig.MaxTokens,
	})
	if err != nil {
		s.logger.Error("Prompt improvement failed",
			zap.String("prompt_id", req.PromptID),
			zap.String("model", mc.ModelConfig.ModelName),
			zap.String("error", logging.SanitizeError(err)))
		return nil, wrapLLMError(err)
	}

	result := &ImproveResult{
		Improved:       strings.TrimSpace(resp.Content),
		SystemPromptID: sp.SystemPrompt.ID,
		ModelConfig:    mc.ModelConfig,
	}

	if req.Save {
		source, err := s.prompts.LatestVersion(ctx, req.PromptID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		p, err := s.prompts.GetPrompt(ctx, req.PromptID)
		if err != nil {
			return nil, err
		}
		in := PromptInput{
			Title:        p.Title,
			Description:  p.Description,
			Content:      result.Improved,
			ProjectID:    p.ProjectID,
			CategoryID:   p.CategoryID,
			Tags:         p.Tags,
			ChangeNote:   ImprovedVersionNote,
			ExposedToMCP: &p.ExposedToMCP,
		}
		if source != nil {
			in.ImprovedFrom = source.ID
		}
		if _, err := s.prompts.UpdatePrompt(ctx, req.PromptID, in); err != nil {
			return nil, err
		}
		if result.Version, err = s.prompts.LatestVersion(ctx, req.PromptID); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Prompt improved",
		zap.String("prompt_id", req.PromptID),
		zap.String("model", mc.ModelConfig.ModelName),
		zap.Bool("saved", req.Save))
	improved := events.PromptImproved{PromptID: req.PromptID, Model: mc.ModelConfig.ModelName}
	if result.Version != nil {
		improved.VersionID = result.Version.ID
	}
	publish(ctx, s.publisher, s.logger, events.TopicPromptImproved, improved)
	return result, nil
}

func (s *assistService) Execute(ctx context.Context, req ExecuteRequest) (*models.Run, error) {
	prompt, err := s.repos.Prompts.Get(ctx, req.PromptID)
	if err != nil {
		return nil, err
	}
	version, err := s.prompts.LatestVersion(ctx, prompt.ID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	resolveReq := ResolveRequest{PromptID: prompt.ID}
	sp, err := s.resolution.SystemPromptForSelection(ctx, req.SystemPrompt, resolveReq)
	if err != nil {
		return nil, err
	}

	var mc models.ModelConfig
	if req.ModelConfigID != "" {
		if mc, err = s.repos.ModelConfigs.Get(ctx, req.ModelConfigID); err != nil {
			return nil, err
		}
	} else {
		resolved, err := s.resolution.ResolveModelConfig(ctx, resolveReq)
		if err != nil {
			return nil, err
		}
		mc = resolved.ModelConfig
	}

	input := placeholders.Replace(prompt.Content, req.Values)
	run := models.Run{
		ID:        newID(),
		PromptID:  prompt.ID,
		Input:     input,
		Status:    models.RunPending,
		Provider:  string(mc.Provider),
		Model:     mc.ModelName,
		CreatedBy: auth.GetActor(ctx).ID,
		CreatedAt: now(),
	}
	if version != nil {
		run.PromptVersionID = version.ID
	}

	genReq := llm.GenerateRequest{
		Prompt:      input,
		Temperature: mc.Temperature,
		MaxTokens:   mc.MaxTokens,
	}
	if sp != nil {
		genReq.SystemPrompt = sp.Content
	}

	var callErr error
	client, err := s.llm.CreateForModel(ctx, mc.ModelParams)
	if err != nil {
		callErr = err
	} else {
		resp, err := client.GenerateResponse(ctx, genReq)
		if err != nil {
			callErr = err
		} else {
			run.Output = resp.Content
		}
	}

	if callErr != nil {
		run.Status = models.RunFailed
		run.Error = logging.SanitizeError(callErr)
	} else {
		run.Status = models.RunSuccess
	}

	if err := s.repos.Runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}

	s.logger.Info("Prompt executed",
		zap.String("prompt_id", prompt.ID),
		zap.String("run_id", run.ID),
		zap.String("model", run.Model),
		zap.String("status", string(run.Status)))
	publish(ctx, s.publisher, s.logger, events.TopicPromptExecuted, events.PromptExecuted{Run: &run})

	if callErr != nil {
		return &run, wrapLLMError(callErr)
	}
	return &run, nil
}

// ListRuns returns a prompt's runs newest first.
func (s *assistService) ListRuns(ctx context.Context, promptID string) ([]models.Run, error) {
	runs, err := s.repos.Runs.Find(ctx, func(r models.Run) bool { return r.PromptID == promptID })
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}
	return runs, nil
}
