package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/apperrors"
	"github.com/arqioly/arqioly/pkg/auth"
	"github.com/arqioly/arqioly/pkg/events"
	"github.com/arqioly/arqioly/pkg/models"
	"github.com/arqioly/arqioly/pkg/repositories"
)

// SharedView is the read-only view served for a share token.
type SharedView struct {
	Prompt        models.Prompt         `json:"prompt"`
	ProjectName   string                `json:"project_name,omitempty"`
	CategoryName  string                `json:"category_name,omitempty"`
	TagNames      []string              `json:"tag_names"`
	LatestVersion *models.PromptVersion `json:"latest_version,omitempty"`
	SharedBy      string                `json:"shared_by"`
}

// ShareService manages public share links.
type ShareService interface {
	// CreateShare returns the prompt's existing share or creates one.
	CreateShare(ctx context.Context, promptID string) (*models.SharedPrompt, error)
	GetShareForPrompt(ctx context.Context, promptID string) (*models.SharedPrompt, error)
	RevokeShare(ctx context.Context, token string) error
	GetSharedView(ctx context.Context, token string) (*SharedView, error)
}

type shareService struct {
	repos     *repositories.Repositories
	prompts   PromptService
	publisher events.Publisher
	logger    *zap.Logger
}

// NewShareService creates the service.
func NewShareService(repos *repositories.Repositories, prompts PromptService, publisher events.Publisher, logger *zap.Logger) ShareService {
	return &shareService{repos: repos, prompts: prompts, publisher: publisher, logger: logger.Named("shares")}
}

var _ ShareService = (*shareService)(nil)

func (s *shareService) CreateShare(ctx context.Context, promptID string) (*models.SharedPrompt, error) {
	if _, err := s.repos.Prompts.Get(ctx, promptID); err != nil {
		return nil, err
	}
	token, err := newToken(shareTokenLength)
	if err != nil {
		return nil, err
	}

	var share models.SharedPrompt
	created := false
	err = s.repos.Shares.Mutate(ctx, func(items []models.SharedPrompt) ([]models.SharedPrompt, error) {
		for _, sh := range items {
			if sh.PromptID == promptID {
				share = sh
				return items, nil
			}
		}
		share = models.SharedPrompt{
			ShareToken: token,
			PromptID:   promptID,
			CreatedBy:  auth.GetActor(ctx).ID,
			CreatedAt:  now(),
		}
		created = true
		return append(items, share), nil
	})
	if err != nil {
		return nil, fmt.Errorf("create share: %w", err)
	}

	if created {
		s.logger.Info("Prompt shared", zap.String("prompt_id", promptID))
		publish(ctx, s.publisher, s.logger, events.TopicShareCreated, events.ShareChanged{ShareToken: share.ShareToken, PromptID: promptID})
	}
	return &share, nil
}

func (s *shareService) GetShareForPrompt(ctx context.Context, promptID string) (*models.SharedPrompt, error) {
	shares, err := s.repos.Shares.Find(ctx, func(sh models.SharedPrompt) bool { return sh.PromptID == promptID })
	if err != nil {
		return nil, err
	}
	if len(shares) == 0 {
		return nil, fmt.Errorf("share for prompt %q: %w", promptID, apperrors.ErrNotFound)
	}
	return &shares[0], nil
}

func (s *shareService) RevokeShare(ctx context.Context, token string) error {
	share, err := s.repos.Shares.Get(ctx, token)
	if err != nil {
		return err
	}
	if err := s.repos.Shares.Delete(ctx, token); err != nil {
		return err
	}
	s.logger.Info("Share revoked", zap.String("prompt_id", share.PromptID))
	publish(ctx, s.publisher, s.logger, events.TopicShareRevoked, events.ShareChanged{ShareToken: token, PromptID: share.PromptID})
	return nil
}

func (s *shareService) GetSharedView(ctx context.Context, token string) (*SharedView, error) {
	share, err := s.repos.Shares.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	prompt, err := s.repos.Prompts.Get(ctx, share.PromptID)
	if err != nil {
		return nil, err
	}

	view := &SharedView{Prompt: prompt, TagNames: []string{}, SharedBy: share.CreatedBy}

	if project, err := s.repos.Projects.Get(ctx, prompt.ProjectID); err == nil {
		view.ProjectName = project.Name
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if prompt.CategoryID != "" {
		if category, err := s.repos.Categories.Get(ctx, prompt.CategoryID); err == nil {
			view.CategoryName = category.Name
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}
	if len(prompt.Tags) > 0 {
		tags, err := s.repos.Tags.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, t := range tags {
			if prompt.HasTag(t.ID) {
				view.TagNames = append(view.TagNames, t.Name)
			}
		}
	}

	latest, err := s.prompts.LatestVersion(ctx, prompt.ID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	view.LatestVersion = latest
	return view, nil
}
