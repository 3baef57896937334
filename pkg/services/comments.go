package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/apperrors"
	"github.com/arqioly/arqioly/pkg/auth"
	"github.com/arqioly/arqioly/pkg/models"
	"github.com/arqioly/arqioly/pkg/repositories"
)

// CommentService manages discussion on prompts. Only the author may edit or
// delete a comment.
type CommentService interface {
	ListComments(ctx context.Context, promptID string) ([]models.Comment, error)
	AddComment(ctx context.Context, promptID, versionID, content string) (*models.Comment, error)
	UpdateComment(ctx context.Context, id, content string) (*models.Comment, error)
	DeleteComment(ctx context.Context, id string) error
}

type commentService struct {
	repos  *repositories.Repositories
	logger *zap.Logger
}

// NewCommentService creates the service.
func NewCommentService(repos *repositories.Repositories, logger *zap.Logger) CommentService {
	return &commentService{repos: repos, logger: logger.Named("comments")}
}

var _ CommentService = (*commentService)(nil)

// ListComments returns comments oldest first.
func (s *commentService) ListComments(ctx context.Context, promptID string) ([]models.Comment, error) {
	comments, err := s.repos.Comments.Find(ctx, func(c models.Comment) bool { return c.PromptID == promptID })
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(comments, func(a, b models.Comment) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return comments, nil
}

func (s *commentService) AddComment(ctx context.Context, promptID, versionID, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.Invalid("content", "is required")
	}
	if _, err := s.repos.Prompts.Get(ctx, promptID); err != nil {
		return nil, err
	}
	if versionID != "" {
		v, err := s.repos.Versions.Get(ctx, versionID)
		if err != nil {
			return nil, err
		}
		if v.PromptID != promptID {
			return nil, apperrors.Invalid("version_id", "version belongs to another prompt")
		}
	}

	actor := auth.GetActor(ctx)
	ts := now()
	c := models.Comment{
		ID:         newID(),
		PromptID:   promptID,
		VersionID:  versionID,
		UserID:     actor.ID,
		UserName:   actor.Name,
		UserAvatar: actor.Avatar,
		Content:    content,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
	if err := s.repos.Comments.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	s.logger.Info("Comment added",
		zap.String("prompt_id", promptID),
		zap.String("comment_id", c.ID))
	return &c, nil
}

func (s *commentService) UpdateComment(ctx context.Context, id, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.Invalid("content", "is required")
	}

	actor, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	var out models.Comment
	err = s.repos.Comments.Mutate(ctx, func(items []models.Comment) ([]models.Comment, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			if items[i].UserID != actor.ID {
				return nil, fmt.Errorf("only the author can edit a comment: %w", apperrors.ErrForbidden)
			}
			items[i].Content = content
			items[i].UpdatedAt = now()
			out = items[i]
			return items, nil
		}
		return nil, fmt.Errorf("comment %q: %w", id, apperrors.ErrNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *commentService) DeleteComment(ctx context.Context, id string) error {
	actor, err := auth.RequireActor(ctx)
	if err != nil {
		return err
	}
	err = s.repos.Comments.Mutate(ctx, func(items []models.Comment) ([]models.Comment, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			if items[i].UserID != actor.ID {
				return nil, fmt.Errorf("only the author can delete a comment: %w", apperrors.ErrForbidden)
			}
			return append(items[:i], items[i+1:]...), nil
		}
		return nil, fmt.Errorf("comment %q: %w", id, apperrors.ErrNotFound)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Comment deleted", zap.String("comment_id", id))
	return nil
}
