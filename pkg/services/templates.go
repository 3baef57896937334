package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/apperrors"
	"github.com/arqioly/arqioly/pkg/models"
	"github.com/arqioly/arqioly/pkg/placeholders"
	"github.com/arqioly/arqioly/pkg/repositories"
)

// TemplateInfo is a catalog entry with its placeholders listed.
type TemplateInfo struct {
	Template
	Placeholders []string `json:"placeholders"`
}

// TemplateService exposes the built-in prompt templates.
type TemplateService interface {
	// ListTemplates returns templates, optionally limited to one category name.
	ListTemplates(ctx context.Context, category string) ([]TemplateInfo, error)
	// Instantiate creates a prompt from the template titled title in project.
	// The category is matched by name within the project and tags are found or
	// created by name.
	Instantiate(ctx context.Context, title, projectID string) (*models.Prompt, error)
}

type templateService struct {
	repos   *repositories.Repositories
	prompts PromptService
	logger  *zap.Logger
}

// NewTemplateService creates the service.
func NewTemplateService(repos *repositories.Repositories, prompts PromptService, logger *zap.Logger) TemplateService {
	return &templateService{repos: repos, prompts: prompts, logger: logger.Named("templates")}
}

var _ TemplateService = (*templateService)(nil)

func (s *templateService) ListTemplates(ctx context.Context, category string) ([]TemplateInfo, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}
	out := make([]TemplateInfo, 0, len(templates))
	for _, t := range templates {
		if category != "" && !strings.EqualFold(t.Category, category) {
			continue
		}
		names := placeholders.Extract(t.Content)
		if names == nil {
			names = []string{}
		}
		out = append(out, TemplateInfo{Template: t, Placeholders: names})
	}
	return out, nil
}

func findTemplate(title string) (*Template, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}
	for i := range templates {
		if strings.EqualFold(templates[i].Title, title) {
			return &templates[i], nil
		}
	}
	return nil, fmt.Errorf("template %q: %w", title, apperrors.ErrNotFound)
}

func (s *templateService) Instantiate(ctx context.Context, title, projectID string) (*models.Prompt, error) {
	tmpl, err := findTemplate(title)
	if err != nil {
		return nil, err
	}
	if _, err := s.repos.Projects.Get(ctx, projectID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Invalid("project_id", "project does not exist")
		}
		return nil, err
	}

	categories, err := s.repos.Categories.Find(ctx, func(c models.Category) bool {
		return c.ProjectID == projectID && strings.EqualFold(c.Name, tmpl.Category)
	})
	if err != nil {
		return nil, err
	}
	var categoryID string
	if len(categories) > 0 {
		categoryID = categories[0].ID
	}

	tagIDs, err := ensureTags(ctx, s.repos.Tags, tmpl.Tags)
	if err != nil {
		return nil, err
	}

	p, err := s.prompts.CreatePrompt(ctx, PromptInput{
		Title:       tmpl.Title,
		Description: tmpl.Description,
		Content:     tmpl.Content,
		ProjectID:   projectID,
		CategoryID:  categoryID,
		Tags:        tagIDs,
		ChangeNote:  "Created from template",
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Prompt created from template",
		zap.String("template", tmpl.Title),
		zap.String("prompt_id", p.ID))
	return p, nil
}

// ensureTags maps names to tag ids, creating missing tags in one update.
func ensureTags(ctx context.Context, repo repositories.Repository[models.Tag], names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var ids []string
	err := repo.Mutate(ctx, func(items []models.Tag) ([]models.Tag, error) {
		ids = ids[:0]
		for _, name := range names {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			found := ""
			for _, t := range items {
				if strings.EqualFold(t.Name, name) {
					found = t.ID
					break
				}
			}
			if found == "" {
				t := models.Tag{ID: newID(), Name: name, Color: models.PaletteColor(len(items))}
				items = append(items, t)
				found = t.ID
			}
			ids = append(ids, found)
		}
		return items, nil
	})
	if err != nil {
		return nil, fmt.Errorf("ensure tags: %w", err)
	}
	return dedupe(ids), nil
}
