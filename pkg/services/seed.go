package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/events"
	"github.com/arqioly/arqioly/pkg/models"
	"github.com/arqioly/arqioly/pkg/repositories"
)

// SeedResult reports what InitializeDefaults created.
type SeedResult struct {
	ProjectID     string `json:"project_id,omitempty"`
	Projects      int    `json:"projects"`
	Categories    int    `json:"categories"`
	Tags          int    `json:"tags"`
	SystemPrompts int    `json:"system_prompts"`
}

// Created reports whether anything was written.
func (r SeedResult) Created() bool {
	return r.Projects+r.Categories+r.Tags+r.SystemPrompts > 0
}

// Seeder creates the default catalog on an empty store.
type Seeder struct {
	repos     *repositories.Repositories
	publisher events.Publisher
	logger    *zap.Logger
}

// NewSeeder creates a seeder.
func NewSeeder(repos *repositories.Repositories, publisher events.Publisher, logger *zap.Logger) *Seeder {
	return &Seeder{repos: repos, publisher: publisher, logger: logger.Named("seed")}
}

// InitializeDefaults creates the default project with its categories, the
// default tags, and category-scoped system prompts. Running it again only
// fills in what is missing.
func (s *Seeder) InitializeDefaults(ctx context.Context) (*SeedResult, error) {
	d, err := LoadDefaults()
	if err != nil {
		return nil, err
	}
	result := &SeedResult{}

	// Project: reuse an existing one with the default name.
	var project models.Project
	err = s.repos.Projects.Mutate(ctx, func(items []models.Project) ([]models.Project, error) {
		for _, p := range items {
			if strings.EqualFold(p.Name, d.Project.Name) {
				project = p
				return items, nil
			}
		}
		project = models.Project{
			ID:          newID(),
			Name:        d.Project.Name,
			Description: d.Project.Description,
			Color:       d.Project.Color,
		}
		result.Projects = 1
		return append(items, project), nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed project: %w", err)
	}
	result.ProjectID = project.ID

	categoryIDs := make(map[string]string, len(d.Categories))
	err = s.repos.Categories.Mutate(ctx, func(items []models.Category) ([]models.Category, error) {
		result.Categories = 0
		for _, c := range items {
			if c.ProjectID == project.ID {
				categoryIDs[strings.ToLower(c.Name)] = c.ID
			}
		}
		for _, dc := range d.Categories {
			if _, ok := categoryIDs[strings.ToLower(dc.Name)]; ok {
				continue
			}
			c := models.Category{ID: newID(), ProjectID: project.ID, Name: dc.Name, Description: dc.Description}
			items = append(items, c)
			categoryIDs[strings.ToLower(dc.Name)] = c.ID
			result.Categories++
		}
		return items, nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed categories: %w", err)
	}

	err = s.repos.Tags.Mutate(ctx, func(items []models.Tag) ([]models.Tag, error) {
		result.Tags = 0
		for _, dt := range d.Tags {
			exists := false
			for _, t := range items {
				if strings.EqualFold(t.Name, dt.Name) {
					exists = true
					break
				}
			}
			if !exists {
				items = append(items, models.Tag{ID: newID(), Name: dt.Name, Color: dt.Color})
				result.Tags++
			}
		}
		return items, nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed tags: %w", err)
	}

	err = s.repos.SystemPrompts.Mutate(ctx, func(items []models.SystemPrompt) ([]models.SystemPrompt, error) {
		result.SystemPrompts = 0
		ts := now()
		for _, dsp := range d.SystemPrompts {
			categoryID, ok := categoryIDs[strings.ToLower(dsp.Category)]
			if !ok {
				continue
			}
			exists := false
			for _, sp := range items {
				if sp.ScopeType == models.ScopeCategory && sp.ScopeID == categoryID {
					exists = true
					break
				}
			}
			if exists {
				continue
			}
			items = append(items, models.SystemPrompt{
				ID:        newID(),
				Name:      dsp.Name,
				Content:   strings.TrimSpace(dsp.Content),
				ScopeType: models.ScopeCategory,
				ScopeID:   categoryID,
				Priority:  dsp.Priority,
				CreatedBy: "system",
				CreatedAt: ts,
				UpdatedAt: ts,
			})
			result.SystemPrompts++
		}
		return items, nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed system prompts: %w", err)
	}

	if result.Created() {
		s.logger.Info("Defaults initialized",
			zap.String("project_id", result.ProjectID),
			zap.Int("projects", result.Projects),
			zap.Int("categories", result.Categories),
			zap.Int("tags", result.Tags),
			zap.Int("system_prompts", result.SystemPrompts))
		publish(ctx, s.publisher, s.logger, events.TopicDefaultsSeeded, result)
	} else {
		s.logger.Debug("Defaults already present")
	}
	return result, nil
}
