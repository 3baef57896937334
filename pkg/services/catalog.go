package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/apperrors"
	"github.com/arqioly/arqioly/pkg/events"
	"github.com/arqioly/arqioly/pkg/models"
	"github.com/arqioly/arqioly/pkg/repositories"
)

// ProjectInput is the writable part of a project. An empty color is assigned
// from the palette.
type ProjectInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Color       string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// CategoryInput is the writable part of a category.
type CategoryInput struct {
	ProjectID   string `json:"project_id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// TagInput is the writable part of a tag.
type TagInput struct {
	Name  string `json:"name" validate:"required"`
	Color string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// CatalogService manages projects, categories and tags.
type CatalogService interface {
	ListProjects(ctx context.Context) ([]models.Project, error)
	GetProject(ctx context.Context, id string) (*models.Project, error)
	CreateProject(ctx context.Context, in ProjectInput) (*models.Project, error)
	UpdateProject(ctx context.Context, id string, in ProjectInput) (*models.Project, error)
	// DeleteProject removes the project and its categories.
	DeleteProject(ctx context.Context, id string) error

	ListCategories(ctx context.Context, projectID string) ([]models.Category, error)
	CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error)
	UpdateCategory(ctx context.Context, id string, in CategoryInput) (*models.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	// AddDefaultCategories adds the default categories the project lacks,
	// matched by name, and returns the ones it created.
	AddDefaultCategories(ctx context.Context, projectID string) ([]models.Category, error)

	ListTags(ctx context.Context) ([]models.Tag, error)
	CreateTag(ctx context.Context, in TagInput) (*models.Tag, error)
	UpdateTag(ctx context.Context, id string, in TagInput) (*models.Tag, error)
	// DeleteTag removes the tag and detaches it from every prompt.
	DeleteTag(ctx context.Context, id string) error
}

type catalogService struct {
	repos     *repositories.Repositories
	publisher events.Publisher
	logger    *zap.Logger
}

// NewCatalogService creates the service.
func NewCatalogService(repos *repositories.Repositories, publisher events.Publisher, logger *zap.Logger) CatalogService {
	return &catalogService{repos: repos, publisher: publisher, logger: logger.Named("catalog")}
}

var _ CatalogService = (*catalogService)(nil)

func (s *catalogService) changed(ctx context.Context, kind, id, action string) {
	publish(ctx, s.publisher, s.logger, events.TopicCatalogChanged, events.CatalogChanged{Kind: kind, ID: id, Action: action})
}

func (s *catalogService) ListProjects(ctx context.Context) ([]models.Project, error) {
	return s.repos.Projects.List(ctx)
}

func (s *catalogService) GetProject(ctx context.Context, id string) (*models.Project, error) {
	p, err := s.repos.Projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *catalogService) CreateProject(ctx context.Context, in ProjectInput) (*models.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.Invalid("name", "is required")
	}

	p := models.Project{
		ID:          newID(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Color:       in.Color,
	}
	err := s.repos.Projects.Mutate(ctx, func(items []models.Project) ([]models.Project, error) {
		if p.Color == "" {
			p.Color = models.PaletteColor(len(items))
		}
		return append(items, p), nil
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	s.logger.Info("Project created", zap.String("project_id", p.ID), zap.String("name", p.Name))
	s.changed(ctx, "project", p.ID, "created")
	return &p, nil
}

func (s *catalogService) UpdateProject(ctx context.Context, id string, in ProjectInput) (*models.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.Invalid("name", "is required")
	}

	p, err := s.repos.Projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = name
	p.Description = strings.TrimSpace(in.Description)
	if in.Color != "" {
		p.Color = in.Color
	}
	if err := s.repos.Projects.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}

	s.changed(ctx, "project", id, "updated")
	return &p, nil
}

func (s *catalogService) DeleteProject(ctx context.Context, id string) error {
	if err := s.repos.Projects.Delete(ctx, id); err != nil {
		return err
	}
	removed, err := s.repos.Categories.DeleteWhere(ctx, func(c models.Category) bool { return c.ProjectID == id })
	if err != nil {
		return fmt.Errorf("delete project categories: %w", err)
	}

	s.logger.Info("Project deleted",
		zap.String("project_id", id),
		zap.Int("categories_removed", removed))
	s.changed(ctx, "project", id, "deleted")
	return nil
}

// ListCategories returns all categories, or those of one project.
func (s *catalogService) ListCategories(ctx context.Context, projectID string) ([]models.Category, error) {
	if projectID == "" {
		return s.repos.Categories.List(ctx)
	}
	return s.repos.Categories.Find(ctx, func(c models.Category) bool { return c.ProjectID == projectID })
}

func (s *catalogService) validateCategory(ctx context.Context, in *CategoryInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return apperrors.Invalid("name", "is required")
	}
	if in.ProjectID == "" {
		return apperrors.Invalid("project_id", "is required")
	}
	if _, err := s.repos.Projects.Get(ctx, in.ProjectID); err != nil {
		return err
	}
	return nil
}

func (s *catalogService) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	if err := s.validateCategory(ctx, &in); err != nil {
		return nil, err
	}

	c := models.Category{
		ID:          newID(),
		ProjectID:   in.ProjectID,
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
	}
	if err := s.repos.Categories.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.logger.Info("Category created",
		zap.String("category_id", c.ID),
		zap.String("project_id", c.ProjectID))
	s.changed(ctx, "category", c.ID, "created")
	return &c, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, id string, in CategoryInput) (*models.Category, error) {
	if err := s.validateCategory(ctx, &in); err != nil {
		return nil, err
	}

	c, err := s.repos.Categories.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.ProjectID = in.ProjectID
	c.Name = in.Name
	c.Description = strings.TrimSpace(in.Description)
	if err := s.repos.Categories.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}

	s.changed(ctx, "category", id, "updated")
	return &c, nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.repos.Categories.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Category deleted", zap.String("category_id", id))
	s.changed(ctx, "category", id, "deleted")
	return nil
}

func (s *catalogService) AddDefaultCategories(ctx context.Context, projectID string) ([]models.Category, error) {
	if _, err := s.repos.Projects.Get(ctx, projectID); err != nil {
		return nil, err
	}
	defaults, err := LoadDefaults()
	if err != nil {
		return nil, err
	}

	var added []models.Category
	err = s.repos.Categories.Mutate(ctx, func(items []models.Category) ([]models.Category, error) {
		added = nil
		existing := make(map[string]struct{})
		for _, c := range items {
			if c.ProjectID == projectID {
				existing[strings.ToLower(c.Name)] = struct{}{}
			}
		}
		for _, d := range defaults.Categories {
			if _, ok := existing[strings.ToLower(d.Name)]; ok {
				continue
			}
			c := models.Category{ID: newID(), ProjectID: projectID, Name: d.Name, Description: d.Description}
			items = append(items, c)
			added = append(added, c)
		}
		return items, nil
	})
	if err != nil {
		return nil, fmt.Errorf("add default categories: %w", err)
	}

	s.logger.Info("Default categories added",
		zap.String("project_id", projectID),
		zap.Int("added", len(added)))
	if len(added) > 0 {
		s.changed(ctx, "category", projectID, "defaults_added")
	}
	return added, nil
}

func (s *catalogService) ListTags(ctx context.Context) ([]models.Tag, error) {
	return s.repos.Tags.List(ctx)
}

// saveTag inserts or replaces a tag, rejecting case-insensitive name clashes.
func (s *catalogService) saveTag(ctx context.Context, id string, in TagInput, create bool) (*models.Tag, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.Invalid("name", "is required")
	}

	var out models.Tag
	err := s.repos.Tags.Mutate(ctx, func(items []models.Tag) ([]models.Tag, error) {
		idx := -1
		for i, t := range items {
			if t.ID == id {
				idx = i
				continue
			}
			if strings.EqualFold(t.Name, name) {
				return nil, fmt.Errorf("tag %q already exists: %w", name, apperrors.ErrConflict)
			}
		}
		if create {
			out = models.Tag{ID: id, Name: name, Color: in.Color}
			if out.Color == "" {
				out.Color = models.PaletteColor(len(items))
			}
			return append(items, out), nil
		}
		if idx < 0 {
			return nil, fmt.Errorf("tag %q: %w", id, apperrors.ErrNotFound)
		}
		items[idx].Name = name
		if in.Color != "" {
			items[idx].Color = in.Color
		}
		out = items[idx]
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *catalogService) CreateTag(ctx context.Context, in TagInput) (*models.Tag, error) {
	t, err := s.saveTag(ctx, newID(), in, true)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Tag created", zap.String("tag_id", t.ID), zap.String("name", t.Name))
	s.changed(ctx, "tag", t.ID, "created")
	return t, nil
}

func (s *catalogService) UpdateTag(ctx context.Context, id string, in TagInput) (*models.Tag, error) {
	t, err := s.saveTag(ctx, id, in, false)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, "tag", id, "updated")
	return t, nil
}

func (s *catalogService) DeleteTag(ctx context.Context, id string) error {
	if err := s.repos.Tags.Delete(ctx, id); err != nil {
		return err
	}
	err := s.repos.Prompts.Mutate(ctx, func(items []models.Prompt) ([]models.Prompt, error) {
		for i := range items {
			if items[i].HasTag(id) {
				items[i].Tags = removeString(items[i].Tags, id)
			}
		}
		return items, nil
	})
	if err != nil {
		return fmt.Errorf("detach tag from prompts: %w", err)
	}

	s.logger.Info("Tag deleted", zap.String("tag_id", id))
	s.changed(ctx, "tag", id, "deleted")
	return nil
}

func removeString(items []string, v string) []string {
	out := items[:0]
	for _, item := range items {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}
