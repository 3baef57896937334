package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/apperrors"
	"github.com/arqioly/arqioly/pkg/auth"
	"github.com/arqioly/arqioly/pkg/events"
	"github.com/arqioly/arqioly/pkg/models"
	"github.com/arqioly/arqioly/pkg/placeholders"
	"github.com/arqioly/arqioly/pkg/repositories"
)

// Default change notes for versions created without one.
const (
	InitialVersionNote = "Initial version"
	UpdatedVersionNote = "Updated prompt"
)

// PromptFilter narrows ListPrompts. Empty fields match everything.
type PromptFilter struct {
	// Query matches title, description and content, case-insensitively.
	Query      string
	ProjectID  string
	CategoryID string
	// TagIDs requires the prompt to carry every listed tag.
	TagIDs []string
	// Archived selects archived prompts instead of active ones.
	Archived bool
}

// PromptInput is the writable part of a prompt.
type PromptInput struct {
	Title        string   `json:"title" validate:"required"`
	Description  string   `json:"description"`
	Content      string   `json:"content"`
	ProjectID    string   `json:"project_id" validate:"required"`
	CategoryID   string   `json:"category_id,omitempty"`
	Tags         []string `json:"tags"`
	ChangeNote   string   `json:"change_note,omitempty"`
	ExposedToMCP *bool    `json:"exposed_to_mcp,omitempty"`
	ImprovedFrom string   `json:"improved_from,omitempty"`
}

// VersionDiff compares two versions of a prompt.
type VersionDiff struct {
	PromptID string                `json:"prompt_id"`
	From     *models.PromptVersion `json:"from,omitempty"`
	To       models.PromptVersion  `json:"to"`
	Diff     string                `json:"diff"`
}

// RenderResult is prompt content with placeholder values applied.
type RenderResult struct {
	Content      string   `json:"content"`
	Placeholders []string `json:"placeholders"`
	Missing      []string `json:"missing"`
}

// PromptService manages prompts and their version history.
type PromptService interface {
	ListPrompts(ctx context.Context, filter PromptFilter) ([]models.Prompt, error)
	GetPrompt(ctx context.Context, id string) (*models.Prompt, error)
	CreatePrompt(ctx context.Context, in PromptInput) (*models.Prompt, error)
	UpdatePrompt(ctx context.Context, id string, in PromptInput) (*models.Prompt, error)
	SetArchived(ctx context.Context, id string, archived bool) (*models.Prompt, error)
	SetMCPExposure(ctx context.Context, id string, exposed bool) (*models.Prompt, error)
	DeletePrompt(ctx context.Context, id string) error

	// ListMCPPrompts returns prompts exposed to MCP that are not archived.
	ListMCPPrompts(ctx context.Context) ([]models.Prompt, error)

	ListVersions(ctx context.Context, promptID string) ([]models.PromptVersion, error)
	GetVersion(ctx context.Context, promptID string, number int) (*models.PromptVersion, error)
	LatestVersion(ctx context.Context, promptID string) (*models.PromptVersion, error)
	RestoreVersion(ctx context.Context, promptID string, number int) (*models.Prompt, error)
	// CompareVersions diffs version from against version to. A zero from
	// compares against the version preceding to.
	CompareVersions(ctx context.Context, promptID string, from, to int) (*VersionDiff, error)

	Render(ctx context.Context, id string, values map[string]string) (*RenderResult, error)
}

type promptService struct {
	repos     *repositories.Repositories
	publisher events.Publisher
	logger    *zap.Logger
}

// NewPromptService creates the service.
func NewPromptService(repos *repositories.Repositories, publisher events.Publisher, logger *zap.Logger) PromptService {
	return &promptService{repos: repos, publisher: publisher, logger: logger.Named("prompts")}
}

var _ PromptService = (*promptService)(nil)

func (f PromptFilter) matches(p *models.Prompt) bool {
	if p.IsArchived != f.Archived {
		return false
	}
	if f.ProjectID != "" && p.ProjectID != f.ProjectID {
		return false
	}
	if f.CategoryID != "" && p.CategoryID != f.CategoryID {
		return false
	}
	for _, tagID := range f.TagIDs {
		if !p.HasTag(tagID) {
			return false
		}
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(p.Title), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) &&
			!strings.Contains(strings.ToLower(p.Content), q) {
			return false
		}
	}
	return true
}

func (s *promptService) ListPrompts(ctx context.Context, filter PromptFilter) ([]models.Prompt, error) {
	prompts, err := s.repos.Prompts.Find(ctx, func(p models.Prompt) bool { return filter.matches(&p) })
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(prompts, func(a, b models.Prompt) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return prompts, nil
}

func (s *promptService) GetPrompt(ctx context.Context, id string) (*models.Prompt, error) {
	p, err := s.repos.Prompts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *promptService) ListMCPPrompts(ctx context.Context) ([]models.Prompt, error) {
	return s.repos.Prompts.Find(ctx, func(p models.Prompt) bool { return p.MCPVisible() })
}

// validateRefs checks the project, category and tags a prompt points at.
func (s *promptService) validateRefs(ctx context.Context, in *PromptInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return apperrors.Invalid("title", "is required")
	}
	if in.ProjectID == "" {
		return apperrors.Invalid("project_id", "is required")
	}
	if _, err := s.repos.Projects.Get(ctx, in.ProjectID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Invalid("project_id", "project does not exist")
		}
		return err
	}
	if in.CategoryID != "" {
		c, err := s.repos.Categories.Get(ctx, in.CategoryID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.Invalid("category_id", "category does not exist")
			}
			return err
		}
		if c.ProjectID != in.ProjectID {
			return apperrors.Invalid("category_id", "category belongs to another project")
		}
	}
	in.Tags = dedupe(in.Tags)
	if len(in.Tags) > 0 {
		tags, err := s.repos.Tags.List(ctx)
		if err != nil {
			return err
		}
		known := make(map[string]struct{}, len(tags))
		for _, t := range tags {
			known[t.ID] = struct{}{}
		}
		for _, id := range in.Tags {
			if _, ok := known[id]; !ok {
				return apperrors.Invalid("tags", fmt.Sprintf("tag %q does not exist", id))
			}
		}
	}
	return nil
}

// appendVersion adds the next version for a prompt atomically.
func (s *promptService) appendVersion(ctx context.Context, promptID, content, note, improvedFrom string) (*models.PromptVersion, error) {
	v := models.PromptVersion{
		ID:           newID(),
		PromptID:     promptID,
		Content:      content,
		ChangeNote:   note,
		CreatedBy:    auth.GetActor(ctx).ID,
		CreatedAt:    now(),
		ImprovedFrom: improvedFrom,
	}
	err := s.repos.Versions.Mutate(ctx, func(items []models.PromptVersion) ([]models.PromptVersion, error) {
		latest := 0
		for _, existing := range items {
			if existing.PromptID == promptID && existing.VersionNumber > latest {
				latest = existing.VersionNumber
			}
		}
		v.VersionNumber = latest + 1
		return append(items, v), nil
	})
	if err != nil {
		return nil, fmt.Errorf("append version: %w", err)
	}
	return &v, nil
}

func (s *promptService) CreatePrompt(ctx context.Context, in PromptInput) (*models.Prompt, error) {
	if err := s.validateRefs(ctx, &in); err != nil {
		return nil, err
	}

	ts := now()
	p := models.Prompt{
		ID:          newID(),
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Content:     in.Content,
		ProjectID:   in.ProjectID,
		CategoryID:  in.CategoryID,
		Tags:        in.Tags,
		CreatedBy:   auth.GetActor(ctx).ID,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if in.ExposedToMCP != nil {
		p.ExposedToMCP = *in.ExposedToMCP
	}

	if err := s.repos.Prompts.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create prompt: %w", err)
	}

	note := in.ChangeNote
	if note == "" {
		note = InitialVersionNote
	}
	v, err := s.appendVersion(ctx, p.ID, p.Content, note, in.ImprovedFrom)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Prompt created",
		zap.String("prompt_id", p.ID),
		zap.String("project_id", p.ProjectID))
	publish(ctx, s.publisher, s.logger, events.TopicPromptSaved, events.PromptSaved{Prompt: &p, Version: v})
	return &p, nil
}

func (s *promptService) UpdatePrompt(ctx context.Context, id string, in PromptInput) (*models.Prompt, error) {
	if err := s.validateRefs(ctx, &in); err != nil {
		return nil, err
	}

	p, err := s.modify(ctx, id, func(p *models.Prompt) {
		p.Title = in.Title
		p.Description = strings.TrimSpace(in.Description)
		p.Content = in.Content
		p.ProjectID = in.ProjectID
		p.CategoryID = in.CategoryID
		p.Tags = in.Tags
		if in.ExposedToMCP != nil {
			p.ExposedToMCP = *in.ExposedToMCP
		}
	})
	if err != nil {
		return nil, err
	}

	note := in.ChangeNote
	if note == "" {
		note = UpdatedVersionNote
	}
	v, err := s.appendVersion(ctx, p.ID, p.Content, note, in.ImprovedFrom)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Prompt updated",
		zap.String("prompt_id", p.ID),
		zap.Int("version", v.VersionNumber))
	publish(ctx, s.publisher, s.logger, events.TopicPromptSaved, events.PromptSaved{Prompt: p, Version: v})
	return p, nil
}

// modify applies fn to the stored prompt and bumps updated_at.
func (s *promptService) modify(ctx context.Context, id string, fn func(p *models.Prompt)) (*models.Prompt, error) {
	var out models.Prompt
	err := s.repos.Prompts.Mutate(ctx, func(items []models.Prompt) ([]models.Prompt, error) {
		for i := range items {
			if items[i].ID == id {
				fn(&items[i])
				items[i].UpdatedAt = now()
				out = items[i]
				return items, nil
			}
		}
		return nil, fmt.Errorf("prompt %q: %w", id, apperrors.ErrNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *promptService) SetArchived(ctx context.Context, id string, archived bool) (*models.Prompt, error) {
	p, err := s.modify(ctx, id, func(p *models.Prompt) { p.IsArchived = archived })
	if err != nil {
		return nil, err
	}
	s.logger.Info("Prompt archive state changed",
		zap.String("prompt_id", id),
		zap.Bool("archived", archived))
	publish(ctx, s.publisher, s.logger, events.TopicPromptArchived, events.PromptArchived{PromptID: id, Archived: archived})
	return p, nil
}

func (s *promptService) SetMCPExposure(ctx context.Context, id string, exposed bool) (*models.Prompt, error) {
	p, err := s.modify(ctx, id, func(p *models.Prompt) { p.ExposedToMCP = exposed })
	if err != nil {
		return nil, err
	}
	s.logger.Info("Prompt MCP exposure changed",
		zap.String("prompt_id", id),
		zap.Bool("exposed", exposed))
	publish(ctx, s.publisher, s.logger, events.TopicPromptSaved, events.PromptSaved{Prompt: p})
	return p, nil
}

// DeletePrompt removes the prompt and everything hanging off it.
func (s *promptService) DeletePrompt(ctx context.Context, id string) error {
	if err := s.repos.Prompts.Delete(ctx, id); err != nil {
		return err
	}

	versions, err := s.repos.Versions.DeleteWhere(ctx, func(v models.PromptVersion) bool { return v.PromptID == id })
	if err != nil {
		return fmt.Errorf("delete versions: %w", err)
	}
	if _, err := s.repos.Comments.DeleteWhere(ctx, func(c models.Comment) bool { return c.PromptID == id }); err != nil {
		return fmt.Errorf("delete comments: %w", err)
	}
	if _, err := s.repos.Runs.DeleteWhere(ctx, func(r models.Run) bool { return r.PromptID == id }); err != nil {
		return fmt.Errorf("delete runs: %w", err)
	}
	if _, err := s.repos.Shares.DeleteWhere(ctx, func(sh models.SharedPrompt) bool { return sh.PromptID == id }); err != nil {
		return fmt.Errorf("delete shares: %w", err)
	}
	if _, err := s.repos.SystemPrompts.DeleteWhere(ctx, func(sp models.SystemPrompt) bool {
		return sp.ScopeType == models.ScopePrompt && sp.ScopeID == id
	}); err != nil {
		return fmt.Errorf("delete prompt-scoped system prompts: %w", err)
	}
	if _, err := s.repos.ModelConfigs.DeleteWhere(ctx, func(mc models.ModelConfig) bool {
		return mc.ScopeType == models.ScopePrompt && mc.ScopeID == id
	}); err != nil {
		return fmt.Errorf("delete prompt-scoped model configs: %w", err)
	}

	s.logger.Info("Prompt deleted",
		zap.String("prompt_id", id),
		zap.Int("versions_removed", versions))
	publish(ctx, s.publisher, s.logger, events.TopicPromptDeleted, events.PromptDeleted{PromptID: id})
	return nil
}

// ListVersions returns versions newest first.
func (s *promptService) ListVersions(ctx context.Context, promptID string) ([]models.PromptVersion, error) {
	if _, err := s.repos.Prompts.Get(ctx, promptID); err != nil {
		return nil, err
	}
	versions, err := s.repos.Versions.Find(ctx, func(v models.PromptVersion) bool { return v.PromptID == promptID })
	if err != nil {
		return nil, err
	}
	slices.SortFunc(versions, func(a, b models.PromptVersion) int {
		return b.VersionNumber - a.VersionNumber
	})
	return versions, nil
}

func (s *promptService) GetVersion(ctx context.Context, promptID string, number int) (*models.PromptVersion, error) {
	versions, err := s.repos.Versions.Find(ctx, func(v models.PromptVersion) bool {
		return v.PromptID == promptID && v.VersionNumber == number
	})
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("version %d of prompt %q: %w", number, promptID, apperrors.ErrNotFound)
	}
	return &versions[0], nil
}

func (s *promptService) LatestVersion(ctx context.Context, promptID string) (*models.PromptVersion, error) {
	versions, err := s.ListVersions(ctx, promptID)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("versions of prompt %q: %w", promptID, apperrors.ErrNotFound)
	}
	return &versions[0], nil
}

func (s *promptService) RestoreVersion(ctx context.Context, promptID string, number int) (*models.Prompt, error) {
	v, err := s.GetVersion(ctx, promptID, number)
	if err != nil {
		return nil, err
	}

	p, err := s.modify(ctx, promptID, func(p *models.Prompt) { p.Content = v.Content })
	if err != nil {
		return nil, err
	}
	nv, err := s.appendVersion(ctx, promptID, v.Content, fmt.Sprintf("Restored from version %d", number), "")
	if err != nil {
		return nil, err
	}

	s.logger.Info("Prompt version restored",
		zap.String("prompt_id", promptID),
		zap.Int("restored", number),
		zap.Int("version", nv.VersionNumber))
	publish(ctx, s.publisher, s.logger, events.TopicPromptSaved, events.PromptSaved{Prompt: p, Version: nv})
	return p, nil
}

func (s *promptService) CompareVersions(ctx context.Context, promptID string, from, to int) (*VersionDiff, error) {
	toV, err := s.GetVersion(ctx, promptID, to)
	if err != nil {
		return nil, err
	}
	if from == 0 {
		from = to - 1
	}

	result := &VersionDiff{PromptID: promptID, To: *toV}
	var fromContent, fromName string
	if from >= 1 {
		fromV, err := s.GetVersion(ctx, promptID, from)
		if err != nil {
			return nil, err
		}
		result.From = fromV
		fromContent = fromV.Content
		fromName = fmt.Sprintf("version %d", from)
	} else {
		fromName = "empty"
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(fromContent),
		B:        difflib.SplitLines(toV.Content),
		FromFile: fromName,
		ToFile:   fmt.Sprintf("version %d", to),
		Context:  3,
	})
	if err != nil {
		return nil, fmt.Errorf("diff versions: %w", err)
	}
	result.Diff = diff
	return result, nil
}

func (s *promptService) Render(ctx context.Context, id string, values map[string]string) (*RenderResult, error) {
	p, err := s.repos.Prompts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	names := placeholders.Extract(p.Content)
	if names == nil {
		names = []string{}
	}
	missing := placeholders.Missing(p.Content, values)
	if missing == nil {
		missing = []string{}
	}
	return &RenderResult{
		Content:      placeholders.Replace(p.Content, values),
		Placeholders: names,
		Missing:      missing,
	}, nil
}
