// Package resolver picks the effective scoped configuration for a prompt.
//
// Precedence, first match wins:
//
//	prompt -> project -> category -> tag -> team default -> built-in default
//
// Resolution is a pure function of its inputs. Callers materialize the
// project, category and tags that exist and pass nil/empty for the rest.
package resolver

import (
	"cmp"
	"slices"

	"github.com/arqioly/arqioly/pkg/models"
)

// Scoped is implemented by every configuration kind that can be resolved.
type Scoped interface {
	ScopeRef() models.ScopeRef
}

// Target is the already-loaded context a configuration is resolved for.
// A nil Prompt means "new prompt" and short-circuits to the built-in default.
type Target struct {
	Prompt   *models.Prompt
	Project  *models.Project
	Category *models.Category
	Tags     []models.Tag
}

// Resolution is the outcome of a resolve call.
type Resolution[T Scoped] struct {
	Value T
	// Level is the scope that matched. It is empty for the built-in default.
	Level     models.ScopeType
	IsDefault bool
}

// Resolve walks the precedence chain over configs and returns the first match.
// fallback builds the built-in default and is only called when nothing matches.
func Resolve[T Scoped](target Target, configs []T, fallback func() T) Resolution[T] {
	if target.Prompt == nil {
		return Resolution[T]{Value: fallback(), IsDefault: true}
	}

	if c, ok := findExact(configs, models.ScopePrompt, target.Prompt.ID); ok {
		return Resolution[T]{Value: c, Level: models.ScopePrompt}
	}

	if target.Project != nil {
		if c, ok := findExact(configs, models.ScopeProject, target.Project.ID); ok {
			return Resolution[T]{Value: c, Level: models.ScopeProject}
		}
	}

	if target.Category != nil {
		if c, ok := findExact(configs, models.ScopeCategory, target.Category.ID); ok {
			return Resolution[T]{Value: c, Level: models.ScopeCategory}
		}
	}

	if c, ok := bestTagMatch(configs, target.Tags); ok {
		return Resolution[T]{Value: c, Level: models.ScopeTag}
	}

	for _, c := range configs {
		ref := c.ScopeRef()
		if ref.Type == models.ScopeTeam && ref.ID == "" {
			return Resolution[T]{Value: c, Level: models.ScopeTeam}
		}
	}

	return Resolution[T]{Value: fallback(), IsDefault: true}
}

func findExact[T Scoped](configs []T, scope models.ScopeType, id string) (T, bool) {
	for _, c := range configs {
		ref := c.ScopeRef()
		if ref.Type == scope && ref.ID == id {
			return c, true
		}
	}
	var zero T
	return zero, false
}

// bestTagMatch orders tag-scoped matches by priority desc, then createdAt desc.
// Full ties keep collection order.
func bestTagMatch[T Scoped](configs []T, tags []models.Tag) (T, bool) {
	var zero T
	if len(tags) == 0 {
		return zero, false
	}

	tagIDs := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		tagIDs[t.ID] = struct{}{}
	}

	var matches []T
	for _, c := range configs {
		ref := c.ScopeRef()
		if ref.Type != models.ScopeTag {
			continue
		}
		if _, ok := tagIDs[ref.ID]; ok {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 {
		return zero, false
	}

	slices.SortStableFunc(matches, func(a, b T) int {
		ra, rb := a.ScopeRef(), b.ScopeRef()
		if c := cmp.Compare(rb.Priority, ra.Priority); c != 0 {
			return c
		}
		return rb.CreatedAt.Compare(ra.CreatedAt)
	})
	return matches[0], true
}

// SystemPrompt resolves the effective system prompt.
func SystemPrompt(target Target, prompts []models.SystemPrompt) Resolution[models.SystemPrompt] {
	return Resolve(target, prompts, models.DefaultSystemPrompt)
}

// ModelConfig resolves the effective model configuration.
func ModelConfig(target Target, configs []models.ModelConfig) Resolution[models.ModelConfig] {
	return Resolve(target, configs, models.DefaultModelConfig)
}
