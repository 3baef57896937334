// Package export builds portable JSON documents of prompts and archives them.
//
// The document format uses camelCase keys and RFC 3339 timestamps with
// millisecond precision so files can be read back by other tools.
package export

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/arqioly/arqioly/pkg/models"
)

// isoLayout renders timestamps like 2024-05-01T12:30:00.000Z.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp marshals as an ISO-8601 UTC string.
type Timestamp time.Time

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(isoLayout))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	*t = Timestamp(parsed)
	return nil
}

// Version is an exported prompt version.
type Version struct {
	VersionNumber int       `json:"versionNumber"`
	Content       string    `json:"content"`
	ChangeNote    string    `json:"changeNote"`
	CreatedBy     string    `json:"createdBy"`
	CreatedAt     Timestamp `json:"createdAt"`
}

// Prompt is an exported prompt with names instead of ids.
type Prompt struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	Project     string    `json:"project,omitempty"`
	Category    string    `json:"category,omitempty"`
	Tags        []string  `json:"tags"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   Timestamp `json:"createdAt"`
	UpdatedAt   Timestamp `json:"updatedAt"`
	IsArchived  *bool     `json:"isArchived,omitempty"`
	Versions    []Version `json:"versions,omitempty"`
}

// PromptDocument is the single prompt export.
type PromptDocument struct {
	Prompt   Prompt    `json:"prompt"`
	Versions []Version `json:"versions"`
}

type namedItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type tagItem struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// FullDocument is the export of everything.
type FullDocument struct {
	ExportedAt Timestamp   `json:"exportedAt"`
	Prompts    []Prompt    `json:"prompts"`
	Projects   []namedItem `json:"projects"`
	Categories []namedItem `json:"categories"`
	Tags       []tagItem   `json:"tags"`
}

// Catalog holds everything an export references.
type Catalog struct {
	Prompts    []models.Prompt
	Versions   []models.PromptVersion
	Projects   []models.Project
	Categories []models.Category
	Tags       []models.Tag
}

func exportVersions(versions []models.PromptVersion, promptID string) []Version {
	var own []models.PromptVersion
	for _, v := range versions {
		if v.PromptID == promptID {
			own = append(own, v)
		}
	}
	slices.SortFunc(own, func(a, b models.PromptVersion) int { return a.VersionNumber - b.VersionNumber })

	out := make([]Version, 0, len(own))
	for _, v := range own {
		out = append(out, Version{
			VersionNumber: v.VersionNumber,
			Content:       v.Content,
			ChangeNote:    v.ChangeNote,
			CreatedBy:     v.CreatedBy,
			CreatedAt:     Timestamp(v.CreatedAt),
		})
	}
	return out
}

func (c *Catalog) exportPrompt(p models.Prompt) Prompt {
	out := Prompt{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Content:     p.Content,
		Tags:        []string{},
		CreatedBy:   p.CreatedBy,
		CreatedAt:   Timestamp(p.CreatedAt),
		UpdatedAt:   Timestamp(p.UpdatedAt),
	}
	for _, proj := range c.Projects {
		if proj.ID == p.ProjectID {
			out.Project = proj.Name
			break
		}
	}
	if p.CategoryID != "" {
		for _, cat := range c.Categories {
			if cat.ID == p.CategoryID {
				out.Category = cat.Name
				break
			}
		}
	}
	for _, t := range c.Tags {
		if p.HasTag(t.ID) {
			out.Tags = append(out.Tags, t.Name)
		}
	}
	return out
}

// BuildPromptDocument exports one prompt with its version history.
func BuildPromptDocument(c *Catalog, p models.Prompt) *PromptDocument {
	return &PromptDocument{
		Prompt:   c.exportPrompt(p),
		Versions: exportVersions(c.Versions, p.ID),
	}
}

// BuildFullDocument exports every prompt with nested versions plus the catalog.
func BuildFullDocument(c *Catalog, exportedAt time.Time) *FullDocument {
	doc := &FullDocument{
		ExportedAt: Timestamp(exportedAt),
		Prompts:    make([]Prompt, 0, len(c.Prompts)),
		Projects:   make([]namedItem, 0, len(c.Projects)),
		Categories: make([]namedItem, 0, len(c.Categories)),
		Tags:       make([]tagItem, 0, len(c.Tags)),
	}
	for _, p := range c.Prompts {
		ep := c.exportPrompt(p)
		archived := p.IsArchived
		ep.IsArchived = &archived
		ep.Versions = exportVersions(c.Versions, p.ID)
		doc.Prompts = append(doc.Prompts, ep)
	}
	for _, p := range c.Projects {
		doc.Projects = append(doc.Projects, namedItem{Name: p.Name, Description: p.Description})
	}
	for _, cat := range c.Categories {
		doc.Categories = append(doc.Categories, namedItem{Name: cat.Name, Description: cat.Description})
	}
	for _, t := range c.Tags {
		doc.Tags = append(doc.Tags, tagItem{Name: t.Name, Color: t.Color})
	}
	return doc
}

// Marshal renders a document as indented JSON.
func Marshal(doc any) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}
	return data, nil
}
