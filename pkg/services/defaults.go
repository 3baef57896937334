package services

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/defaults.yaml data/templates.yaml
var dataFS embed.FS

// DefaultCategory is a category every project can be seeded with.
type DefaultCategory struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

// DefaultTag is a tag created on first start.
type DefaultTag struct {
	Name  string `yaml:"name" json:"name"`
	Color string `yaml:"color" json:"color"`
}

// DefaultSystemPrompt is a category-scoped system prompt created for the
// default project.
type DefaultSystemPrompt struct {
	Category string `yaml:"category"`
	Name     string `yaml:"name"`
	Priority int    `yaml:"priority"`
	Content  string `yaml:"content"`
}

// Defaults is the seed data shipped with the binary.
type Defaults struct {
	Project struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Color       string `yaml:"color"`
	} `yaml:"project"`
	Categories    []DefaultCategory     `yaml:"categories"`
	Tags          []DefaultTag          `yaml:"tags"`
	SystemPrompts []DefaultSystemPrompt `yaml:"system_prompts"`
}

// Template is a starting point for a new prompt.
type Template struct {
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Content     string   `yaml:"content" json:"content"`
	Category    string   `yaml:"category" json:"category"`
	Tags        []string `yaml:"tags" json:"tags"`
}

var (
	loadDefaults = sync.OnceValues(func() (*Defaults, error) {
		var d Defaults
		if err := decodeData("data/defaults.yaml", &d); err != nil {
			return nil, err
		}
		return &d, nil
	})
	loadTemplates = sync.OnceValues(func() ([]Template, error) {
		var t []Template
		if err := decodeData("data/templates.yaml", &t); err != nil {
			return nil, err
		}
		return t, nil
	})
)

func decodeData(name string, out any) error {
	raw, err := dataFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// LoadDefaults returns the embedded seed data.
func LoadDefaults() (*Defaults, error) {
	return loadDefaults()
}

// LoadTemplates returns the embedded template catalog.
func LoadTemplates() ([]Template, error) {
	return loadTemplates()
}
