package models

// Project groups prompts and owns categories.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

func (p Project) GetID() string { return p.ID }

// Category belongs to exactly one project.
type Category struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (c Category) GetID() string { return c.ID }

// Tag is a global label attached to prompts.
type Tag struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (t Tag) GetID() string { return t.ID }

// ColorPalette is used to assign colors to new projects and tags.
var ColorPalette = []string{
	"#3b82f6", // blue
	"#8b5cf6", // violet
	"#ec4899", // pink
	"#f59e0b", // amber
	"#10b981", // emerald
	"#ef4444", // red
	"#06b6d4", // cyan
	"#84cc16", // lime
}

// PaletteColor returns the palette entry for the n-th item.
func PaletteColor(n int) string {
	if n < 0 {
		n = -n
	}
	return ColorPalette[n%len(ColorPalette)]
}
