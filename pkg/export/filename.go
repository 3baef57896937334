package export

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-z0-9]`)

// SanitizeTitle lowercases title and replaces everything that is not an
// ASCII letter or digit with an underscore.
func SanitizeTitle(title string) string {
	return unsafeFilenameChars.ReplaceAllString(strings.ToLower(title), "_")
}

// PromptFilename names a single prompt export: <sanitized_title>_<unix ms>.json.
func PromptFilename(title string, at time.Time) string {
	return fmt.Sprintf("%s_%d.json", SanitizeTitle(title), at.UnixMilli())
}

// FullFilename names a full export: arqioly_export_<unix ms>.json.
func FullFilename(at time.Time) string {
	return fmt.Sprintf("arqioly_export_%d.json", at.UnixMilli())
}
