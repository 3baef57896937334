// Package placeholders handles {{name}} template slots in prompt content.
package placeholders

import (
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Extract returns the distinct placeholder names in content, trimmed, in order
// of first appearance.
func Extract(content string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// Replace substitutes every {{ name }} occurrence (whitespace inside the braces
// is tolerated) with values[name] in a single pass over content. Names without a
// value are left untouched and substituted values are never expanded again.
func Replace(content string, values map[string]string) string {
	if len(values) == 0 {
		return content
	}
	return placeholderPattern.ReplaceAllStringFunc(content, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])
		if value, ok := values[name]; ok {
			return value
		}
		return match
	})
}

// Missing returns the placeholders in content that have no entry in values.
func Missing(content string, values map[string]string) []string {
	var missing []string
	for _, name := range Extract(content) {
		if _, ok := values[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
