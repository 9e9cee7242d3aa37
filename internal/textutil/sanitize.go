package textutil

import "strings"

// SanitizeFileName makes a title safe to embed in a file or directory name.
// Path separators, colons, and asterisks become dashes so adjacent words stay
// readable; shell and Windows metacharacters are dropped outright. The result
// is trimmed of surrounding whitespace.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*':
			return '-'
		case '?', '"', '<', '>', '|':
			return -1
		}
		return r
	}, name)
	return strings.TrimSpace(cleaned)
}
