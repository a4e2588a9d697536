package domain

import "strings"

// untitledPlaceholder is used when a filename normalizes down to nothing.
const untitledPlaceholder = "Untitled"

// TitleFromFilename derives a human-readable title from an uploaded
// filename: the extension is stripped and the remainder normalized.
func TitleFromFilename(filename string) string {
	if strings.TrimSpace(filename) == "" {
		return untitledPlaceholder
	}

	raw := filename
	if idx := strings.LastIndex(filename, "."); idx > 0 {
		raw = filename[:idx]
	}
	return NormalizeTitle(raw)
}

// NormalizeTitle replaces underscore, hyphen and dot separators with spaces
// and collapses runs of whitespace. Empty results fall back to a
// placeholder title.
func NormalizeTitle(value string) string {
	replacer := strings.NewReplacer("_", " ", "-", " ", ".", " ")
	normalized := strings.Join(strings.Fields(replacer.Replace(value)), " ")
	if normalized == "" {
		return untitledPlaceholder
	}
	return normalized
}
