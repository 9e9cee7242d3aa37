package queue

import (
	"fmt"
	"path/filepath"
	"strings"

	"quill/internal/textutil"
)

// StagingRoot returns the per-item staging directory rooted at base.
// The segment embeds the queue ID so identically titled sources never
// collide; items without a usable title fall back to queue-{ID}.
func (i Item) StagingRoot(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	segment := sanitizeSegment(i.Title)
	if segment == "" {
		return filepath.Join(base, fmt.Sprintf("queue-%d", i.ID))
	}
	return filepath.Join(base, fmt.Sprintf("%d-%s", i.ID, segment))
}

func sanitizeSegment(value string) string {
	value = textutil.SanitizeFileName(value)
	if value == "" {
		return ""
	}
	value = strings.ToLower(strings.ReplaceAll(value, " ", "-"))
	return strings.Trim(value, "-_")
}
