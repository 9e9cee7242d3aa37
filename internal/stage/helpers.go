package stage

import (
	"path/filepath"
	"strings"

	"quill/internal/queue"
)

// DisplayTitle names an item for notifications and log lines: the stored
// title when present, otherwise the source file's base name.
func DisplayTitle(item *queue.Item) string {
	if item == nil {
		return ""
	}
	if title := strings.TrimSpace(item.Title); title != "" {
		return title
	}
	return filepath.Base(strings.TrimSpace(item.SourcePath))
}
