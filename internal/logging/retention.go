package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RetentionTarget names a directory whose matching files are subject to
// pruning. Exclude lists paths that must survive regardless of age, such as
// the file currently being written.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// CleanupOldLogs deletes files older than retentionDays from each target.
// A retentionDays of 0 or less disables pruning. Unreadable directories and
// entries are skipped; deletion failures are logged and the file left behind.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) {
	if retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	for _, target := range targets {
		pruneTarget(logger, target, cutoff)
	}
}

func pruneTarget(logger *slog.Logger, target RetentionTarget, cutoff time.Time) {
	dir := strings.TrimSpace(target.Dir)
	if dir == "" {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	keep := make(map[string]struct{}, len(target.Exclude))
	for _, path := range target.Exclude {
		if trimmed := strings.TrimSpace(path); trimmed != "" {
			keep[absolutePath(trimmed)] = struct{}{}
		}
	}

	pattern := strings.TrimSpace(target.Pattern)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if pattern != "" {
			if matched, err := filepath.Match(pattern, entry.Name()); err != nil || !matched {
				continue
			}
		}
		path := absolutePath(filepath.Join(dir, entry.Name()))
		if _, pinned := keep[path]; pinned {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		removeLogFile(logger, path)
	}
}

func absolutePath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func removeLogFile(logger *slog.Logger, path string) {
	if err := os.Remove(path); err != nil {
		WarnWithContext(logger, "could not prune expired log file", "log_retention_failed",
			String("path", path),
			Error(err),
			String(FieldErrorHint, "check log_dir ownership and file permissions"),
			String(FieldImpact, "expired log file left on disk"),
		)
		return
	}
	if logger != nil {
		logger.Info("pruned expired log file",
			String("path", path),
			String(FieldEventType, "log_pruned"),
		)
	}
}
