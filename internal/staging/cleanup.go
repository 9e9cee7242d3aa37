package staging

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"quill/internal/logging"
)

// Result reports the directories removed by a cleanup pass plus any
// per-directory failures. A failed removal never aborts the pass.
type Result struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with the error that kept it on disk.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes work directories whose modification time is older than
// maxAge. A zero maxAge removes every directory, including ones owned by
// queue items that are still in flight.
func CleanStale(ctx context.Context, stagingDir string, maxAge time.Duration, logger *slog.Logger) Result {
	var result Result

	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return result
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: stagingDir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		if !entry.IsDir() {
			continue
		}
		dirPath := filepath.Join(stagingDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		removeDir(dirPath, &result, logger, logging.Duration("age", time.Since(info.ModTime())))
	}
	return result
}

// CleanOrphaned removes work directories that no queue item owns. active
// holds the lowercased directory names of every item still in the queue;
// names are compared case-insensitively so case-folding filesystems do not
// orphan live directories.
func CleanOrphaned(ctx context.Context, stagingDir string, active map[string]struct{}, logger *slog.Logger) Result {
	var result Result

	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return result
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: stagingDir, Error: err})
		}
		return result
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		if !entry.IsDir() {
			continue
		}
		if _, ok := active[strings.ToLower(entry.Name())]; ok {
			continue
		}
		removeDir(filepath.Join(stagingDir, entry.Name()), &result, logger,
			logging.String("reason", "no queue item owns this directory"))
	}
	return result
}

func removeDir(dirPath string, result *Result, logger *slog.Logger, detail logging.Attr) {
	if err := os.RemoveAll(dirPath); err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
		if logger != nil {
			logger.Warn("failed to remove staging directory",
				logging.String("path", dirPath),
				logging.Error(err),
				logging.String(logging.FieldEventType, "staging_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"))
		}
		return
	}
	result.Removed = append(result.Removed, dirPath)
	if logger != nil {
		logger.Info("removed staging directory",
			logging.String("path", dirPath),
			detail,
			logging.String(logging.FieldEventType, "staging_cleanup"))
	}
}

// DirInfo describes one work directory under the staging root.
type DirInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
	Size    int64     `json:"size_bytes"`
}

// ListDirectories returns every work directory under the staging root with
// its recursive size. A missing staging root yields an empty listing.
func ListDirectories(stagingDir string) ([]DirInfo, error) {
	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dirPath := filepath.Join(stagingDir, entry.Name())
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    dirPath,
			ModTime: info.ModTime(),
			Size:    dirSize(dirPath),
		})
	}
	return dirs, nil
}

// dirSize totals regular files under path, best effort.
func dirSize(path string) int64 {
	var size int64
	filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				size += info.Size()
			}
		}
		return nil
	})
	return size
}
