package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"quill/internal/textutil"
)

// NewFile enqueues a media file for transcription. The title is derived from
// the file name up front so queue listings are readable before any stage runs.
func (s *Store) NewFile(ctx context.Context, sourcePath string) (*Item, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execBusyRetry(
		ctx,
		`INSERT INTO queue_items (
            source_path, title, status, created_at, updated_at,
            progress_stage, progress_percent, progress_message
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sourcePath,
		textutil.DeriveTitle(sourcePath),
		StatusPending,
		timestamp,
		timestamp,
		nil,
		0.0,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("enqueue file: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read new item id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// fetchOne runs a single-row item query, translating no-rows into a nil item.
func (s *Store) fetchOne(ctx context.Context, query string, args ...any) (*Item, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// fetchMany runs an item query and scans every row.
func (s *Store) fetchMany(ctx context.Context, query string, args ...any) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, scanErr := scanItem(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// statusArgs renders an IN clause placeholder list with matching args.
func statusArgs(statuses []Status) (string, []any) {
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}
	return makePlaceholders(len(statuses)), args
}

// GetByID loads one item, or nil when the id is unknown.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	item, err := s.fetchOne(ctx, `SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("load queue item: %w", err)
	}
	return item, nil
}

// FindBySourcePath finds the newest item created for a source file.
func (s *Store) FindBySourcePath(ctx context.Context, sourcePath string) (*Item, error) {
	item, err := s.fetchOne(
		ctx,
		`SELECT `+itemColumns+` FROM queue_items WHERE source_path = ? ORDER BY id DESC LIMIT 1`,
		sourcePath,
	)
	if err != nil {
		return nil, fmt.Errorf("find by source path: %w", err)
	}
	return item, nil
}

// NextForStatuses claims reading order: the oldest item sitting in any
// of the given statuses, or nil when none match.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Item, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders, args := statusArgs(statuses)
	return s.fetchOne(
		ctx,
		`SELECT `+itemColumns+` FROM queue_items WHERE status IN (`+placeholders+`) ORDER BY created_at LIMIT 1`,
		args...,
	)
}

// ItemsByStatus lists every item in one status, oldest first.
func (s *Store) ItemsByStatus(ctx context.Context, status Status) ([]*Item, error) {
	items, err := s.fetchMany(ctx, `SELECT `+itemColumns+` FROM queue_items WHERE status = ? ORDER BY created_at`, status)
	if err != nil {
		return nil, fmt.Errorf("items by status: %w", err)
	}
	return items, nil
}

// List returns queue items filtered by status set, or all items when no
// status is provided.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM queue_items`
	var args []any
	if len(statuses) > 0 {
		placeholders, statusValues := statusArgs(statuses)
		query += ` WHERE status IN (` + placeholders + `)`
		args = statusValues
	}
	query += ` ORDER BY created_at`

	items, err := s.fetchMany(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// Update writes the full row back and refreshes UpdatedAt.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("nil item")
	}
	item.UpdatedAt = time.Now().UTC()
	if err := s.execDiscardingResult(
		ctx,
		`UPDATE queue_items
         SET source_path = ?, title = ?, status = ?, media_info_json = ?,
             transcript_path = ?, caption_path = ?, language = ?, duration_seconds = ?,
             cue_count = ?, error_message = ?, updated_at = ?, progress_stage = ?,
             progress_percent = ?, progress_message = ?, last_heartbeat = ?,
             needs_review = ?, review_reason = ?
         WHERE id = ?`,
		nullableString(item.SourcePath),
		nullableString(item.Title),
		item.Status,
		nullableString(item.MediaInfoJSON),
		nullableString(item.TranscriptPath),
		nullableString(item.CaptionPath),
		nullableString(item.Language),
		item.DurationSeconds,
		item.CueCount,
		nullableString(item.ErrorMessage),
		item.UpdatedAt.Format(time.RFC3339Nano),
		nullableString(item.ProgressStage),
		item.ProgressPercent,
		nullableString(item.ProgressMessage),
		nullableTime(item.LastHeartbeat),
		boolToInt(item.NeedsReview),
		nullableString(item.ReviewReason),
		item.ID,
	); err != nil {
		return fmt.Errorf("save queue item: %w", err)
	}
	return nil
}

// UpdateProgress persists only progress fields, leaving the heartbeat and the
// rest of the row untouched so concurrent heartbeat writes are not clobbered.
func (s *Store) UpdateProgress(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("nil item")
	}
	item.UpdatedAt = time.Now().UTC()
	if err := s.execDiscardingResult(
		ctx,
		`UPDATE queue_items
         SET progress_stage = ?, progress_percent = ?, progress_message = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(item.ProgressStage),
		item.ProgressPercent,
		nullableString(item.ProgressMessage),
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID,
	); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// Remove deletes one item and reports whether a row actually went away.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execBusyRetry(ctx, `DELETE FROM queue_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete queue item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("count deleted rows: %w", err)
	}
	return affected > 0, nil
}

// deleteRows runs a counted delete, wrapping failures with label.
func (s *Store) deleteRows(ctx context.Context, label, query string, args ...any) (int64, error) {
	res, err := s.execBusyRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", label, err)
	}
	return res.RowsAffected()
}

// Clear empties the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	return s.deleteRows(ctx, "clear queue", `DELETE FROM queue_items`)
}

// ClearCompleted drops items that finished successfully.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	return s.deleteRows(ctx, "clear completed", `DELETE FROM queue_items WHERE status = ?`, StatusCompleted)
}

// ClearFailed drops items that ended in the failed status.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	return s.deleteRows(ctx, "clear failed", `DELETE FROM queue_items WHERE status = ?`, StatusFailed)
}
