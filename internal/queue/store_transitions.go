package queue

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// rollbackStep pairs an in-flight status with the settled status it rolls
// back to.
type rollbackStep struct {
	from Status
	to   Status
}

// rollbackSteps resolves the rollback targets for the given processing
// statuses, or for every processing status when none are named. Statuses
// with no rollback target are skipped.
func rollbackSteps(statuses ...Status) []rollbackStep {
	if len(statuses) == 0 {
		for _, status := range allStatuses {
			if IsProcessingStatus(status) {
				statuses = append(statuses, status)
			}
		}
	}
	steps := make([]rollbackStep, 0, len(statuses))
	for _, status := range statuses {
		if to, ok := rollbackTarget(status); ok {
			steps = append(steps, rollbackStep{from: status, to: to})
		}
	}
	return steps
}

// rollbackClause renders the steps as a CASE expression over the status
// column, returning the SQL fragment and its bind arguments.
func rollbackClause(steps []rollbackStep) (string, []any) {
	var clause strings.Builder
	args := make([]any, 0, len(steps)*2)
	clause.WriteString("CASE status")
	for _, step := range steps {
		clause.WriteString(" WHEN ? THEN ?")
		args = append(args, step.from, step.to)
	}
	clause.WriteString(" ELSE status END")
	return clause.String(), args
}

// ResetStuckProcessing rolls every in-flight item back to the start of
// its current stage. Used by queue reset and by crash recovery on boot.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	steps := rollbackSteps()
	caseClause, args := rollbackClause(steps)
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano))
	for _, step := range steps {
		args = append(args, step.from)
	}

	query := `UPDATE queue_items
         SET status = ` + caseClause + `,
             progress_stage = 'Reset from stuck processing',
             progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (` + makePlaceholders(len(steps)) + `)`

	res, err := s.execBusyRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reset stuck items: %w", err)
	}
	return res.RowsAffected()
}

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight item.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	if err := s.execDiscardingResult(
		ctx,
		`UPDATE queue_items SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing returns items stuck in processing back to the start of
// their current stage when heartbeats expire. When statuses are provided only
// those processing states are considered; otherwise all of them are.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time, statuses ...Status) (int64, error) {
	steps := rollbackSteps(statuses...)
	if len(steps) == 0 {
		return 0, nil
	}

	caseClause, args := rollbackClause(steps)
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano))
	for _, step := range steps {
		args = append(args, step.from)
	}
	args = append(args, cutoff.UTC().Format(time.RFC3339Nano))

	query := `UPDATE queue_items
        SET status = ` + caseClause + `,
            progress_stage = 'Reclaimed from stale processing',
            progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
        WHERE status IN (` + makePlaceholders(len(steps)) + `) AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`

	res, err := s.execBusyRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale items: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed and review-parked items back to pending for reprocessing.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.execBusyRetry(
			ctx,
			`UPDATE queue_items
            SET status = ?, progress_stage = 'Retry requested', progress_percent = 0,
                progress_message = NULL, error_message = NULL, needs_review = 0,
                review_reason = NULL, updated_at = ?
            WHERE status IN (?, ?)`,
			StatusPending,
			timestamp,
			StatusFailed,
			StatusReview,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed items: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+4)
	args = append(args, StatusPending, timestamp)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, StatusFailed, StatusReview)
	query := `UPDATE queue_items
        SET status = ?, progress_stage = 'Retry requested', progress_percent = 0,
            progress_message = NULL, error_message = NULL, needs_review = 0,
            review_reason = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status IN (?, ?)`
	res, err := s.execBusyRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected items: %w", err)
	}
	return res.RowsAffected()
}

// StopItems parks the given items for review with a user-stop reason so the
// workflow skips them until a retry is requested. Finished and already-parked
// items are left untouched.
func (s *Store) StopItems(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+7)
	args = append(args, StatusReview, UserStopReason, UserStopReason, timestamp)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, StatusCompleted, StatusFailed, StatusReview)
	query := `UPDATE queue_items
        SET status = ?, needs_review = 1, review_reason = ?, progress_stage = 'Review',
            progress_percent = 0, progress_message = ?, last_heartbeat = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status NOT IN (?, ?, ?)`
	res, err := s.execBusyRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("stop items: %w", err)
	}
	return res.RowsAffected()
}
