package queue

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

const itemColumns = "id, source_path, title, status, media_info_json, transcript_path, caption_path, language, duration_seconds, cue_count, error_message, created_at, updated_at, progress_stage, progress_percent, progress_message, last_heartbeat, needs_review, review_reason"

// itemRow mirrors one queue_items row with nullable wrappers. Its field order
// must match itemColumns.
type itemRow struct {
	id              int64
	sourcePath      sql.NullString
	title           sql.NullString
	status          string
	mediaInfo       sql.NullString
	transcriptPath  sql.NullString
	captionPath     sql.NullString
	language        sql.NullString
	durationSeconds sql.NullFloat64
	cueCount        sql.NullInt64
	errorMessage    sql.NullString
	createdAt       sql.NullString
	updatedAt       sql.NullString
	progressStage   sql.NullString
	progressPercent sql.NullFloat64
	progressMessage sql.NullString
	lastHeartbeat   sql.NullString
	needsReview     sql.NullInt64
	reviewReason    sql.NullString
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var row itemRow
	if err := scanner.Scan(
		&row.id,
		&row.sourcePath,
		&row.title,
		&row.status,
		&row.mediaInfo,
		&row.transcriptPath,
		&row.captionPath,
		&row.language,
		&row.durationSeconds,
		&row.cueCount,
		&row.errorMessage,
		&row.createdAt,
		&row.updatedAt,
		&row.progressStage,
		&row.progressPercent,
		&row.progressMessage,
		&row.lastHeartbeat,
		&row.needsReview,
		&row.reviewReason,
	); err != nil {
		return nil, err
	}
	return row.toItem(), nil
}

// toItem converts scanned values to an Item, treating unparseable timestamps
// as unset rather than failing the whole read.
func (r itemRow) toItem() *Item {
	item := &Item{
		ID:              r.id,
		SourcePath:      r.sourcePath.String,
		Title:           r.title.String,
		Status:          Status(r.status),
		MediaInfoJSON:   r.mediaInfo.String,
		TranscriptPath:  r.transcriptPath.String,
		CaptionPath:     r.captionPath.String,
		Language:        r.language.String,
		DurationSeconds: r.durationSeconds.Float64,
		CueCount:        r.cueCount.Int64,
		ErrorMessage:    r.errorMessage.String,
		ProgressStage:   r.progressStage.String,
		ProgressPercent: r.progressPercent.Float64,
		ProgressMessage: r.progressMessage.String,
		NeedsReview:     r.needsReview.Valid && r.needsReview.Int64 != 0,
		ReviewReason:    r.reviewReason.String,
	}

	if created, err := parseTimeString(r.createdAt.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(r.updatedAt.String); err == nil {
		item.UpdatedAt = updated
	}
	if r.lastHeartbeat.Valid {
		if heartbeat, err := parseTimeString(r.lastHeartbeat.String); err == nil {
			item.LastHeartbeat = &heartbeat
		}
	}
	return item
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// Timestamps are written as RFC 3339; the plain datetime layout covers rows
// touched by external sqlite tooling.
var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05"}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}
