package queue

import (
	"strings"
	"time"
)

// Status names a position in the item lifecycle. Items move pending ->
// transcribing -> transcribed -> exporting -> completed, with failed and
// review as terminal side exits.
type Status string

const (
	StatusPending      Status = "pending"
	StatusTranscribing Status = "transcribing"
	StatusTranscribed  Status = "transcribed"
	StatusExporting    Status = "exporting"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusReview       Status = "review"
)

// UserStopReason marks items parked because the user asked for a stop.
const UserStopReason = "Stopped at user request"

// DaemonStopReason marks items failed because the daemon shut down under them.
const DaemonStopReason = "Interrupted by daemon shutdown"

var allStatuses = []Status{
	StatusPending,
	StatusTranscribing,
	StatusTranscribed,
	StatusExporting,
	StatusCompleted,
	StatusFailed,
	StatusReview,
}

// rollbackTargets maps each in-flight status to the settled status an
// interrupted item is returned to on recovery.
var rollbackTargets = map[Status]Status{
	StatusTranscribing: StatusPending,
	StatusExporting:    StatusTranscribed,
}

func rollbackTarget(from Status) (Status, bool) {
	to, ok := rollbackTargets[from]
	return to, ok
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}

// HealthSummary holds per-bucket counts for the health report.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Review     int
	Failed     int
	Completed  int
}

// Item is one row of the work queue as persisted in SQLite.
type Item struct {
	ID              int64
	SourcePath      string
	Title           string
	Status          Status
	MediaInfoJSON   string
	TranscriptPath  string
	CaptionPath     string
	Language        string
	DurationSeconds float64
	CueCount        int64
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	LastHeartbeat   *time.Time
	NeedsReview     bool
	ReviewReason    string
}

// AllStatuses returns the known statuses in lifecycle order.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus maps a user-supplied string onto a known Status, ignoring
// case and surrounding whitespace.
func ParseStatus(value string) (Status, bool) {
	switch candidate := Status(strings.ToLower(strings.TrimSpace(value))); candidate {
	case StatusPending, StatusTranscribing, StatusTranscribed,
		StatusExporting, StatusCompleted, StatusFailed, StatusReview:
		return candidate, true
	default:
		return "", false
	}
}

// IsProcessing reports whether the item currently holds a worker.
func (i Item) IsProcessing() bool {
	return IsProcessingStatus(i.Status)
}

// IsProcessingStatus reports whether a status means a worker is (or was)
// actively on the item.
func IsProcessingStatus(status Status) bool {
	return status == StatusTranscribing || status == StatusExporting
}

// IsUserStopReason reports whether a stored review reason came from an
// explicit user stop rather than a pipeline failure.
func IsUserStopReason(reason string) bool {
	return strings.EqualFold(strings.TrimSpace(reason), UserStopReason)
}

// InitProgress primes the progress fields for a stage that is about to
// run. An already-set stage name survives so resumed items keep their
// original label. Any stale error message is cleared.
func (i *Item) InitProgress(stage, message string) {
	if i.ProgressStage == "" {
		i.ProgressStage = stage
	}
	i.ProgressMessage = message
	i.ProgressPercent = 0
	i.ErrorMessage = ""
}

// SetProgress writes stage, message, and percent together so readers
// never see a stage paired with another stage's percentage.
func (i *Item) SetProgress(stage, message string, percent float64) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = percent
}

// SetProgressComplete records a finished stage at 100%.
func (i *Item) SetProgressComplete(stage, message string) {
	i.SetProgress(stage, message, 100)
}

// SetFailed moves the item to failed and mirrors the error into the
// progress message so listings show it without a second lookup.
func (i *Item) SetFailed(message string) {
	i.Status = StatusFailed
	i.ErrorMessage = message
	i.ProgressPercent = 0
	i.ProgressMessage = message
	i.LastHeartbeat = nil
	i.ProgressStage = "Failed"
}

// SetReview parks the item for manual attention. The reason lands in
// both ReviewReason and ProgressMessage, again so listings explain
// themselves.
func (i *Item) SetReview(reason string) {
	i.Status = StatusReview
	i.NeedsReview = true
	i.ReviewReason = reason
	i.ProgressMessage = reason
	i.LastHeartbeat = nil
	i.ProgressStage = "Review"
}

// IsInWorkflow reports whether the item is still moving through stages.
// Adding the same source file again while this is true returns the
// existing item instead of creating a duplicate.
func (i Item) IsInWorkflow() bool {
	if i.IsProcessing() {
		return true
	}
	switch i.Status {
	case StatusPending, StatusTranscribed, StatusCompleted:
		return true
	default:
		return false
	}
}

// ProcessingLane splits the workflow into the network-bound
// transcription half and the local export half, so each can drain at
// its own pace.
type ProcessingLane string

const (
	LaneTranscribe ProcessingLane = "transcribe"
	LaneExport     ProcessingLane = "export"
)

// LaneForItem assigns an item to a lane by status. Failed and review
// items land in the export lane once a transcript exists, since retrying
// them skips straight to export.
func LaneForItem(item *Item) ProcessingLane {
	if item == nil {
		return LaneTranscribe
	}
	switch item.Status {
	case StatusPending, StatusTranscribing:
		return LaneTranscribe
	case StatusTranscribed, StatusExporting, StatusCompleted:
		return LaneExport
	case StatusFailed, StatusReview:
		if item.TranscriptPath != "" {
			return LaneExport
		}
		return LaneTranscribe
	default:
		return LaneTranscribe
	}
}
