package ipc

import "quill/internal/queue"

// NoArgs stands in for RPC calls that carry no request payload. net/rpc
// insists on a concrete argument type even when there is nothing to send.
type NoArgs struct{}

// wireTimeFormat keeps item timestamps in RFC3339 with millisecond
// precision, so clients can sort them lexically.
const wireTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem is the wire shape of a queue row. Timestamps travel as
// formatted strings rather than time.Time so the JSON stays stable.
type QueueItem struct {
	ID              int64         `json:"id"`
	Title           string        `json:"title"`
	SourcePath      string        `json:"sourcePath"`
	Status          string        `json:"status"`
	Lane            string        `json:"lane"`
	Progress        QueueProgress `json:"progress"`
	ErrorMessage    string        `json:"errorMessage,omitempty"`
	CreatedAt       string        `json:"createdAt,omitempty"`
	UpdatedAt       string        `json:"updatedAt,omitempty"`
	TranscriptPath  string        `json:"transcriptPath,omitempty"`
	CaptionPath     string        `json:"captionPath,omitempty"`
	Language        string        `json:"language,omitempty"`
	CueCount        int64         `json:"cueCount,omitempty"`
	DurationSeconds float64       `json:"durationSeconds,omitempty"`
	NeedsReview     bool          `json:"needsReview"`
	ReviewReason    string        `json:"reviewReason,omitempty"`
}

// QueueProgress carries the stage, percentage, and message of an item's
// most recent progress update.
type QueueProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// FromQueueItem flattens a queue record into its wire shape. Zero
// timestamps become empty strings instead of the zero-time sentinel.
func FromQueueItem(item *queue.Item) QueueItem {
	if item == nil {
		return QueueItem{}
	}
	wire := QueueItem{
		ID:         item.ID,
		Title:      item.Title,
		SourcePath: item.SourcePath,
		Status:     string(item.Status),
		Lane:       string(queue.LaneForItem(item)),
		Progress: QueueProgress{
			Stage:   item.ProgressStage,
			Percent: item.ProgressPercent,
			Message: item.ProgressMessage,
		},
		ErrorMessage:    item.ErrorMessage,
		TranscriptPath:  item.TranscriptPath,
		CaptionPath:     item.CaptionPath,
		Language:        item.Language,
		CueCount:        item.CueCount,
		DurationSeconds: item.DurationSeconds,
		NeedsReview:     item.NeedsReview,
		ReviewReason:    item.ReviewReason,
	}
	if !item.CreatedAt.IsZero() {
		wire.CreatedAt = item.CreatedAt.UTC().Format(wireTimeFormat)
	}
	if !item.UpdatedAt.IsZero() {
		wire.UpdatedAt = item.UpdatedAt.UTC().Format(wireTimeFormat)
	}
	return wire
}

// StageHealth reports whether one workflow stage is ready to accept work.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus reports availability of one external tool or service.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
	Severity    string `json:"severity,omitempty"`
}

// StatusLine is one labeled readiness row in status output.
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// DependencySummary rolls dependency availability up into counts plus an
// overall severity.
type DependencySummary struct {
	Total           int    `json:"total"`
	Available       int    `json:"available"`
	MissingRequired int    `json:"missing_required"`
	MissingOptional int    `json:"missing_optional"`
	Severity        string `json:"severity"`
	Detail          string `json:"detail"`
}

// StartResponse tells the client whether processing actually started.
// Message explains a refusal, for example when preflight checks fail.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopResponse acknowledges a stop request.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusResponse is the full daemon status snapshot. SystemChecks,
// DirectoryChecks, and DependencySummary are filled in on the CLI side,
// not by the daemon.
type StatusResponse struct {
	Running           bool               `json:"running"`
	PID               int                `json:"pid"`
	QueueStats        map[string]int     `json:"queue_stats"`
	LastError         string             `json:"last_error"`
	LastItem          *QueueItem         `json:"last_item"`
	LockPath          string             `json:"lock_path"`
	QueueDBPath       string             `json:"queue_db_path"`
	StageHealth       []StageHealth      `json:"stage_health"`
	Dependencies      []DependencyStatus `json:"dependencies"`
	SystemChecks      []StatusLine       `json:"system_checks,omitempty"`
	DirectoryChecks   []StatusLine       `json:"directory_checks,omitempty"`
	DependencySummary DependencySummary  `json:"dependency_summary"`
}

// AddFileRequest names the media file to enqueue.
type AddFileRequest struct {
	Path string `json:"path"`
}

// AddFileResponse returns the created (or already-existing) queue item.
type AddFileResponse struct {
	Item QueueItem `json:"item"`
}

// QueueListRequest narrows a listing to the named statuses. An empty
// list means everything.
type QueueListRequest struct {
	Statuses []string `json:"statuses"`
}

// QueueListResponse holds the matching queue items.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueDescribeRequest selects one queue item by id.
type QueueDescribeRequest struct {
	ID int64 `json:"id"`
}

// QueueDescribeResponse holds the selected item.
type QueueDescribeResponse struct {
	Item QueueItem `json:"item"`
}

// QueueRetryRequest names the failed or review items to retry. An empty
// list retries everything eligible.
type QueueRetryRequest struct {
	IDs []int64 `json:"ids"`
}

// QueueStopRequest names the items to park for review. At least one id
// is required.
type QueueStopRequest struct {
	IDs []int64 `json:"ids"`
}

// QueueRemoveRequest names the items to delete outright. At least one id
// is required.
type QueueRemoveRequest struct {
	IDs []int64 `json:"ids"`
}

// RemovedCount is the shared response for calls that delete queue rows.
type RemovedCount struct {
	Removed int64 `json:"removed"`
}

// UpdatedCount is the shared response for calls that change queue rows
// in place.
type UpdatedCount struct {
	Updated int64 `json:"updated"`
}

// QueueHealthResponse breaks the queue down by status bucket.
type QueueHealthResponse struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Review     int `json:"review"`
	Failed     int `json:"failed"`
	Completed  int `json:"completed"`
}

// DatabaseHealthResponse carries the database diagnostics the doctor
// command renders. Error is set instead of failing the call so partial
// results still reach the client.
type DatabaseHealthResponse struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    string   `json:"schema_version"`
	TableExists      bool     `json:"table_exists"`
	ColumnsPresent   []string `json:"columns_present"`
	MissingColumns   []string `json:"missing_columns"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalItems       int      `json:"total_items"`
	Error            string   `json:"error"`
}

// LogTailRequest asks for log lines starting at Offset. A negative
// offset means "the last Limit lines". Follow blocks up to WaitMillis
// for new output before returning.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns the lines read and the offset to resume from.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationResponse reports whether the test notification went
// out and what the notifier said about it.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
