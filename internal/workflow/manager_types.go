package workflow

import (
	"log/slog"

	"quill/internal/queue"
	"quill/internal/stage"
)

// StageSet bundles the concrete workflow handlers the manager orchestrates.
type StageSet struct {
	Transcriber stage.Handler
	Exporter    stage.Handler
}

type laneKind string

const (
	laneTranscribe laneKind = "transcribe"
	laneExport     laneKind = "export"
)

// laneState drives one worker goroutine. A lane runs a single stage: it
// claims items sitting at startStatus, holds them at processingStatus while
// the handler works, and advances them to doneStatus on success.
type laneState struct {
	kind             laneKind
	name             string
	stageName        string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status

	logger *slog.Logger

	// notificationsEnabled gates the queue-started notification so only the
	// intake lane announces fresh work.
	notificationsEnabled bool
}
