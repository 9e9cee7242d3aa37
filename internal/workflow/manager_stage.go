package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"quill/internal/logging"
	"quill/internal/queue"
	"quill/internal/stage"
)

// loggerAware lets stage handlers receive the per-item logger the manager
// builds for each execution.
type loggerAware interface {
	SetLogger(*slog.Logger)
}

// processItem runs one queue item through its lane's stage handler: claim
// it, execute under heartbeat, persist the outcome.
func (m *Manager) processItem(ctx context.Context, lane *laneState, laneLogger *slog.Logger, item *queue.Item) error {
	if item.Status != lane.startStatus {
		if laneLogger == nil {
			laneLogger = m.logger
		}
		if laneLogger == nil {
			laneLogger = logging.NewNop()
		}
		laneLogger.Warn("item status does not match lane", logging.String("status", string(item.Status)))
		m.idle(ctx)
		return nil
	}

	requestID := uuid.NewString()
	stageCtx := withStageContext(ctx, lane, lane.stageName, item, requestID)
	stageLogger := m.stageLoggerForLane(stageCtx, lane, laneLogger, item)
	if aware, ok := lane.handler.(loggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	if err := m.claimItem(stageCtx, lane, item); err != nil {
		stageLogger.Error("could not claim item for processing", logging.Error(err))
		m.setLastError(err)
		return err
	}

	return m.runStage(stageCtx, lane, stageLogger, item)
}

// runStage executes the handler's Prepare and Execute phases against the
// claimed item, persisting item state after each phase. Cancellation is
// passed through untouched so the lane loop can tell shutdown from failure.
func (m *Manager) runStage(ctx context.Context, lane *laneState, stageLogger *slog.Logger, item *queue.Item) error {
	began := time.Now()
	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(lane.processingStatus)),
		logging.String("title", strings.TrimSpace(item.Title)),
		logging.String("source_file", strings.TrimSpace(item.SourcePath)),
	)

	if err := lane.handler.Prepare(ctx, item); err != nil {
		m.handleStageFailure(ctx, lane.stageName, item, err)
		m.setLastError(err)
		return err
	}
	if err := m.store.Update(ctx, item); err != nil {
		saveErr := fmt.Errorf("save prepared item: %w", err)
		stageLogger.Error("could not save prepared item", logging.Error(saveErr))
		m.setLastError(saveErr)
		return saveErr
	}

	if execErr := m.executeUnderHeartbeat(ctx, lane.handler, item); execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			stageLogger.Debug("stage cut short by shutdown")
			return execErr
		}
		m.handleStageFailure(ctx, lane.stageName, item, execErr)
		m.setLastError(execErr)
		return execErr
	}

	if item.Status == lane.processingStatus || item.Status == "" {
		item.Status = lane.doneStatus
	}
	item.LastHeartbeat = nil
	if item.Status == queue.StatusCompleted {
		normalizeCompletedProgress(item)
	}
	if err := m.store.Update(ctx, item); err != nil {
		saveErr := fmt.Errorf("save stage outcome: %w", err)
		stageLogger.Error("could not save stage outcome", logging.Error(saveErr))
		m.setLastError(saveErr)
		return saveErr
	}
	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(item.Status)),
		logging.String("progress_stage", strings.TrimSpace(item.ProgressStage)),
		logging.String("progress_message", strings.TrimSpace(item.ProgressMessage)),
		logging.Duration("elapsed", time.Since(began)),
	)
	m.setLastItem(item)
	m.checkQueueCompletion(ctx)
	return nil
}

// normalizeCompletedProgress makes a completed item read as completed: the
// stage label and message are filled in and percent is forced to 100.
// Review labels are left alone so parked-then-finished items keep their
// explanation.
func normalizeCompletedProgress(item *queue.Item) {
	label := strings.TrimSpace(item.ProgressStage)
	if !item.NeedsReview && !strings.Contains(strings.ToLower(label), "review") {
		item.ProgressStage = deriveStageLabel(queue.StatusCompleted)
	}
	if item.ProgressPercent < 100 {
		item.ProgressPercent = 100
	}
	if strings.TrimSpace(item.ProgressMessage) == "" {
		item.ProgressMessage = deriveStageLabel(queue.StatusCompleted)
	}
}

// executeUnderHeartbeat runs Execute while a background loop refreshes the
// item's heartbeat, and tears the loop down before returning.
func (m *Manager) executeUnderHeartbeat(ctx context.Context, handler stage.Handler, item *queue.Item) error {
	beatCtx, stopBeat := context.WithCancel(ctx)
	var beats sync.WaitGroup
	beats.Add(1)
	go m.heartbeat.StartLoop(beatCtx, &beats, item.ID)

	execErr := handler.Execute(ctx, item)
	stopBeat()
	beats.Wait()
	return execErr
}

// claimItem flips the item into the lane's processing status and persists
// the claim so other workers skip it.
func (m *Manager) claimItem(ctx context.Context, lane *laneState, item *queue.Item) error {
	markClaimed(item, lane.processingStatus)
	if err := m.store.Update(ctx, item); err != nil {
		return fmt.Errorf("save processing claim: %w", err)
	}
	m.setLastItem(item)
	if lane.notificationsEnabled {
		m.onItemStarted(ctx)
	}
	return nil
}

// markClaimed resets progress bookkeeping for a fresh claim while keeping
// any stage label a resumed item already carries.
func markClaimed(item *queue.Item, processing queue.Status) {
	now := time.Now().UTC()
	item.Status = processing
	if item.ProgressStage == "" {
		item.ProgressStage = deriveStageLabel(processing)
	}
	if item.ProgressMessage == "" {
		item.ProgressMessage = fmt.Sprintf("%s started", deriveStageLabel(processing))
	}
	item.ProgressPercent = 0
	item.ErrorMessage = ""
	item.LastHeartbeat = &now
}
