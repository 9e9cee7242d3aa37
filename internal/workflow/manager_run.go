package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"quill/internal/logging"
	"quill/internal/queue"
)

// Start launches one worker goroutine per configured lane. Calling it on a
// running manager, or before any stages are registered, is an error.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	lanes := m.configuredLanes()
	if len(lanes) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	for _, lane := range lanes {
		lane.logger = m.laneLogger(lane)
	}
	m.wg.Add(len(lanes))
	m.mu.Unlock()

	for _, lane := range lanes {
		go m.runLane(runCtx, lane)
	}
	return nil
}

// configuredLanes returns the lanes that have a handler attached, in
// registration order. Caller must hold m.mu.
func (m *Manager) configuredLanes() []*laneState {
	lanes := make([]*laneState, 0, len(m.laneOrder))
	for _, kind := range m.laneOrder {
		if lane := m.lanes[kind]; lane != nil && lane.handler != nil {
			lanes = append(lanes, lane)
		}
	}
	return lanes
}

// Stop cancels the run context and blocks until every lane worker exits.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// runLane drives one lane until shutdown: reclaim anything whose heartbeat
// expired, claim the next item at the lane's start status, process it, and
// go around again. An empty queue parks the worker for a poll interval.
func (m *Manager) runLane(ctx context.Context, lane *laneState) {
	defer m.wg.Done()
	if lane == nil {
		return
	}
	logger := lane.logger
	if logger == nil {
		logger = m.logger
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	for ctx.Err() == nil {
		if err := m.heartbeat.ReclaimStaleItems(ctx, logger, []queue.Status{lane.processingStatus}); err != nil {
			logger.Warn("stale item reclaim failed; orphaned work may sit until next pass",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}

		item, err := m.store.NextForStatuses(ctx, lane.startStatus)
		if err != nil {
			m.backoffAfterFetchError(ctx, logger, err)
			continue
		}
		if item == nil {
			m.idle(ctx)
			continue
		}

		if err := m.processItem(ctx, lane, logger, item); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

// backoffAfterFetchError records a queue read failure and sleeps for the
// configured error retry interval so a broken database does not spin the
// worker.
func (m *Manager) backoffAfterFetchError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("could not read next queue item",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_fetch_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(m.cfg.Workflow.ErrorRetryInterval) * time.Second):
	}
}

// idle sleeps one poll interval or until shutdown, whichever comes first.
func (m *Manager) idle(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}
