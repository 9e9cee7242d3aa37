package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"quill/internal/logging"
	"quill/internal/queue"
)

const defaultHeartbeatInterval = 30 * time.Second

// HeartbeatMonitor keeps processing items marked alive and reclaims items
// whose worker stopped heartbeating, typically after a daemon crash.
type HeartbeatMonitor struct {
	store    *queue.Store
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
}

func NewHeartbeatMonitor(store *queue.Store, logger *slog.Logger, interval, timeout time.Duration) *HeartbeatMonitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &HeartbeatMonitor{
		store:    store,
		logger:   logging.NewComponentLogger(logger, "workflow-heartbeat"),
		interval: interval,
		timeout:  timeout,
	}
}

// ReclaimStaleItems rolls items in the given processing statuses back to
// their start status when their heartbeat is older than the timeout.
func (h *HeartbeatMonitor) ReclaimStaleItems(ctx context.Context, logger *slog.Logger, statuses []queue.Status) error {
	if h == nil || h.store == nil || len(statuses) == 0 {
		return nil
	}
	if logger == nil {
		logger = h.logger
	}

	cutoff := time.Now().UTC().Add(-h.timeout)
	reclaimed, err := h.store.ReclaimStaleProcessing(ctx, cutoff, statuses...)
	if err != nil {
		return err
	}
	if reclaimed > 0 {
		logger.Warn("reclaimed stale processing items",
			logging.Int64("reclaimed", reclaimed),
			logging.Duration("heartbeat_timeout", h.timeout),
			logging.String(logging.FieldEventType, "heartbeat_reclaim"),
		)
	}
	return nil
}

// StartLoop refreshes the heartbeat for an item until the context is
// cancelled. It runs as a goroutine per in-flight stage execution.
func (h *HeartbeatMonitor) StartLoop(ctx context.Context, wg *sync.WaitGroup, itemID int64) {
	defer wg.Done()
	if h == nil || h.store == nil {
		return
	}
	ticker := time.NewTicker(h.tickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !h.refresh(ctx, itemID) {
				return
			}
		}
	}
}

// refresh writes one heartbeat, reporting false once the context has ended.
// Other write failures are logged and retried on the next tick.
func (h *HeartbeatMonitor) refresh(ctx context.Context, itemID int64) bool {
	err := h.store.UpdateHeartbeat(ctx, itemID)
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	h.logger.Warn("failed to update heartbeat",
		logging.Int64(logging.FieldItemID, itemID),
		logging.Error(err),
	)
	return true
}

func (h *HeartbeatMonitor) tickInterval() time.Duration {
	if h.interval > 0 {
		return h.interval
	}
	return defaultHeartbeatInterval
}
