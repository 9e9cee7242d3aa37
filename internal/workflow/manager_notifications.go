package workflow

import (
	"context"
	"fmt"
	"time"

	"quill/internal/logging"
	"quill/internal/queue"
)

func (m *Manager) notifyStageError(ctx context.Context, stageName string, item *queue.Item, stageErr error) {
	if m.notifier == nil || stageErr == nil {
		return
	}
	label := stageName
	if item != nil {
		label = fmt.Sprintf("%s (item #%d)", stageName, item.ID)
	}
	if err := m.notifier.NotifyError(ctx, stageErr, label); err != nil {
		m.logger.Warn("failed to send error notification", logging.Error(err))
	}
}

// onItemStarted fires the queue-started notification the first time an item
// enters processing after an idle period.
func (m *Manager) onItemStarted(ctx context.Context) {
	m.mu.Lock()
	if m.queueActive {
		m.mu.Unlock()
		return
	}
	m.queueActive = true
	m.queueStart = time.Now()
	m.mu.Unlock()

	if m.notifier == nil {
		return
	}
	count, err := m.countActiveItems(ctx)
	if err != nil {
		m.logger.Warn("failed to count queue items for notification", logging.Error(err))
		count = 0
	}
	if err := m.notifier.NotifyQueueStarted(ctx, count); err != nil {
		m.logger.Warn("failed to send queue started notification", logging.Error(err))
	}
}

// checkQueueCompletion fires the queue-completed notification once no items
// remain in a workable status.
func (m *Manager) checkQueueCompletion(ctx context.Context) {
	m.mu.RLock()
	active := m.queueActive
	start := m.queueStart
	m.mu.RUnlock()
	if !active {
		return
	}

	remaining, err := m.countActiveItems(ctx)
	if err != nil {
		m.logger.Warn("failed to count active queue items", logging.Error(err))
		return
	}
	if remaining > 0 {
		return
	}

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats for notification", logging.Error(err))
		return
	}

	m.mu.Lock()
	if !m.queueActive {
		m.mu.Unlock()
		return
	}
	m.queueActive = false
	m.mu.Unlock()

	if m.notifier == nil {
		return
	}
	processed := stats[queue.StatusCompleted]
	failed := stats[queue.StatusFailed] + stats[queue.StatusReview]
	if err := m.notifier.NotifyQueueCompleted(ctx, processed, failed, time.Since(start)); err != nil {
		m.logger.Warn("failed to send queue completed notification", logging.Error(err))
	}
}

// countActiveItems totals items sitting in any status the configured lanes
// pick up or hold while processing.
func (m *Manager) countActiveItems(ctx context.Context) (int, error) {
	stats, err := m.store.Stats(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, status := range m.activeStatuses() {
		total += stats[status]
	}
	return total, nil
}

func (m *Manager) activeStatuses() []queue.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[queue.Status]struct{})
	statuses := make([]queue.Status, 0, 4)
	appendStatus := func(status queue.Status) {
		if status == "" {
			return
		}
		if _, ok := seen[status]; ok {
			return
		}
		seen[status] = struct{}{}
		statuses = append(statuses, status)
	}
	for _, kind := range m.laneOrder {
		lane := m.lanes[kind]
		if lane == nil {
			continue
		}
		appendStatus(lane.startStatus)
		appendStatus(lane.processingStatus)
	}
	return statuses
}
