package workflow

import (
	"context"

	"quill/internal/logging"
	"quill/internal/queue"
	"quill/internal/stage"
)

// StatusSummary is a point-in-time snapshot of workflow state.
type StatusSummary struct {
	Running     bool
	LastError   string
	LastItem    *queue.Item
	QueueStats  map[queue.Status]int
	StageHealth map[string]stage.Health
}

// Status reports current workflow state, queue statistics, and stage health.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{Running: m.running}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.lastItem != nil {
		copied := *m.lastItem
		summary.LastItem = &copied
	}
	handlers := make(map[string]stage.Handler)
	for _, kind := range m.laneOrder {
		lane := m.lanes[kind]
		if lane == nil || lane.handler == nil {
			continue
		}
		handlers[lane.stageName] = lane.handler
	}
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	} else {
		summary.QueueStats = stats
	}

	summary.StageHealth = make(map[string]stage.Health, len(handlers))
	for name, handler := range handlers {
		summary.StageHealth[name] = handler.HealthCheck(ctx)
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastItem(item *queue.Item) {
	if item == nil {
		return
	}
	copied := *item
	m.mu.Lock()
	m.lastItem = &copied
	m.mu.Unlock()
}
