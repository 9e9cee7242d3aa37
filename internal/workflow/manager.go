package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"quill/internal/config"
	"quill/internal/notifications"
	"quill/internal/queue"
)

// Manager owns the lane workers that move queue items through their
// stages. Handlers are registered per lane before Start.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	pollInterval time.Duration
	notifier     notifications.Service

	heartbeat *HeartbeatMonitor

	lanes     map[laneKind]*laneState
	laneOrder []laneKind

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastErr  error
	lastItem *queue.Item

	queueActive bool
	queueStart  time.Time
}

// NewManager builds a manager with the notifier the config describes.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier is NewManager with the notifier swapped out, for
// tests that capture notifications.
func NewManagerWithNotifier(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	heartbeatEvery := time.Duration(cfg.Workflow.HeartbeatInterval) * time.Second
	heartbeatDeadline := time.Duration(cfg.Workflow.HeartbeatTimeout) * time.Second
	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		notifier:     notifier,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		heartbeat:    NewHeartbeatMonitor(store, logger, heartbeatEvery, heartbeatDeadline),
		lanes:        make(map[laneKind]*laneState),
	}
}
