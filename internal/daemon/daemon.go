package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"quill/internal/config"
	"quill/internal/deps"
	"quill/internal/logging"
	"quill/internal/media"
	"quill/internal/notifications"
	"quill/internal/preflight"
	"quill/internal/queue"
	"quill/internal/workflow"
)

const lockFilename = "quilld.lock"

// Daemon coordinates the background services and enforces single-instance
// execution through a file lock under the log directory.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	notifier notifications.Service
	logPath  string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status is a point-in-time snapshot of the daemon and its workflow.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	QueueDBPath  string
	LockFilePath string
	Dependencies []deps.Status
}

// New wires a daemon around an already-opened store and workflow manager.
// Every collaborator is required.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || wf == nil {
		return nil, errors.New("config, store, logger, and workflow manager are all required")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, lockFilename)
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		notifier: notifications.NewService(cfg),
		logPath:  filepath.Join(cfg.Paths.LogDir, logging.DaemonLogFilename),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start takes the instance lock and brings the workflow manager up. A
// second Start on a running daemon is rejected.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("take daemon lock: %w", err)
	}
	if !ok {
		return errors.New("another quill daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.workflow.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start workflow manager: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("quill daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_start"))
	return nil
}

// Stop halts the workflow manager and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String("lock", d.lockPath))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("quill daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close shuts processing down and closes the queue store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// queueStore guards every queue-backed operation against a daemon built
// without a store.
func (d *Daemon) queueStore() (*queue.Store, error) {
	if d.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	return d.store, nil
}

// AddFile enqueues a media file for transcription. Re-adding a path that is
// already queued returns the existing item instead of creating a duplicate.
func (d *Daemon) AddFile(ctx context.Context, sourcePath string) (*queue.Item, error) {
	store, err := d.queueStore()
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(sourcePath)
	if trimmed == "" {
		return nil, errors.New("empty source path")
	}
	absPath, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("absolutize source path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("source %q is a directory, not a file", absPath)
	}
	if !media.IsSupportedPath(absPath) {
		return nil, fmt.Errorf("unsupported file extension %q (supported: %s)",
			filepath.Ext(absPath), strings.Join(media.SupportedExtensions(), ", "))
	}

	if existing, err := store.FindBySourcePath(ctx, absPath); err == nil && existing != nil && existing.IsInWorkflow() {
		d.logger.Debug("file already queued",
			logging.Int64(logging.FieldItemID, existing.ID),
			logging.String("source", absPath))
		return existing, nil
	}

	item, err := store.NewFile(ctx, absPath)
	if err != nil {
		return nil, fmt.Errorf("enqueue file: %w", err)
	}
	d.logger.Info("file queued for transcription",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String("source", absPath),
		logging.String(logging.FieldEventType, "file_added"))
	if d.notifier != nil {
		if err := d.notifier.NotifyFileAdded(ctx, item.Title); err != nil {
			d.logger.Warn("file added notification failed", logging.Error(err))
		}
	}
	return item, nil
}

// ListQueue lists queue items, narrowed to the given statuses when any
// are supplied.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Item, error) {
	store, err := d.queueStore()
	if err != nil {
		return nil, err
	}
	return store.List(ctx, statuses...)
}

// GetQueueItem looks one queue item up by id.
func (d *Daemon) GetQueueItem(ctx context.Context, id int64) (*queue.Item, error) {
	store, err := d.queueStore()
	if err != nil {
		return nil, err
	}
	return store.GetByID(ctx, id)
}

// ClearQueue deletes every queue item.
func (d *Daemon) ClearQueue(ctx context.Context) (int64, error) {
	store, err := d.queueStore()
	if err != nil {
		return 0, err
	}
	return store.Clear(ctx)
}

// ClearCompleted deletes items that finished successfully.
func (d *Daemon) ClearCompleted(ctx context.Context) (int64, error) {
	store, err := d.queueStore()
	if err != nil {
		return 0, err
	}
	return store.ClearCompleted(ctx)
}

// ClearFailed deletes items that ended in the failed status.
func (d *Daemon) ClearFailed(ctx context.Context) (int64, error) {
	store, err := d.queueStore()
	if err != nil {
		return 0, err
	}
	return store.ClearFailed(ctx)
}

// ResetStuck rolls in-flight items back to the start of their stage.
func (d *Daemon) ResetStuck(ctx context.Context) (int64, error) {
	store, err := d.queueStore()
	if err != nil {
		return 0, err
	}
	return store.ResetStuckProcessing(ctx)
}

// RetryFailed moves failed and review-parked items back to pending. With
// ids it retries only that subset.
func (d *Daemon) RetryFailed(ctx context.Context, ids []int64) (int64, error) {
	store, err := d.queueStore()
	if err != nil {
		return 0, err
	}
	return store.RetryFailed(ctx, ids...)
}

// StopQueueItems parks the given items for review with a user-stop reason so
// the workflow skips them until a retry is requested.
func (d *Daemon) StopQueueItems(ctx context.Context, ids []int64) (int64, error) {
	store, err := d.queueStore()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, errors.New("no queue item ids supplied")
	}

	updated, err := store.StopItems(ctx, ids...)
	if err != nil {
		return updated, fmt.Errorf("stop queue items: %w", err)
	}
	if updated > 0 {
		d.logger.Info("queue items stopped",
			logging.Int64("stopped_count", updated),
			logging.String(logging.FieldEventType, "queue_item_stopped"))
	}
	return updated, nil
}

// RemoveQueueItems deletes the given items from the queue regardless of
// status. Unknown ids are skipped.
func (d *Daemon) RemoveQueueItems(ctx context.Context, ids []int64) (int64, error) {
	store, err := d.queueStore()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, errors.New("no queue item ids supplied")
	}

	var removed int64
	for _, id := range ids {
		ok, err := store.Remove(ctx, id)
		if err != nil {
			return removed, fmt.Errorf("remove queue item %d: %w", id, err)
		}
		if !ok {
			continue
		}
		removed++
		d.logger.Info("queue item removed",
			logging.Int64(logging.FieldItemID, id),
			logging.String(logging.FieldEventType, "queue_item_removed"))
	}
	return removed, nil
}

// QueueHealth returns per-bucket queue counts.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	store, err := d.queueStore()
	if err != nil {
		return queue.HealthSummary{}, err
	}
	return store.Health(ctx)
}

// DatabaseHealth runs the queue database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	store, err := d.queueStore()
	if err != nil {
		return queue.DatabaseHealth{}, err
	}
	return store.CheckHealth(ctx)
}

// TestNotification pushes a canned message through the configured ntfy
// topic, reporting whether anything was actually sent.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := d.notifier
	if notifier == nil {
		notifier = notifications.NewService(d.cfg)
	}
	testCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := notifier.TestNotification(testCtx); err != nil {
		return false, "notification delivery failed", err
	}
	return true, "test notification sent", nil
}

// LogPath reports where the daemon writes its log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status assembles the full status snapshot, including workflow state and
// external dependency checks.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     d.workflow.Status(ctx),
		QueueDBPath:  filepath.Join(d.cfg.Paths.LogDir, "queue.db"),
		LockFilePath: d.lockPath,
		Dependencies: preflight.CheckSystemDeps(d.cfg),
	}
}
