package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sort"
	"sync"
	"time"

	"quill/internal/daemon"
	"quill/internal/deps"
	"quill/internal/logging"
	"quill/internal/logs"
	"quill/internal/queue"
	"quill/internal/stage"
)

// Server answers CLI requests over a Unix domain socket using the JSON
// codec that ships with net/rpc.
type Server struct {
	socketPath string
	listener   net.Listener
	rpcServer  *rpc.Server
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer binds the control socket and registers the RPC handler under
// the Quill service name. A stale socket file from a previous run is
// replaced rather than treated as an error.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("nil daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	listener, err := bindSocket(path)
	if err != nil {
		return nil, err
	}

	rpcServer := rpc.NewServer()
	handler := &controlHandler{
		daemon: d,
		logger: logger.With(logging.String("component", "ipc")),
		ctx:    ctx,
	}
	if err := rpcServer.RegisterName("Quill", handler); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register control service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		socketPath: path,
		listener:   listener,
		rpcServer:  rpcServer,
		logger:     logger,
		ctx:        serverCtx,
		cancel:     cancel,
	}, nil
}

func bindSocket(path string) (net.Listener, error) {
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("clear stale socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("bind control socket: %w", err)
	}
	return listener, nil
}

// Serve starts accepting connections and returns immediately. Requests are
// handled on background goroutines until Close is called.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.socketPath))
	s.wg.Add(1)
	go s.acceptLoop()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.logger.Warn("control socket accept failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "ipc_accept_failed"),
				logging.String(logging.FieldImpact, "CLI connections may be refused"),
				logging.String(logging.FieldErrorHint, "check socket permissions; restart the daemon if it persists"))
			continue
		}
		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()
	s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(conn))
}

// Close stops the listener, waits for in-flight requests, and removes the
// socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.socketPath); err != nil {
		s.logger.Warn("could not remove control socket",
			logging.String("socket", s.socketPath),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale socket file may block the next start"),
			logging.String(logging.FieldErrorHint, "delete the socket file by hand or rerun quill stop"))
	}
}

// controlHandler carries the daemon reference every RPC method operates on.
// Its exported methods form the wire API; net/rpc dispatches to them by name.
type controlHandler struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

// logMutation records a completed queue mutation with its row count.
func (h *controlHandler) logMutation(event, message, countKey string, count int64) {
	h.logger.Info(message,
		logging.String(logging.FieldEventType, event),
		logging.Int64(countKey, count))
}

func (h *controlHandler) Start(_ NoArgs, resp *StartResponse) error {
	h.logger.Debug("daemon start requested")
	if err := h.daemon.Start(h.ctx); err != nil {
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	h.logger.Info("processing started over control socket",
		logging.String(logging.FieldEventType, "daemon_start"))
	return nil
}

func (h *controlHandler) Stop(_ NoArgs, resp *StopResponse) error {
	h.logger.Debug("daemon stop requested")
	h.daemon.Stop()
	resp.Stopped = true
	h.logger.Info("processing stopped over control socket",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (h *controlHandler) Status(_ NoArgs, resp *StatusResponse) error {
	status := h.daemon.Status(h.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.QueueDBPath = status.QueueDBPath
	resp.LockPath = status.LockFilePath
	resp.QueueStats = make(map[string]int, len(status.Workflow.QueueStats))
	for name, count := range status.Workflow.QueueStats {
		resp.QueueStats[string(name)] = count
	}
	resp.LastError = status.Workflow.LastError
	if last := status.Workflow.LastItem; last != nil {
		item := FromQueueItem(last)
		resp.LastItem = &item
	}
	resp.StageHealth = stageHealthList(status.Workflow.StageHealth)
	resp.Dependencies = dependencyList(status.Dependencies)
	return nil
}

// stageHealthList flattens the per-stage health map into a name-sorted slice
// so status output is stable across calls.
func stageHealthList(health map[string]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		entry := health[name]
		out = append(out, StageHealth{Name: name, Ready: entry.Ready, Detail: entry.Detail})
	}
	return out
}

func dependencyList(statuses []deps.Status) []DependencyStatus {
	if len(statuses) == 0 {
		return nil
	}
	out := make([]DependencyStatus, 0, len(statuses))
	for _, dep := range statuses {
		out = append(out, DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return out
}

func (h *controlHandler) AddFile(req AddFileRequest, resp *AddFileResponse) error {
	item, err := h.daemon.AddFile(h.ctx, req.Path)
	if err != nil {
		return err
	}
	resp.Item = FromQueueItem(item)
	return nil
}

func (h *controlHandler) QueueList(req QueueListRequest, resp *QueueListResponse) error {
	items, err := h.daemon.ListQueue(h.ctx, parseStatusNames(req.Statuses))
	if err != nil {
		return err
	}
	resp.Items = queueItemList(items)
	return nil
}

// parseStatusNames drops unknown status strings instead of failing the call,
// so older clients can list against a newer daemon.
func parseStatusNames(names []string) []queue.Status {
	statuses := make([]queue.Status, 0, len(names))
	for _, name := range names {
		if parsed, ok := queue.ParseStatus(name); ok {
			statuses = append(statuses, parsed)
		}
	}
	return statuses
}

func queueItemList(items []*queue.Item) []QueueItem {
	out := make([]QueueItem, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, FromQueueItem(item))
	}
	return out
}

func (h *controlHandler) QueueDescribe(req QueueDescribeRequest, resp *QueueDescribeResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("queue item id %d out of range", req.ID)
	}
	item, err := h.daemon.GetQueueItem(h.ctx, req.ID)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("queue item %d not found", req.ID)
	}
	resp.Item = FromQueueItem(item)
	return nil
}

func (h *controlHandler) QueueClear(_ NoArgs, resp *RemovedCount) error {
	h.logger.Debug("queue clear requested")
	removed, err := h.daemon.ClearQueue(h.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	h.logMutation("queue_clear", "queue cleared", "removed_count", removed)
	return nil
}

func (h *controlHandler) QueueClearCompleted(_ NoArgs, resp *RemovedCount) error {
	h.logger.Debug("queue clear completed requested")
	removed, err := h.daemon.ClearCompleted(h.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	h.logMutation("queue_clear_completed", "queue completed items cleared", "removed_count", removed)
	return nil
}

func (h *controlHandler) QueueClearFailed(_ NoArgs, resp *RemovedCount) error {
	h.logger.Debug("queue clear failed requested")
	removed, err := h.daemon.ClearFailed(h.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	h.logMutation("queue_clear_failed", "queue failed items cleared", "removed_count", removed)
	return nil
}

func (h *controlHandler) QueueReset(_ NoArgs, resp *UpdatedCount) error {
	h.logger.Debug("queue reset stuck requested")
	updated, err := h.daemon.ResetStuck(h.ctx)
	if err != nil {
		return err
	}
	resp.Updated = updated
	h.logMutation("queue_reset_stuck", "queue stuck items reset", "updated_count", updated)
	return nil
}

func (h *controlHandler) QueueRetry(req QueueRetryRequest, resp *UpdatedCount) error {
	h.logger.Debug("queue retry requested", logging.Int("item_count", len(req.IDs)))
	updated, err := h.daemon.RetryFailed(h.ctx, req.IDs)
	if err != nil {
		return err
	}
	resp.Updated = updated
	h.logMutation("queue_retry", "queue items retried", "updated_count", updated)
	return nil
}

func (h *controlHandler) QueueStop(req QueueStopRequest, resp *UpdatedCount) error {
	if len(req.IDs) == 0 {
		return errors.New("queue stop needs at least one item id")
	}
	h.logger.Debug("queue stop requested", logging.Int("item_count", len(req.IDs)))
	updated, err := h.daemon.StopQueueItems(h.ctx, req.IDs)
	if err != nil {
		return err
	}
	resp.Updated = updated
	h.logMutation("queue_stop", "queue items stopped", "updated_count", updated)
	return nil
}

func (h *controlHandler) QueueRemove(req QueueRemoveRequest, resp *RemovedCount) error {
	if len(req.IDs) == 0 {
		return errors.New("queue remove needs at least one item id")
	}
	h.logger.Debug("queue remove requested", logging.Int("item_count", len(req.IDs)))
	removed, err := h.daemon.RemoveQueueItems(h.ctx, req.IDs)
	if err != nil {
		return err
	}
	resp.Removed = removed
	h.logMutation("queue_remove", "queue items removed", "removed_count", removed)
	return nil
}

func (h *controlHandler) QueueHealth(_ NoArgs, resp *QueueHealthResponse) error {
	health, err := h.daemon.QueueHealth(h.ctx)
	if err != nil {
		return err
	}
	resp.Total = health.Total
	resp.Pending = health.Pending
	resp.Processing = health.Processing
	resp.Review = health.Review
	resp.Failed = health.Failed
	resp.Completed = health.Completed
	return nil
}

func (h *controlHandler) DatabaseHealth(_ NoArgs, resp *DatabaseHealthResponse) error {
	// Failures surface through the Error field so partial diagnostics still
	// reach the client; returning an error would drop the payload entirely.
	health, err := h.daemon.DatabaseHealth(h.ctx)
	resp.DBPath = health.DBPath
	resp.DatabaseExists = health.DatabaseExists
	resp.DatabaseReadable = health.DatabaseReadable
	resp.SchemaVersion = health.SchemaVersion
	resp.TableExists = health.TableExists
	resp.ColumnsPresent = append(resp.ColumnsPresent, health.ColumnsPresent...)
	resp.MissingColumns = append(resp.MissingColumns, health.MissingColumns...)
	resp.IntegrityCheck = health.IntegrityCheck
	resp.TotalItems = health.TotalItems
	resp.Error = health.Error
	if err != nil && resp.Error == "" {
		resp.Error = err.Error()
	}
	return nil
}

func (h *controlHandler) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := h.daemon.LogPath()
	if logPath == "" {
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	// Bound follow mode so a quiet log cannot hold the RPC open forever.
	ctx := h.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(h.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (h *controlHandler) TestNotification(_ NoArgs, resp *TestNotificationResponse) error {
	sent, message, err := h.daemon.TestNotification(h.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
