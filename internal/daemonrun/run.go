package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"quill/internal/config"
	"quill/internal/daemon"
	"quill/internal/exporting"
	"quill/internal/ipc"
	"quill/internal/logging"
	"quill/internal/notifications"
	"quill/internal/preflight"
	"quill/internal/queue"
	"quill/internal/transcribing"
	"quill/internal/workflow"
)

// Options carries the process-level knobs the daemon entrypoint accepts.
type Options struct {
	LogLevel    string
	SocketPath  string
	Development bool
}

// Run starts the quill daemon runtime loop. It blocks until the context is
// cancelled or the process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	runCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Logging.Level = level
	}
	if opts.Development {
		cfg.Logging.Level = "debug"
	}

	logPath := filepath.Join(cfg.Paths.LogDir, logging.DaemonLogFilename)
	rotated, rotateErr := rotatePreviousLog(logPath)
	if rotateErr != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to rotate previous daemon log: %v\n", rotateErr)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("logger setup: %w", err)
	}
	if rotated != "" {
		logger.Info("previous daemon log rotated",
			logging.String("path", rotated),
			logging.String(logging.FieldEventType, "log_rotated"),
		)
	}

	logToolAvailability(logger, cfg)
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "quilld-*.log"},
	)

	pidPath := filepath.Join(cfg.Paths.LogDir, "quilld.pid")
	if err := recordPID(pidPath); err != nil {
		return fmt.Errorf("pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("queue store unavailable", logging.Error(err))
		return err
	}
	defer store.Close()

	notifier := notifications.NewService(cfg)
	workflowManager := workflow.NewManagerWithNotifier(cfg, store, logger, notifier)
	attachStages(workflowManager, cfg, store, logger)

	reportPreflight(runCtx, logger, cfg)

	d, err := daemon.New(cfg, store, logger, workflowManager)
	if err != nil {
		return fmt.Errorf("daemon setup: %w", err)
	}
	defer d.Close()

	socketPath := strings.TrimSpace(opts.SocketPath)
	if socketPath == "" {
		socketPath = filepath.Join(cfg.Paths.LogDir, "quill.sock")
	}
	ipcServer, err := ipc.NewServer(runCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("control socket: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(runCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and queue database access"),
			logging.String(logging.FieldImpact, "daemon may not process queue items"),
		)
	}

	<-runCtx.Done()
	logger.Info("quill daemon shutting down")
	return nil
}

func attachStages(mgr *workflow.Manager, cfg *config.Config, store *queue.Store, logger *slog.Logger) {
	if mgr == nil || cfg == nil {
		return
	}
	mgr.ConfigureStages(workflow.StageSet{
		Transcriber: transcribing.NewTranscriber(cfg, store, logger),
		Exporter:    exporting.NewExporter(cfg, store, logger),
	})
}

// rotatePreviousLog moves an existing daemon log aside so each run starts
// with a fresh file while older runs stay available for retention pruning.
func rotatePreviousLog(logPath string) (string, error) {
	info, err := os.Stat(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	if info.Size() == 0 {
		return "", nil
	}
	stamp := info.ModTime().UTC().Format("20060102T150405Z")
	rotated := filepath.Join(filepath.Dir(logPath), fmt.Sprintf("quilld-%s.log", stamp))
	if _, err := os.Stat(rotated); err == nil {
		stamp = time.Now().UTC().Format("20060102T150405.000Z")
		rotated = filepath.Join(filepath.Dir(logPath), fmt.Sprintf("quilld-%s.log", stamp))
	}
	if err := os.Rename(logPath, rotated); err != nil {
		return "", err
	}
	return rotated, nil
}

func recordPID(path string) error {
	if path == "" {
		return nil
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

func reportPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, result := range preflight.RunAll(ctx, cfg) {
		if result.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", result.Name),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
			continue
		}
		logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String(logging.FieldErrorHint, "fix the reported path or credential before queueing work"),
			logging.String(logging.FieldImpact, "queue items may fail until this is resolved"),
		)
	}
}

func logToolAvailability(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	ffprobe := cfg.FFprobeBinary()
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("speech_key_present", strings.TrimSpace(cfg.Speech.APIKey) != ""),
		logging.String("speech_model", strings.TrimSpace(cfg.Speech.Model)),
		logging.Bool("ffprobe_available", onPath(ffprobe)),
		logging.String("ffprobe_binary", ffprobe),
		logging.Bool("notifications_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
	)
}

func onPath(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
