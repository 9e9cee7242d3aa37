package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"quill/internal/config"
	"quill/internal/ipc"
	"quill/internal/preflight"
	"quill/internal/queue"
)

// DaemonBinaryName is the daemon executable launched by EnsureStarted.
const DaemonBinaryName = "quilld"

const pollInterval = 200 * time.Millisecond

// LaunchOptions carries the flags passed to a freshly spawned daemon.
type LaunchOptions struct {
	SocketPath string
	ConfigPath string
	LogLevel   string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
	StartStateRequested      StartState = "start_requested"
)

// StartResult describes how a start attempt resolved: whether a new process
// was spawned and what the daemon said about it.
type StartResult struct {
	State    StartState
	Launched bool
	Message  string
}

// StopResult describes how a stop attempt resolved, including whether the
// process had to be killed outright.
type StopResult struct {
	StopAcknowledged bool
	ForcedKill       bool
	PID              int
}

// RestartResult bundles the stop and start halves of a restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// ErrDaemonNotRunning means nothing answered on the control socket.
var ErrDaemonNotRunning = errors.New("daemon not running")

// IsDaemonUnavailable reports whether a dial error means no daemon is
// listening, as opposed to a daemon that answered with a failure.
func IsDaemonUnavailable(err error) bool {
	return os.IsNotExist(err) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

// socketAbsent reports the narrower condition of the socket file itself being
// gone, which during shutdown means the daemon has finished cleaning up.
func socketAbsent(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// ResolveDaemonExecutable locates the daemon binary. A sibling of the current
// executable wins over a PATH lookup so side-by-side installs stay paired.
func ResolveDaemonExecutable() (string, error) {
	if self, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(self), DaemonBinaryName)
		if info, statErr := os.Stat(sibling); statErr == nil && !info.IsDir() {
			return sibling, nil
		}
	}
	path, err := exec.LookPath(DaemonBinaryName)
	if err != nil {
		return "", fmt.Errorf("locate %s binary: %w", DaemonBinaryName, err)
	}
	return path, nil
}

// Launch spawns a detached quilld process and releases it.
func Launch(binPath string, opts LaunchOptions) error {
	if strings.TrimSpace(binPath) == "" {
		return errors.New("daemon executable path is empty")
	}
	proc := exec.Command(binPath, launchArgs(opts)...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("spawn daemon: %w", err)
	}
	return proc.Process.Release()
}

func launchArgs(opts LaunchOptions) []string {
	var args []string
	appendFlag := func(flag, value string) {
		if v := strings.TrimSpace(value); v != "" {
			args = append(args, flag, v)
		}
	}
	appendFlag("--socket", opts.SocketPath)
	appendFlag("--config", opts.ConfigPath)
	appendFlag("--log-level", opts.LogLevel)
	return args
}

// pollUntil retries fn every pollInterval until it reports done or the
// timeout elapses. It returns the last error fn produced, or fallback when
// fn never produced one.
func pollUntil(timeout time.Duration, fallback error, fn func() (bool, error)) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		done, err := fn()
		if done {
			return nil
		}
		if err != nil {
			lastErr = err
		}
		time.Sleep(pollInterval)
	}
	if lastErr != nil {
		return lastErr
	}
	return fallback
}

// WaitForClient polls the control socket until something answers, then hands
// back the connected client.
func WaitForClient(socket string, timeout time.Duration) (*ipc.Client, error) {
	var client *ipc.Client
	err := pollUntil(timeout, errors.New("timed out waiting for socket"), func() (bool, error) {
		c, dialErr := ipc.Dial(socket)
		if dialErr != nil {
			return false, dialErr
		}
		client = c
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("daemon failed to start: %w", err)
	}
	return client, nil
}

// WaitForShutdown polls until the socket vanishes or the daemon reports it is
// no longer running.
func WaitForShutdown(socket string, timeout time.Duration) error {
	err := pollUntil(timeout, errors.New("timed out waiting for shutdown"), func() (bool, error) {
		client, dialErr := ipc.Dial(socket)
		if dialErr != nil {
			if socketAbsent(dialErr) {
				return true, nil
			}
			return false, dialErr
		}
		status, statusErr := client.Status()
		_ = client.Close()
		if statusErr != nil {
			return false, statusErr
		}
		if !status.Running {
			return true, nil
		}
		return false, errors.New("daemon still running")
	})
	if err != nil {
		return fmt.Errorf("daemon did not stop: %w", err)
	}
	return nil
}

// ProcessInfo reports whether the control socket answers, plus the daemon PID
// when the status call succeeds.
func ProcessInfo(socket string) (bool, int, error) {
	client, err := ipc.Dial(socket)
	if err != nil {
		if socketAbsent(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	defer client.Close()

	status, statusErr := client.Status()
	if statusErr != nil {
		return true, 0, statusErr
	}
	pid := 0
	if status != nil {
		pid = status.PID
	}
	return true, pid, nil
}

// dialOrLaunch returns a connected client, launching a daemon process first
// when nothing answers on the socket.
func dialOrLaunch(socket, binPath string, opts LaunchOptions, timeout time.Duration) (*ipc.Client, bool, error) {
	if client, err := ipc.Dial(socket); err == nil {
		return client, false, nil
	}
	if err := Launch(binPath, opts); err != nil {
		return nil, false, err
	}
	client, err := WaitForClient(socket, timeout)
	if err != nil {
		return nil, false, err
	}
	return client, true, nil
}

// EnsureStarted gets a daemon running and its workflow started, spawning a
// process only when needed, and reports which of those actually happened.
func EnsureStarted(socket, binPath string, opts LaunchOptions, timeout time.Duration) (StartResult, error) {
	client, launched, err := dialOrLaunch(socket, binPath, opts, timeout)
	if err != nil {
		return StartResult{}, err
	}
	defer client.Close()

	if status, statusErr := client.Status(); statusErr == nil && status != nil && status.Running {
		if launched {
			return StartResult{State: StartStateStarted, Launched: true}, nil
		}
		return StartResult{State: StartStateAlreadyRunning}, nil
	}

	resp, err := client.Start()
	if err != nil {
		return StartResult{}, err
	}
	return interpretStartResponse(resp, launched), nil
}

// interpretStartResponse maps the daemon's start reply onto a StartResult.
// The reply message doubles as the already-running signal for daemons that
// refuse a second start instead of acknowledging it.
func interpretStartResponse(resp *ipc.StartResponse, launched bool) StartResult {
	if resp == nil {
		return StartResult{State: StartStateRequested, Launched: launched, Message: "Start request sent"}
	}
	message := strings.TrimSpace(resp.Message)
	switch {
	case resp.Started:
		return StartResult{State: StartStateStarted, Launched: launched, Message: message}
	case strings.EqualFold(message, "daemon already running"):
		if launched {
			return StartResult{State: StartStateStarted, Launched: true, Message: message}
		}
		return StartResult{State: StartStateAlreadyRunning, Message: message}
	case message != "":
		return StartResult{State: StartStateRequested, Launched: launched, Message: message}
	default:
		return StartResult{State: StartStateRequested, Launched: launched, Message: "Start request sent"}
	}
}

// DeriveLogDir picks the directory holding daemon pid/lock files, preferring
// runtime hints from status over configuration.
func DeriveLogDir(lockPath, queueDBPath string, cfg *config.Config) string {
	switch {
	case lockPath != "":
		return filepath.Dir(lockPath)
	case queueDBPath != "":
		return filepath.Dir(queueDBPath)
	case cfg != nil && strings.TrimSpace(cfg.Paths.LogDir) != "":
		return cfg.Paths.LogDir
	}
	return ""
}

// readPidFile parses a pid file, returning 0 when the file is absent or its
// contents are unusable.
func readPidFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read pid file %q: %w", path, err)
	}
	pid, parseErr := strconv.Atoi(strings.TrimSpace(string(data)))
	if parseErr != nil || pid <= 0 {
		return 0, nil
	}
	return pid, nil
}

// ForceKillProcess SIGKILLs the daemon and removes its pid and lock files.
func ForceKillProcess(pidPath, lockPath string, fallbackPID int) (int, error) {
	pid, err := readPidFile(pidPath)
	if err != nil {
		return 0, err
	}
	if pid <= 0 {
		pid = fallbackPID
	}
	if pid <= 0 {
		return 0, fmt.Errorf("no usable pid (pid file: %s)", pidPath)
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("pid %d is the current process; refusing to kill it", pid)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("find process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return 0, fmt.Errorf("kill process %d: %w", pid, err)
	}
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	if lockPath != "" {
		_ = os.Remove(lockPath)
	}
	return pid, nil
}

// shutdownHints holds the status fields needed to chase down a daemon that
// ignores a graceful stop.
type shutdownHints struct {
	lockPath    string
	queueDBPath string
	pid         int
}

// StopAndTerminate asks the daemon to stop, and escalates to SIGKILL if it is
// still alive once the grace period runs out.
func StopAndTerminate(socket string, cfg *config.Config, grace time.Duration) (StopResult, error) {
	client, err := ipc.Dial(socket)
	if err != nil {
		if IsDaemonUnavailable(err) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}

	var hints shutdownHints
	if status, statusErr := client.Status(); statusErr == nil && status != nil {
		hints = shutdownHints{
			lockPath:    status.LockPath,
			queueDBPath: status.QueueDBPath,
			pid:         status.PID,
		}
	}
	resp, err := client.Stop()
	_ = client.Close()
	if err != nil {
		return StopResult{}, err
	}
	result := StopResult{PID: hints.pid}
	if resp != nil {
		result.StopAcknowledged = resp.Stopped
	}

	_ = WaitForShutdown(socket, grace)
	alive, livePID, aliveErr := ProcessInfo(socket)
	if aliveErr != nil || !alive {
		return result, nil
	}

	pid := livePID
	if pid == 0 {
		pid = hints.pid
	}
	logDir := DeriveLogDir(hints.lockPath, hints.queueDBPath, cfg)
	if logDir == "" {
		return result, errors.New("cannot locate daemon pid file directory")
	}
	killedPID, killErr := ForceKillProcess(
		filepath.Join(logDir, "quilld.pid"),
		filepath.Join(logDir, "quilld.lock"),
		pid,
	)
	if killErr != nil {
		return result, fmt.Errorf("terminate daemon: %w", killErr)
	}
	_ = os.Remove(socket)
	result.ForcedKill = true
	result.PID = killedPID
	return result, nil
}

// Restart stops any running daemon, then brings one up again.
func Restart(socket string, cfg *config.Config, binPath string, opts LaunchOptions, stopGrace, startTimeout time.Duration) (RestartResult, error) {
	stop, stopErr := StopAndTerminate(socket, cfg, stopGrace)
	if stopErr != nil && !errors.Is(stopErr, ErrDaemonNotRunning) {
		return RestartResult{}, stopErr
	}

	start, startErr := EnsureStarted(socket, binPath, opts, startTimeout)
	if startErr != nil {
		return RestartResult{}, startErr
	}

	return RestartResult{
		WasRunning: stopErr == nil,
		Stop:       stop,
		Start:      start,
	}, nil
}

// BuildStatusSnapshot assembles a full status view. When no daemon answers it
// fills queue counters and dependency checks in from local state so the CLI
// still has something useful to print.
func BuildStatusSnapshot(ctx context.Context, socket string, cfg *config.Config) (*ipc.StatusResponse, error) {
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	snapshot := &ipc.StatusResponse{}

	if client, err := ipc.Dial(socket); err == nil {
		defer client.Close()
		if resp, statusErr := client.Status(); statusErr == nil && resp != nil {
			snapshot = resp
		}
	}

	queueStats := make(map[string]int, len(snapshot.QueueStats))
	for status, count := range snapshot.QueueStats {
		queueStats[status] = count
	}
	if !snapshot.Running {
		if offline, ok := offlineQueueStats(ctx, cfg); ok {
			queueStats = offline
		}
	}
	snapshot.QueueStats = queueStats

	if len(snapshot.Dependencies) == 0 {
		snapshot.Dependencies = ResolveDependencies(cfg)
	}
	for i, dep := range snapshot.Dependencies {
		if strings.TrimSpace(dep.Severity) == "" {
			snapshot.Dependencies[i].Severity = dependencySeverity(dep.Available, dep.Optional)
		}
	}

	snapshot.SystemChecks = BuildSystemChecks(ctx, cfg, snapshot.Running)
	snapshot.DirectoryChecks = BuildDirectoryChecks(cfg)
	snapshot.DependencySummary = BuildDependencySummary(snapshot.Dependencies)
	return snapshot, nil
}

// offlineQueueStats reads queue counters straight from the database when no
// daemon is running to answer for them.
func offlineQueueStats(ctx context.Context, cfg *config.Config) (map[string]int, bool) {
	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	store, err := queue.Open(cfg)
	if err != nil {
		return nil, false
	}
	defer store.Close()

	stats, err := store.Stats(queryCtx)
	if err != nil {
		return nil, false
	}
	counts := make(map[string]int, len(stats))
	for status, count := range stats {
		counts[string(status)] = count
	}
	return counts, true
}

func dependencySeverity(available, optional bool) string {
	switch {
	case available:
		return "ok"
	case optional:
		return "warn"
	default:
		return "error"
	}
}

// ResolveDependencies runs the tool checks and shapes them for status output.
func ResolveDependencies(cfg *config.Config) []ipc.DependencyStatus {
	if cfg == nil {
		return nil
	}

	checks := preflight.CheckSystemDeps(cfg)
	statuses := make([]ipc.DependencyStatus, 0, len(checks))
	for _, check := range checks {
		statuses = append(statuses, ipc.DependencyStatus{
			Name:        check.Name,
			Command:     check.Command,
			Description: check.Description,
			Optional:    check.Optional,
			Available:   check.Available,
			Detail:      check.Detail,
			Severity:    dependencySeverity(check.Available, check.Optional),
		})
	}
	return statuses
}

// BuildSystemChecks produces the top status lines covering daemon state, the
// speech backend, and notification configuration.
func BuildSystemChecks(ctx context.Context, cfg *config.Config, daemonRunning bool) []ipc.StatusLine {
	lines := make([]ipc.StatusLine, 0, 3)
	if daemonRunning {
		lines = append(lines, ipc.StatusLine{Label: "Quill", Severity: "ok", Detail: "Running"})
	} else {
		lines = append(lines, ipc.StatusLine{Label: "Quill", Severity: "warn", Detail: "Not running (run `quill start`)"})
	}
	lines = append(lines, speechCheckLine(ctx, cfg))

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		lines = append(lines, ipc.StatusLine{Label: "Notifications", Severity: "ok", Detail: "Configured"})
	} else {
		lines = append(lines, ipc.StatusLine{Label: "Notifications", Severity: "warn", Detail: "Not configured"})
	}
	return lines
}

// speechCheckLine probes the transcription backend only when a key is
// configured, so status stays fast on unconfigured installs.
func speechCheckLine(ctx context.Context, cfg *config.Config) ipc.StatusLine {
	if strings.TrimSpace(cfg.Speech.APIKey) == "" {
		return ipc.StatusLine{Label: "Speech API", Severity: "warn", Detail: "API key not configured"}
	}
	result := preflight.CheckSpeech(ctx, cfg.GetSpeech())
	severity := "warn"
	if result.Passed {
		severity = "ok"
	}
	return ipc.StatusLine{Label: "Speech API", Severity: severity, Detail: result.Detail}
}

// BuildDirectoryChecks reports readiness of the configured working directories.
func BuildDirectoryChecks(cfg *config.Config) []ipc.StatusLine {
	dirs := []struct {
		label    string
		path     string
		optional bool
	}{
		{label: "Staging", path: cfg.Paths.StagingDir},
		{label: "Logs", path: cfg.Paths.LogDir},
		{label: "Output", path: cfg.Paths.OutputDir, optional: true},
		{label: "Review", path: cfg.Paths.ReviewDir, optional: true},
	}

	lines := make([]ipc.StatusLine, 0, len(dirs))
	for _, dir := range dirs {
		if strings.TrimSpace(dir.path) == "" {
			if dir.optional {
				lines = append(lines, ipc.StatusLine{Label: dir.label, Severity: "info", Detail: "Not configured"})
			}
			continue
		}
		result := preflight.CheckDirectoryAccess(dir.label, dir.path)
		severity := "error"
		if result.Passed {
			severity = "ok"
		}
		lines = append(lines, ipc.StatusLine{Label: dir.label, Severity: severity, Detail: result.Detail})
	}
	return lines
}

// BuildDependencySummary folds per-tool checks into one aggregate line.
func BuildDependencySummary(deps []ipc.DependencyStatus) ipc.DependencySummary {
	if len(deps) == 0 {
		return ipc.DependencySummary{
			Severity: "info",
			Detail:   "No dependency checks configured",
		}
	}

	var missingRequired, missingOptional int
	for _, dep := range deps {
		switch {
		case dep.Available:
		case dep.Optional:
			missingOptional++
		default:
			missingRequired++
		}
	}

	available := len(deps) - missingRequired - missingOptional
	severity := "ok"
	switch {
	case missingRequired > 0:
		severity = "error"
	case missingOptional > 0:
		severity = "warn"
	}

	detail := fmt.Sprintf("%d/%d available", available, len(deps))
	if missingRequired+missingOptional > 0 {
		detail = fmt.Sprintf("%d/%d available (missing: %d required, %d optional)",
			available, len(deps), missingRequired, missingOptional)
	}

	return ipc.DependencySummary{
		Total:           len(deps),
		Available:       available,
		MissingRequired: missingRequired,
		MissingOptional: missingOptional,
		Severity:        severity,
		Detail:          detail,
	}
}
