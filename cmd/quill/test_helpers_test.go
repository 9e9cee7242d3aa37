package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"quill/internal/config"
	"quill/internal/daemon"
	"quill/internal/ipc"
	"quill/internal/logging"
	"quill/internal/queue"
	"quill/internal/stage"
	"quill/internal/testsupport"
	"quill/internal/workflow"
)

// noopStage stands in for the real workflow handlers so CLI tests never
// touch ffprobe or the speech API.
type noopStage struct{}

func (noopStage) Prepare(context.Context, *queue.Item) error { return nil }
func (noopStage) Execute(context.Context, *queue.Item) error { return nil }
func (noopStage) HealthCheck(context.Context) stage.Health   { return stage.Healthy("noop") }

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
	baseDir    string
	logPath    string
	cancel     context.CancelFunc
}

// newTestCLI boots an in-process daemon with noop stages and an IPC
// server on a throwaway socket, plus a config file under a redirected HOME
// so commands that fall back to the default config path stay inside the
// test sandbox.
func newTestCLI(t *testing.T) *cliTestEnv {
	t.Helper()

	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("ffprobe", "quilld"))
	// Point the speech health probe at a closed local port so status checks
	// fail fast instead of calling the real API.
	cfg.Speech.BaseURL = "http://127.0.0.1:1"

	configPath := filepath.Join(homeDir, ".config", "quill", "config.toml")
	saveConfigFile(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)

	logPath := filepath.Join(cfg.Paths.LogDir, logging.DaemonLogFilename)
	if err := os.WriteFile(logPath, nil, 0o644); err != nil {
		t.Fatalf("seeding log file: %v", err)
	}

	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, logger)
	mgr.ConfigureStages(workflow.StageSet{
		Transcriber: noopStage{},
		Exporter:    noopStage{},
	})

	d, err := daemon.New(cfg, store, logger, mgr)
	if err != nil {
		t.Fatalf("building daemon: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	socketPath := filepath.Join(cfg.Paths.LogDir, "cli.sock")
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		cancel()
		t.Fatalf("starting control server: %v", err)
	}
	srv.Serve()

	env := &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		server:     srv,
		socketPath: socketPath,
		configPath: configPath,
		baseDir:    testsupport.BaseDir(cfg),
		logPath:    logPath,
		cancel:     cancel,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})

	return env
}

// run executes a CLI invocation against the environment's daemon socket
// and config file, returning captured stdout and stderr.
func (env *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return execCLI(t, env.socketPath, env.configPath, args...)
}

// execCLI is env.run with the socket and config path overridable, for
// tests that point commands at dead sockets or alternate configs.
func execCLI(t *testing.T, socket, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func saveConfigFile(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating config dir: %v", err)
	}
	encoded, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encoding config: %v", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
}

func appendLogLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func eventually(t *testing.T, timeout time.Duration, fn func() bool) {
	t.Helper()
	for deadline := time.Now().Add(timeout); time.Now().Before(deadline); {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition still false after %s", timeout)
}

func wantOutput(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("%q missing from output:\n%s", substr, output)
	}
}
