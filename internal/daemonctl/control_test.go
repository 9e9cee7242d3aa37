package daemonctl_test

import (
	"path/filepath"
	"testing"

	"quill/internal/daemonctl"
	"quill/internal/ipc"
	"quill/internal/testsupport"
)

func TestDeriveLogDirPrecedence(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	if got := daemonctl.DeriveLogDir("/run/quill/quilld.lock", "/data/queue.db", cfg); got != "/run/quill" {
		t.Fatalf("expected lock path to win, got %q", got)
	}
	if got := daemonctl.DeriveLogDir("", "/data/queue.db", cfg); got != "/data" {
		t.Fatalf("expected queue db dir, got %q", got)
	}
	if got := daemonctl.DeriveLogDir("", "", cfg); got != cfg.Paths.LogDir {
		t.Fatalf("expected config log dir %q, got %q", cfg.Paths.LogDir, got)
	}
	if got := daemonctl.DeriveLogDir("", "", nil); got != "" {
		t.Fatalf("expected empty dir without hints, got %q", got)
	}
}

func TestBuildDependencySummary(t *testing.T) {
	empty := daemonctl.BuildDependencySummary(nil)
	if empty.Severity != "info" {
		t.Fatalf("expected info severity for empty deps, got %q", empty.Severity)
	}

	deps := []ipc.DependencyStatus{
		{Name: "ffprobe", Available: true},
		{Name: "optional-tool", Optional: true, Available: false},
	}
	summary := daemonctl.BuildDependencySummary(deps)
	if summary.Total != 2 || summary.Available != 1 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if summary.MissingOptional != 1 || summary.MissingRequired != 0 {
		t.Fatalf("unexpected missing counts: %+v", summary)
	}
	if summary.Severity != "warn" {
		t.Fatalf("expected warn severity, got %q", summary.Severity)
	}

	deps = append(deps, ipc.DependencyStatus{Name: "required-tool", Available: false})
	if got := daemonctl.BuildDependencySummary(deps).Severity; got != "error" {
		t.Fatalf("expected error severity with missing required dep, got %q", got)
	}
}

func TestBuildDirectoryChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	cfg.Paths.OutputDir = ""
	cfg.Paths.ReviewDir = filepath.Join(t.TempDir(), "missing")

	lines := daemonctl.BuildDirectoryChecks(cfg)
	byLabel := make(map[string]ipc.StatusLine, len(lines))
	for _, line := range lines {
		byLabel[line.Label] = line
	}

	if got := byLabel["Staging"].Severity; got != "ok" {
		t.Fatalf("expected staging ok, got %q (%+v)", got, byLabel["Staging"])
	}
	if got := byLabel["Logs"].Severity; got != "ok" {
		t.Fatalf("expected logs ok, got %q", got)
	}
	if got := byLabel["Output"]; got.Severity != "info" || got.Detail != "Not configured" {
		t.Fatalf("expected unset output to report info, got %+v", got)
	}
	if got := byLabel["Review"].Severity; got != "error" {
		t.Fatalf("expected missing review dir to report error, got %q", got)
	}
}

func TestProcessInfoMissingSocket(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "quill.sock")
	reachable, pid, err := daemonctl.ProcessInfo(socket)
	if err != nil {
		t.Fatalf("ProcessInfo: %v", err)
	}
	if reachable || pid != 0 {
		t.Fatalf("expected unreachable daemon, got reachable=%v pid=%d", reachable, pid)
	}
}
