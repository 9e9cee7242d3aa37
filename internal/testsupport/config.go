package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"quill/internal/config"
)

// ConfigOption mutates the test configuration produced by NewConfig.
type ConfigOption func(*testEnv)

// testEnv carries what options need: the config under construction, the
// per-test temp root, and the TB for reporting setup failures.
type testEnv struct {
	t    testing.TB
	base string
	cfg  *config.Config
}

// NewConfig returns a config rooted in a fresh temp directory, with the
// speech key set so validation passes. Options run in order and may mutate
// both the config and the surrounding test environment.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	env := &testEnv{t: t, base: t.TempDir()}
	cfg := config.Default()
	cfg.Speech.APIKey = "test"
	seedPaths(&cfg, env.base)
	env.cfg = &cfg

	for _, opt := range opts {
		opt(env)
	}
	return env.cfg
}

// seedPaths points every configured directory at a subdirectory of base so
// tests never touch real user paths.
func seedPaths(cfg *config.Config, base string) {
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ReviewDir = filepath.Join(base, "review")
}

// WithSpeechKey overrides the speech service API key.
func WithSpeechKey(key string) ConfigOption {
	return func(env *testEnv) {
		env.cfg.Speech.APIKey = key
	}
}

// WithCaptionFormats overrides which caption formats the exporter renders.
func WithCaptionFormats(formats ...string) ConfigOption {
	return func(env *testEnv) {
		env.cfg.Captions.Formats = formats
	}
}

// WithStubbedBinaries installs no-op executables on PATH for the given
// commands, defaulting to the external tools quill shells out to. PATH is
// restored when the test finishes.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(env *testEnv) {
		if len(names) == 0 {
			names = []string{"ffprobe"}
		}
		prependPath(env.t, writeStubs(env.t, env.base, names))
	}
}

func writeStubs(t testing.TB, base string, names []string) string {
	t.Helper()
	binDir := filepath.Join(base, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	for _, name := range names {
		stub := filepath.Join(binDir, name)
		if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}
	return binDir
}

func prependPath(t testing.TB, dir string) {
	t.Helper()
	previous := os.Getenv("PATH")
	if err := os.Setenv("PATH", dir+string(os.PathListSeparator)+previous); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", previous)
	})
}

// BaseDir recovers the temp root NewConfig generated for cfg.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}
