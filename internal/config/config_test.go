package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"quill/internal/config"
)

func writeTOML(t *testing.T, path string, v any) {
	t.Helper()
	data, err := toml.Marshal(v)
	if err != nil {
		t.Fatalf("encoding config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestLoadDefaultConfigUsesEnvSpeechKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if resolved == "" {
		t.Fatal("Load returned no resolved path")
	}
	if exists {
		t.Fatal("temp HOME should have no config file")
	}

	wantStaging := filepath.Join(tempHome, ".local", "share", "quill", "staging")
	if cfg.Paths.StagingDir != wantStaging {
		t.Fatalf("staging dir = %q, want %q", cfg.Paths.StagingDir, wantStaging)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "captions") {
		t.Fatalf("output dir = %q", cfg.Paths.OutputDir)
	}
	if cfg.Paths.ReviewDir != filepath.Join(tempHome, "review") {
		t.Fatalf("review dir = %q", cfg.Paths.ReviewDir)
	}
	if cfg.Speech.APIKey != "test-key" {
		t.Fatalf("speech key = %q, want value from GEMINI_API_KEY", cfg.Speech.APIKey)
	}
	if cfg.Speech.BaseURL != config.Default().Speech.BaseURL {
		t.Fatalf("speech base url = %q", cfg.Speech.BaseURL)
	}
	if cfg.Speech.Model != config.Default().Speech.Model {
		t.Fatalf("speech model = %q", cfg.Speech.Model)
	}
	if cfg.Speech.Granularity != "sentence" {
		t.Fatalf("default granularity = %q, want sentence", cfg.Speech.Granularity)
	}
	if !cfg.Speech.Punctuation {
		t.Fatal("punctuation should default on")
	}
	if len(cfg.Captions.Formats) != 1 || cfg.Captions.Formats[0] != "vtt" {
		t.Fatalf("default caption formats = %v, want [vtt]", cfg.Captions.Formats)
	}
	if !cfg.Captions.FallbackPlainText {
		t.Fatal("plain text fallback should default on")
	}
	if cfg.Notifications.NtfyTopic != "" {
		t.Fatalf("ntfy topic = %q, want empty default", cfg.Notifications.NtfyTopic)
	}
	if cfg.Workflow.HeartbeatInterval != config.Default().Workflow.HeartbeatInterval {
		t.Fatalf("heartbeat interval = %d", cfg.Workflow.HeartbeatInterval)
	}
	if cfg.Workflow.HeartbeatTimeout != config.Default().Workflow.HeartbeatTimeout {
		t.Fatalf("heartbeat timeout = %d", cfg.Workflow.HeartbeatTimeout)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	for _, dir := range []string{cfg.Paths.StagingDir, cfg.Paths.OutputDir, cfg.Paths.LogDir, cfg.Paths.ReviewDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("stat %q after EnsureDirectories: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("%q is not a directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "quill.toml")

	type payload struct {
		Speech struct {
			APIKey   string `toml:"api_key"`
			BaseURL  string `toml:"base_url"`
			Model    string `toml:"model"`
			Language string `toml:"language"`
		} `toml:"speech"`
		Captions struct {
			Formats []string `toml:"formats"`
		} `toml:"captions"`
		Workflow struct {
			HeartbeatInterval int `toml:"heartbeat_interval"`
			HeartbeatTimeout  int `toml:"heartbeat_timeout"`
		} `toml:"workflow"`
	}
	custom := payload{}
	custom.Speech.APIKey = "abc123"
	custom.Speech.BaseURL = "https://example.com/v1beta/"
	custom.Speech.Model = "custom-model"
	custom.Speech.Language = "English"
	custom.Captions.Formats = []string{"SRT", "vtt", "srt"}
	custom.Workflow.HeartbeatInterval = 20
	custom.Workflow.HeartbeatTimeout = 200
	writeTOML(t, configPath, custom)

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("Load did not report the file as present")
	}
	if resolved != configPath {
		t.Fatalf("resolved path = %q, want %q", resolved, configPath)
	}
	if cfg.Speech.APIKey != "abc123" {
		t.Fatalf("speech key = %q, want value from file", cfg.Speech.APIKey)
	}
	if cfg.Speech.BaseURL != "https://example.com/v1beta" {
		t.Fatalf("base url = %q, want trailing slash trimmed", cfg.Speech.BaseURL)
	}
	if cfg.Speech.Model != "custom-model" {
		t.Fatalf("model = %q", cfg.Speech.Model)
	}
	if cfg.Speech.Language != "en" {
		t.Fatalf("language = %q, want canonical en", cfg.Speech.Language)
	}
	if len(cfg.Captions.Formats) != 2 || cfg.Captions.Formats[0] != "srt" || cfg.Captions.Formats[1] != "vtt" {
		t.Fatalf("formats = %v, want deduped sorted [srt vtt]", cfg.Captions.Formats)
	}
	if cfg.Workflow.HeartbeatInterval != 20 {
		t.Fatalf("heartbeat interval = %d, want 20", cfg.Workflow.HeartbeatInterval)
	}
	if cfg.Workflow.HeartbeatTimeout != 200 {
		t.Fatalf("heartbeat timeout = %d, want 200", cfg.Workflow.HeartbeatTimeout)
	}
}

func TestSpeechKeyFileValueWinsOverEnv(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "quill.toml")

	type payload struct {
		Speech struct {
			APIKey string `toml:"api_key"`
		} `toml:"speech"`
	}
	custom := payload{}
	custom.Speech.APIKey = "file-key"
	writeTOML(t, configPath, custom)

	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Speech.APIKey != "file-key" {
		t.Fatalf("speech key = %q, file value should beat env", cfg.Speech.APIKey)
	}
}

func TestSpeechKeyGoogleEnvFallback(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("GEMINI_API_KEY", "")
	os.Unsetenv("GEMINI_API_KEY")
	t.Setenv("GOOGLE_API_KEY", "google-key")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Speech.APIKey != "google-key" {
		t.Fatalf("speech key = %q, want GOOGLE_API_KEY fallback", cfg.Speech.APIKey)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading sample: %v", err)
	}
	if !strings.Contains(string(contents), "your_gemini_api_key_here") {
		t.Fatalf("sample is missing the placeholder speech key: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("sample does not decode: %v", err)
	}

	// Path expectations do not hold on Windows, where joins use backslashes
	// and drive letters.
	if runtime.GOOS != "windows" {
		if !strings.Contains(cfg.Paths.StagingDir, "quill") {
			t.Fatalf("sample staging dir = %q, want a quill path", cfg.Paths.StagingDir)
		}
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(cfg *config.Config)
		errPart string
	}{
		{
			name:    "missing speech key",
			mutate:  func(cfg *config.Config) { cfg.Speech.APIKey = "" },
			errPart: "speech.api_key",
		},
		{
			name:   "unknown granularity",
			mutate: func(cfg *config.Config) { cfg.Speech.Granularity = "paragraph" },
		},
		{
			name:   "unsupported caption format",
			mutate: func(cfg *config.Config) { cfg.Captions.Formats = []string{"ass"} },
		},
		{
			name:   "non-positive poll interval",
			mutate: func(cfg *config.Config) { cfg.Workflow.QueuePollInterval = 0 },
		},
		{
			name:   "non-positive heartbeat interval",
			mutate: func(cfg *config.Config) { cfg.Workflow.HeartbeatInterval = 0 },
		},
		{
			name:   "heartbeat timeout not past interval",
			mutate: func(cfg *config.Config) { cfg.Workflow.HeartbeatTimeout = cfg.Workflow.HeartbeatInterval },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Speech.APIKey = "key"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate accepted a bad config")
			}
			if tc.errPart != "" && !strings.Contains(err.Error(), tc.errPart) {
				t.Fatalf("Validate error %v does not mention %q", err, tc.errPart)
			}
		})
	}
}
