package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"quill/internal/config"
)

func TestCheckDirectoryAccessWritableDir(t *testing.T) {
	got := CheckDirectoryAccess("test", t.TempDir())
	if !got.Passed {
		t.Fatalf("writable directory reported as failing: %s", got.Detail)
	}
}

func TestCheckDirectoryAccessMissingDir(t *testing.T) {
	got := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if got.Passed {
		t.Fatal("missing directory passed the check")
	}
	if got.Detail == "" {
		t.Fatal("failing check carries no detail")
	}
}

func TestCheckDirectoryAccessRegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := CheckDirectoryAccess("test", path); got.Passed {
		t.Fatal("regular file passed the directory check")
	}
}

func speechStub(t *testing.T, handler http.HandlerFunc) config.SpeechConfig {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	speech := cfg.GetSpeech()
	speech.APIKey = "good-key"
	speech.BaseURL = srv.URL
	return speech
}

func TestCheckSpeechHealthyEndpoint(t *testing.T) {
	speech := speechStub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"ok\":true}"}]}}]}`))
	})

	got := CheckSpeech(context.Background(), speech)
	if !got.Passed {
		t.Fatalf("healthy endpoint reported as failing: %s", got.Detail)
	}
}

func TestCheckSpeechRejectedKey(t *testing.T) {
	speech := speechStub(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"invalid key","status":"UNAUTHENTICATED"}}`))
	})
	speech.APIKey = "bad-key"

	got := CheckSpeech(context.Background(), speech)
	if got.Passed {
		t.Fatal("rejected key passed the check")
	}
	if got.Detail == "" {
		t.Fatal("failing check carries no detail")
	}
}

func TestCheckSpeechEmptyKey(t *testing.T) {
	cfg := config.Default()
	speech := cfg.GetSpeech()
	speech.APIKey = ""

	if got := CheckSpeech(context.Background(), speech); got.Passed {
		t.Fatal("empty API key passed the check")
	}
}

func TestRunAllNilConfig(t *testing.T) {
	if got := RunAll(context.Background(), nil); got != nil {
		t.Fatal("nil config produced results")
	}
}

func TestRunAllMinimalConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StagingDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Paths.OutputDir = ""
	cfg.Paths.ReviewDir = ""
	cfg.Speech.APIKey = ""

	got := RunAll(context.Background(), &cfg)
	// Staging + log directory checks plus the speech check.
	if len(got) != 3 {
		t.Fatalf("minimal config produced %d checks, want 3", len(got))
	}
	for _, check := range got[:2] {
		if !check.Passed {
			t.Errorf("directory check %q failed: %s", check.Name, check.Detail)
		}
	}
	if got[2].Passed {
		t.Error("speech check passed without an API key")
	}
}

func TestRunAllOptionalDirectories(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StagingDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Paths.ReviewDir = t.TempDir()
	cfg.Speech.APIKey = ""

	got := RunAll(context.Background(), &cfg)
	names := make(map[string]bool, len(got))
	for _, check := range got {
		names[check.Name] = true
	}
	for _, want := range []string{"Output directory", "Review directory"} {
		if !names[want] {
			t.Errorf("no %q check in results", want)
		}
	}
}
