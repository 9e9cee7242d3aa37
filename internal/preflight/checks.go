package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"quill/internal/config"
	"quill/internal/deps"
	"quill/internal/services/speech"
)

// CheckSpeech probes the speech API once with a 30-second budget; retries
// are the workflow's job, not the preflight's.
func CheckSpeech(ctx context.Context, cfg config.SpeechConfig) Result {
	const name = "Speech service"
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "no API key configured"}
	}

	probeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := speech.NewClient(speech.Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		Language:       cfg.Language,
		Granularity:    cfg.Granularity,
		Punctuation:    cfg.Punctuation,
		TimeoutSeconds: cfg.TimeoutSeconds,
	}, speech.WithMaxAttempts(1))

	if err := client.HealthCheck(probeCtx); err != nil {
		return Result{Name: name, Detail: summarizeSpeechError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API responded"}
}

// CheckDirectoryAccess confirms path is a directory the process can read,
// write, and traverse.
func CheckDirectoryAccess(name, path string) Result {
	fail := func(problem string) Result {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s)", path, problem)}
	}
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return fail("missing")
	case err != nil:
		return fail(fmt.Sprintf("stat: %v", err))
	case !info.IsDir():
		return fail("not a directory")
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fail(fmt.Sprintf("access denied: %v", err))
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates external binaries Quill shells out to. Both the
// daemon and the CLI status command use this to avoid duplicating the
// requirements list. ffprobe is optional because transcription proceeds
// without duration hints when it is missing.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Enables media inspection and duration hints",
			Optional:    true,
		},
	}
	return deps.CheckBinaries(requirements)
}

// summarizeSpeechError turns probe failures into operator-readable detail.
func summarizeSpeechError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (speech API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (speech API unreachable)"
	}
	return err.Error()
}
