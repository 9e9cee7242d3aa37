package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestWithLevelOverrideSuppressesBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	quiet := WithLevelOverride(logger, slog.LevelWarn)
	quiet.Info("hidden")
	quiet.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("expected info record to be dropped")
	}
	if !strings.Contains(out, "visible") {
		t.Error("expected warn record to pass through")
	}
}

func TestWithLevelOverrideReplacesPreviousThreshold(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	quiet := WithLevelOverride(logger, slog.LevelError)
	loud := WithLevelOverride(quiet, slog.LevelDebug)
	loud.Debug("restored")

	if !strings.Contains(buf.String(), "restored") {
		t.Error("expected second override to lower the threshold again")
	}
}

func TestWithLevelOverrideNilLogger(t *testing.T) {
	logger := WithLevelOverride(nil, slog.LevelInfo)
	logger.Info("discarded")
}
