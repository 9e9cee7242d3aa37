package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestTeeHandlerAllNil(t *testing.T) {
	h := TeeHandler(nil, nil, nil)
	if _, ok := h.(NoopHandler); !ok {
		t.Errorf("all-nil tee produced %T, want NoopHandler", h)
	}
}

func TestTeeHandlerSingleHandler(t *testing.T) {
	var buf bytes.Buffer
	only := slog.NewJSONHandler(&buf, nil)

	if h := TeeHandler(nil, only, nil); h != only {
		t.Error("single surviving handler was wrapped")
	}
}

func TestTeeHandlerEnabled(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	info := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debug := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	if !TeeHandler(info, debug).Enabled(context.Background(), slog.LevelDebug) {
		t.Error("tee disabled even though one side accepts debug")
	}
}

func TestTeeHandlerRespectsTargetLevels(t *testing.T) {
	var infoBuf, warnBuf bytes.Buffer
	info := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	warn := slog.NewJSONHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn})

	logger := slog.New(TeeHandler(info, warn))
	logger.Info("info message")

	if infoBuf.Len() == 0 {
		t.Error("info-level side saw nothing")
	}
	if warnBuf.Len() != 0 {
		t.Error("warn-level side recorded an info record")
	}
}

func TestTeeLoggerDuplicates(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf1, nil))
	extra := slog.NewJSONHandler(&buf2, nil)

	logger := TeeLogger(base, extra)
	logger.Info("both sides")

	if buf1.Len() == 0 || buf2.Len() == 0 {
		t.Fatalf("record missing from a side: %d and %d bytes", buf1.Len(), buf2.Len())
	}
}
