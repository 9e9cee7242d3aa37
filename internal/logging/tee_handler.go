package logging

import (
	"context"
	"log/slog"
)

// teeHandler fans each record out to two or more handlers. Construction runs
// through combineHandlers so the degenerate cases never allocate a wrapper.
type teeHandler struct {
	targets []slog.Handler
}

func combineHandlers(handlers []slog.Handler) slog.Handler {
	targets := make([]slog.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			targets = append(targets, h)
		}
	}
	switch len(targets) {
	case 0:
		return NoopHandler{}
	case 1:
		return targets[0]
	}
	return &teeHandler{targets: targets}
}

// TeeHandler combines handlers into one that forwards records to all of them.
// Nil entries are skipped.
func TeeHandler(handlers ...slog.Handler) slog.Handler {
	return combineHandlers(handlers)
}

// TeeLogger returns a logger that writes through base's handler plus every
// extra handler.
func TeeLogger(base *slog.Logger, extras ...slog.Handler) *slog.Logger {
	handlers := make([]slog.Handler, 0, len(extras)+1)
	if base != nil {
		handlers = append(handlers, base.Handler())
	}
	handlers = append(handlers, extras...)
	return slog.New(combineHandlers(handlers))
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, target := range h.targets {
		if target.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle clones the record per target because handlers are allowed to retain
// and mutate what they receive.
func (h *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, target := range h.targets {
		if !target.Enabled(ctx, record.Level) {
			continue
		}
		if err := target.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	targets := make([]slog.Handler, len(h.targets))
	for i, target := range h.targets {
		targets[i] = target.WithAttrs(attrs)
	}
	return &teeHandler{targets: targets}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	targets := make([]slog.Handler, len(h.targets))
	for i, target := range h.targets {
		targets[i] = target.WithGroup(name)
	}
	return &teeHandler{targets: targets}
}
