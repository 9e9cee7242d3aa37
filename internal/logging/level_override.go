package logging

import (
	"context"
	"log/slog"
)

// minLevelHandler raises the effective level of one logger without touching
// the shared handler underneath. Handlers are configured at the most verbose
// level any subsystem may need; individual loggers quiet down through this
// wrapper.
type minLevelHandler struct {
	level slog.Level
	next  slog.Handler
}

// WithLevelOverride returns a copy of logger that drops records below level.
// Overriding an already overridden logger replaces the previous threshold
// rather than stacking a second wrapper.
func WithLevelOverride(logger *slog.Logger, level slog.Level) *slog.Logger {
	next := slog.Handler(NoopHandler{})
	if logger != nil {
		next = logger.Handler()
		if wrapped, ok := next.(*minLevelHandler); ok {
			next = wrapped.next
		}
	}
	return slog.New(&minLevelHandler{level: level, next: next})
}

func (h *minLevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level && h.next.Enabled(ctx, level)
}

func (h *minLevelHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < h.level {
		return nil
	}
	return h.next.Handle(ctx, record)
}

func (h *minLevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &minLevelHandler{level: h.level, next: h.next.WithAttrs(attrs)}
}

func (h *minLevelHandler) WithGroup(name string) slog.Handler {
	return &minLevelHandler{level: h.level, next: h.next.WithGroup(name)}
}
