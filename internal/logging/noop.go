package logging

import (
	"context"
	"log/slog"
)

// NoopHandler discards every record. It backs NewNop and stands in for nil
// handlers elsewhere in this package.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }
func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler        { return NoopHandler{} }
func (NoopHandler) WithGroup(string) slog.Handler             { return NoopHandler{} }

// NewNop returns a logger that drops everything. Callers use it wherever a
// nil logger would otherwise need guarding.
func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}
