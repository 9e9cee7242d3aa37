package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders human-oriented log lines:
//
//	2026-02-14 09:30:12 INFO [workflow] Transcribe Item #3 (transcribing) – stage started key=value
//
// The component, lane, item, and stage attributes move into the line header;
// everything else trails as key=value pairs.
type consoleHandler struct {
	mu        sync.Mutex
	writer    io.Writer
	level     *slog.LevelVar
	attrs     []slog.Attr
	groups    []string
	addSource bool
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{writer: w, level: lvl, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}

	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	pairs := make([]pair, 0, record.NumAttrs()+len(h.attrs))
	for _, attr := range h.attrs {
		pairs = collectAttr(pairs, h.groups, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		pairs = collectAttr(pairs, h.groups, attr)
		return true
	})

	var component, itemID, stage, lane string
	trailing := pairs[:0]
	for _, p := range pairs {
		switch p.name {
		case FieldComponent:
			if component == "" {
				component = attrString(p.val)
			}
		case FieldItemID:
			if itemID == "" {
				itemID = attrString(p.val)
			}
		case FieldStage:
			if stage == "" {
				stage = attrString(p.val)
			}
		case FieldLane:
			if lane == "" {
				lane = attrString(p.val)
			}
		default:
			trailing = append(trailing, p)
		}
	}

	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}

	var buf bytes.Buffer
	buf.Grow(128 + len(trailing)*24)

	buf.WriteString(stampTime(timestamp))
	buf.WriteByte(' ')
	buf.WriteString(levelText(record.Level))
	if component != "" {
		buf.WriteString(" [")
		buf.WriteString(component)
		buf.WriteByte(']')
	}
	if subject := FormatSubject(lane, itemID, stage); subject != "" {
		buf.WriteByte(' ')
		buf.WriteString(subject)
	}
	buf.WriteString(" – ")
	buf.WriteString(message)

	if h.addSource {
		if src := record.Source(); src != nil {
			buf.WriteString(" [")
			buf.WriteString(filepath.Base(src.File) + ":" + strconv.Itoa(src.Line))
			buf.WriteByte(']')
		}
	}

	for _, p := range trailing {
		if p.name == "" {
			continue
		}
		buf.WriteByte(' ')
		buf.WriteString(p.name)
		buf.WriteByte('=')
		buf.WriteString(formatValue(p.val))
	}

	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	next.attrs = append(next.attrs, attrs...)
	return next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	next := h.clone()
	next.groups = append(next.groups, name)
	return next
}

func (h *consoleHandler) clone() *consoleHandler {
	next := &consoleHandler{
		writer:    h.writer,
		level:     h.level,
		addSource: h.addSource,
	}
	next.attrs = append(next.attrs, h.attrs...)
	next.groups = append(next.groups, h.groups...)
	return next
}

type pair struct {
	name string
	val  slog.Value
}

// collectAttr flattens attr into dst, expanding groups with dot-joined
// prefixes so nested keys stay greppable.
func collectAttr(dst []pair, prefix []string, attr slog.Attr) []pair {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		inner := prefix
		if attr.Key != "" {
			inner = extendPrefix(prefix, attr.Key)
		}
		for _, member := range attr.Value.Group() {
			dst = collectAttr(dst, inner, member)
		}
		return dst
	}
	name := attr.Key
	if len(prefix) > 0 {
		joined := strings.Join(prefix, ".")
		if name != "" {
			name = joined + "." + name
		} else {
			name = joined
		}
	}
	return append(dst, pair{name: name, val: attr.Value})
}

func extendPrefix(prefix []string, name string) []string {
	out := make([]string, 0, len(prefix)+1)
	out = append(out, prefix...)
	return append(out, name)
}

func levelText(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

// stampTime renders record times in local wall-clock form. Zero times render
// as empty so synthetic records do not print the epoch.
func stampTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.In(time.Local).Format("2006-01-02 15:04:05")
}
