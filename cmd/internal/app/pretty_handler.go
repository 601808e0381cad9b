package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset   = "\x1b[0m"
	ansiDim     = "\x1b[2m"
	ansiBright  = "\x1b[1m"
	ansiRed     = "\x1b[31m"
	ansiYellow  = "\x1b[33m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
)

// prettyHandler renders one logfmt-style line per record for local
// development. Production uses the JSON handler.
type prettyHandler struct {
	w     io.Writer
	opts  slog.HandlerOptions
	attrs []slog.Attr
	color bool
	mu    *sync.Mutex
}

func newPrettyHandler(w io.Writer, opts *slog.HandlerOptions, color bool) slog.Handler {
	h := &prettyHandler{w: w, color: color, mu: &sync.Mutex{}}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	b.WriteString("ts=")
	b.WriteString(h.dim(ts.Format("15:04:05.000")))
	b.WriteString(" lvl=")
	b.WriteString(h.levelTag(r.Level))
	b.WriteString(" msg=")
	if h.color {
		b.WriteString(ansiBright + r.Message + ansiReset)
	} else {
		b.WriteString(r.Message)
	}

	if h.opts.AddSource && r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		frame, _ := frames.Next()
		if frame.File != "" {
			b.WriteString(" src=")
			b.WriteString(h.dim(fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)))
		}
	}

	for _, a := range h.attrs {
		appendPrettyAttr(&b, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		appendPrettyAttr(&b, a)
		return true
	})

	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &cp
}

func (h *prettyHandler) WithGroup(_ string) slog.Handler { return h }

func appendPrettyAttr(b *strings.Builder, a slog.Attr) {
	a.Value = a.Value.Resolve()
	key := strings.TrimSpace(a.Key)
	if key == "" {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			appendPrettyAttr(b, ga)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(quoteIfNeeded(prettyValueString(a.Value)))
}

func prettyValueString(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	default:
		return fmt.Sprint(v.Any())
	}
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

func (h *prettyHandler) dim(s string) string {
	if !h.color {
		return s
	}
	return ansiDim + s + ansiReset
}

func (h *prettyHandler) levelTag(level slog.Level) string {
	var tag, color string
	switch {
	case level >= slog.LevelError:
		tag, color = "[ERROR]", ansiRed
	case level >= slog.LevelWarn:
		tag, color = "[WARN]", ansiYellow
	case level < slog.LevelInfo:
		tag, color = "[DEBUG]", ansiMagenta
	default:
		tag, color = "[INFO]", ansiBlue
	}
	if !h.color {
		return tag
	}
	return color + tag + ansiReset
}
