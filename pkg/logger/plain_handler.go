package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Attributes that only make sense in file records.
var consoleSkipKeys = map[string]bool{
	"intention": true,
	"component": true,
	"session":   true,
	"time":      true,
	"level":     true,
	"msg":       true,
}

// plainHandler prints "icon message key=value..." with no time or level prefix.
type plainHandler struct {
	w       io.Writer
	attrs   []slog.Attr
	mu      *sync.Mutex
	leveler slog.Leveler
}

func newPlainHandler(w io.Writer, leveler slog.Leveler) slog.Handler {
	return &plainHandler{w: w, leveler: leveler, mu: &sync.Mutex{}}
}

func (h *plainHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	if h.leveler == nil {
		return true
	}
	return lvl >= h.leveler.Level()
}

func (h *plainHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := flatten(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, flatten([]slog.Attr{a})...)
		return true
	})

	var b strings.Builder
	for _, a := range attrs {
		if a.Key == "intention" {
			b.WriteString(iconFor(Intention(a.Value.String())))
			b.WriteByte(' ')
			break
		}
	}
	b.WriteString(r.Message)
	for _, a := range attrs {
		if consoleSkipKeys[a.Key] {
			continue
		}
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.w, b.String())
	return err
}

func (h *plainHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &nh
}

// Groups are flattened on the console, so WithGroup is a no-op.
func (h *plainHandler) WithGroup(_ string) slog.Handler {
	return h
}

func flatten(attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		if a.Value.Kind() == slog.KindGroup {
			out = append(out, flatten(a.Value.Group())...)
			continue
		}
		out = append(out, a)
	}
	return out
}
