package occplot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// LineHandler is a slog.Handler printing records as
//
//	[2006/01/02 15:04:05] [LEVEL] [attr=value]... message
//
// which reads well next to the plain summary lines the tools print.
type LineHandler struct {
	level slog.Leveler
	attrs []slog.Attr
	group string
	mu    *sync.Mutex
	out   io.Writer
}

func NewLineHandler(out io.Writer, level slog.Leveler) *LineHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &LineHandler{level: level, mu: &sync.Mutex{}, out: out}
}

func (h *LineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *LineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(append([]slog.Attr(nil), h.attrs...), h.qualify(attrs)...)
	return &nh
}

func (h *LineHandler) WithGroup(name string) slog.Handler {
	nh := *h
	if nh.group != "" {
		name = nh.group + "." + name
	}
	nh.group = name
	return &nh
}

func (h *LineHandler) qualify(attrs []slog.Attr) []slog.Attr {
	if h.group == "" {
		return attrs
	}
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: h.group + "." + a.Key, Value: a.Value}
	}
	return out
}

func (h *LineHandler) Handle(_ context.Context, r slog.Record) error {
	strs := []string{r.Time.Format("[2006/01/02 15:04:05]"), "[" + r.Level.String() + "]"}

	for _, a := range h.attrs {
		strs = append(strs, fmt.Sprintf("[%s=%s]", a.Key, a.Value.String()))
	}
	var extra []slog.Attr
	r.Attrs(func(a slog.Attr) bool {
		extra = append(extra, a)
		return true
	})
	for _, a := range h.qualify(extra) {
		strs = append(strs, fmt.Sprintf("[%s=%s]", a.Key, a.Value.String()))
	}
	strs = append(strs, r.Message)

	line := strings.Join(strs, " ") + "\n"

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, line)
	return err
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalidConfiguration, s)
	}
	return l, nil
}

// NewLogger returns a logger writing LineHandler output at the given level.
func NewLogger(out io.Writer, level string) (*slog.Logger, error) {
	l, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(NewLineHandler(out, l)), nil
}
