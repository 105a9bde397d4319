package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Fanout sends every record to each handler that accepts its level.
type Fanout struct {
	handlers []slog.Handler
}

// NewFanout returns a handler writing to all of hs.
func NewFanout(hs ...slog.Handler) *Fanout {
	return &Fanout{handlers: hs}
}

func (f *Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *Fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		hs[i] = h.WithAttrs(attrs)
	}
	return &Fanout{handlers: hs}
}

func (f *Fanout) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		hs[i] = h.WithGroup(name)
	}
	return &Fanout{handlers: hs}
}

// RecordSink stores log records outside the process, e.g. the error_log table.
type RecordSink interface {
	InsertErrorLog(ctx context.Context, at time.Time, level, message string) error
}

// sinkTimeout bounds a single sink write.
const sinkTimeout = 5 * time.Second

// SinkHandler forwards records at or above a level to a RecordSink. The
// stored message is the log message followed by its attributes as key=value.
type SinkHandler struct {
	sink   RecordSink
	level  slog.Level
	prefix string
	attrs  []string
}

// NewSinkHandler returns a handler writing records at or above level to sink.
func NewSinkHandler(sink RecordSink, level slog.Level) *SinkHandler {
	return &SinkHandler{sink: sink, level: level}
}

func (h *SinkHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *SinkHandler) Handle(ctx context.Context, r slog.Record) error {
	parts := append([]string{r.Message}, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		parts = append(parts, h.format(a))
		return true
	})

	// A cancelled run still stores its errors.
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()

	if err := h.sink.InsertErrorLog(sctx, r.Time, r.Level.String(), strings.Join(parts, " ")); err != nil {
		// Reporting through slog would recurse into this handler.
		fmt.Fprintf(os.Stderr, "logging: sink write failed: %v\n", err)
		return err
	}
	return nil
}

func (h *SinkHandler) format(a slog.Attr) string {
	return fmt.Sprintf("%s%s=%v", h.prefix, a.Key, a.Value.Resolve())
}

func (h *SinkHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]string, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, h.format(a))
	}
	return &next
}

func (h *SinkHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}
