// Package logging provides structured logging configuration using log/slog.
//
// Records go to stdout and, when a directory is configured, to a monthly
// etl_error_log_YYYY_MM.txt file. AttachSink additionally mirrors warnings
// and errors into a database table once one is available.
//
// This package integrates with chi's RequestID middleware and the per-run
// session id to propagate correlation ids through structured log entries.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5/middleware"
)

var (
	mu   sync.Mutex
	base slog.Handler
)

// Setup configures the global slog logger based on level, format and log
// directory. The returned function closes the log file.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
//
// An empty dir logs to stdout only.
func Setup(level, format, dir string) (func() error, error) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	handler := newHandler(os.Stdout, format, opts)
	closer := func() error { return nil }

	if dir != "" {
		file, err := NewMonthlyFile(dir, ErrorLogPrefix)
		if err != nil {
			return nil, err
		}
		// The file is always tab-friendly text regardless of the console format.
		handler = NewFanout(handler, slog.NewTextHandler(file, opts))
		closer = file.Close
	}

	mu.Lock()
	base = handler
	mu.Unlock()

	slog.SetDefault(slog.New(handler))
	return closer, nil
}

func newHandler(w io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	if strings.ToLower(format) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// AttachSink mirrors warn and error records into sink in addition to the
// handlers installed by Setup.
func AttachSink(sink RecordSink) {
	mu.Lock()
	h := base
	mu.Unlock()
	if h == nil {
		h = slog.Default().Handler()
	}
	slog.SetDefault(slog.New(NewFanout(h, NewSinkHandler(sink, slog.LevelWarn))))
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type sessionKey struct{}

// ContextWithSession returns a context carrying the run session id.
func ContextWithSession(ctx context.Context, session string) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext returns the run session id, or "".
func SessionFromContext(ctx context.Context) string {
	s, _ := ctx.Value(sessionKey{}).(string)
	return s
}

// FromContext returns a logger enriched with request context.
//
// When called with a request context that contains a chi RequestID, the
// returned logger includes request_id in all log entries. Inside a run the
// session id is included as well.
//
// Usage:
//
//	func handleRequest(w http.ResponseWriter, r *http.Request) {
//	    logger := logging.FromContext(r.Context())
//	    logger.Info("run requested")
//	}
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	// Chi's RequestID middleware stores the ID in context
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	if session := SessionFromContext(ctx); session != "" {
		logger = logger.With("session", session)
	}

	return logger
}

// WithFields returns a logger with additional structured fields.
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}

// WithRun returns a logger for work on one file within a run.
func WithRun(ctx context.Context, runID int64, path string) *slog.Logger {
	return FromContext(ctx).With("run_id", runID, "file", path)
}
