package symcache

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
)

// Logger wraps slog.Logger with symcache-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that writes JSON lines to w.
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that writes human-readable text to w.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// WithSource adds the dump path to every record.
func (l *Logger) WithSource(source string) *Logger {
	return &Logger{
		Logger: l.Logger.With("source", source),
	}
}

// LogEnsure logs the outcome of a staleness check.
func (l *Logger) LogEnsure(ctx context.Context, cache string, status Status, err error) {
	if err != nil {
		l.ErrorContext(ctx, "cache unavailable",
			"cache", cache,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "cache ready",
		"cache", cache,
		"status", status.String(),
	)
}

// LogRebuild logs a cache rebuild from the dump.
func (l *Logger) LogRebuild(ctx context.Context, cache string, symbols int, size int64, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "rebuild failed",
			"cache", cache,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "cache rebuilt",
		"cache", cache,
		"symbols", symbols,
		"size", humanize.IBytes(uint64(size)), //nolint:gosec // size >= 0
		"duration", d.Round(time.Millisecond),
	)
}

// LogFetch logs a mirror download.
func (l *Logger) LogFetch(ctx context.Context, name string, size int64, err error) {
	if err != nil {
		l.WarnContext(ctx, "mirror fetch failed",
			"object", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "cache fetched from mirror",
		"object", name,
		"size", humanize.IBytes(uint64(size)), //nolint:gosec // size >= 0
	)
}

// LogPush logs a mirror upload.
func (l *Logger) LogPush(ctx context.Context, name string, size int64, err error) {
	if err != nil {
		l.WarnContext(ctx, "mirror push failed",
			"object", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "cache pushed to mirror",
		"object", name,
		"size", humanize.IBytes(uint64(size)), //nolint:gosec // size >= 0
	)
}

// LogLookup logs a symbol lookup for one source kind.
func (l *Logger) LogLookup(ctx context.Context, kind, symbol string, matches int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "lookup failed",
			"kind", kind,
			"symbol", symbol,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "lookup completed",
		"kind", kind,
		"symbol", symbol,
		"matches", matches,
	)
}
