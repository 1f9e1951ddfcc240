package shmarena

import (
	"context"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
)

// Logger wraps slog.Logger with arena-specific context.
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

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithArena adds the arena name to every record.
func (l *Logger) WithArena(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("arena", name),
	}
}

// LogCreate logs the creation of a region.
func (l *Logger) LogCreate(ctx context.Context, name string, backing Backing, size uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "arena create failed",
			"name", name,
			"backing", backing.String(),
			"size", humanize.IBytes(size),
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "arena create completed",
			"name", name,
			"backing", backing.String(),
			"size", humanize.IBytes(size),
		)
	}
}

// LogAttach logs an attach to an existing shared region.
func (l *Logger) LogAttach(ctx context.Context, name string, size uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "arena attach failed",
			"name", name,
			"size", humanize.IBytes(size),
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "arena attach completed",
			"name", name,
			"size", humanize.IBytes(size),
		)
	}
}

// LogTeardown logs the release of a region.
func (l *Logger) LogTeardown(ctx context.Context, name string, err error) {
	if err != nil {
		l.WarnContext(ctx, "arena teardown failed",
			"name", name,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "arena teardown completed",
			"name", name,
		)
	}
}

// LogAllocFailure logs an allocation the arena could not serve.
func (l *Logger) LogAllocFailure(ctx context.Context, size, alignment uint64, err error) {
	l.WarnContext(ctx, "arena allocation failed",
		"size", size,
		"alignment", alignment,
		"error", err,
	)
}
