package assetload

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with loader-specific helpers.
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
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithPath adds the physical path field to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("path", path),
	}
}

// WithTask adds a task id field to the logger.
func (l *Logger) WithTask(id uint32) *Logger {
	return &Logger{
		Logger: l.Logger.With("task", id),
	}
}

// LogFetch logs the end of a backend read.
func (l *Logger) LogFetch(ctx context.Context, path string, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "bundle fetch failed",
			"path", path,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "bundle fetched",
			"path", path,
			"bytes", size,
		)
	}
}

// LogDecode logs the end of decoding. A nil artifact without an error is a
// data-integrity problem and is logged as a warning.
func (l *Logger) LogDecode(ctx context.Context, path string, ok bool, err error) {
	switch {
	case err != nil:
		l.WarnContext(ctx, "bundle decode failed",
			"path", path,
			"error", err,
		)
	case !ok:
		l.WarnContext(ctx, "bundle decoded to nil artifact",
			"path", path,
		)
	default:
		l.DebugContext(ctx, "bundle decoded",
			"path", path,
		)
	}
}

// LogConfigError logs a load that could not be resolved.
func (l *Logger) LogConfigError(ctx context.Context, logicalPath string, mode Mode, err error) {
	l.ErrorContext(ctx, "bundle load misconfigured",
		"logical_path", logicalPath,
		"mode", mode.String(),
		"error", err,
	)
}

// LogCancel logs a task disposed before it finished.
func (l *Logger) LogCancel(ctx context.Context, path string, state State) {
	l.DebugContext(ctx, "bundle load cancelled",
		"path", path,
		"state", state.String(),
	)
}
