package docquery

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with docquery-specific context.
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

// WithCollection adds a collection field to the logger.
func (l *Logger) WithCollection(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("collection", name),
	}
}

// LogInsert logs an insert operation.
func (l *Logger) LogInsert(ctx context.Context, key string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "insert failed",
			"key", key,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "insert completed",
			"key", key,
		)
	}
}

// LogBatchInsert logs a batch insert operation.
func (l *Logger) LogBatchInsert(ctx context.Context, count, failed int) {
	if failed > 0 {
		l.WarnContext(ctx, "batch insert completed with failures",
			"total", count,
			"failed", failed,
			"success", count-failed,
		)
	} else {
		l.InfoContext(ctx, "batch insert completed",
			"count", count,
		)
	}
}

// LogRemove logs a remove operation.
func (l *Logger) LogRemove(ctx context.Context, key string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "remove failed",
			"key", key,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "remove completed",
			"key", key,
		)
	}
}

// LogIndexBuild logs the creation of an index.
func (l *Logger) LogIndexBuild(ctx context.Context, index string, documents int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index build failed",
			"index", index,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index built",
			"index", index,
			"documents", documents,
			"duration", duration,
		)
	}
}

// LogPlan logs the plan chosen for a query.
func (l *Logger) LogPlan(ctx context.Context, variable, index, operator string, empty bool) {
	l.DebugContext(ctx, "query planned",
		"variable", variable,
		"index", index,
		"operator", operator,
		"empty", empty,
	)
}

// LogQuery logs a query operation.
func (l *Logger) LogQuery(ctx context.Context, kind string, total, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"query", kind,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query completed",
			"query", kind,
			"total", total,
			"count", count,
		)
	}
}
