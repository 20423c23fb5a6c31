package coarsesearch

import (
	"context"
	"log/slog"
	"os"

	"github.com/hupe1980/coarsesearch/index"
)

// Logger wraps slog.Logger with search-specific context.
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

// WithRank adds the caller's rank to the logger.
func (l *Logger) WithRank(rank, size int) *Logger {
	return &Logger{
		Logger: l.Logger.With("rank", rank, "ranks", size),
	}
}

// WithMethod adds the index method to the logger.
func (l *Logger) WithMethod(m index.Method) *Logger {
	return &Logger{
		Logger: l.Logger.With("method", m.String()),
	}
}

// LogSearch logs a completed search.
func (l *Logger) LogSearch(ctx context.Context, countA, countB, pairs int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"count_a", countA,
			"count_b", countB,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"count_a", countA,
			"count_b", countB,
			"pairs", pairs,
		)
	}
}

// LogExchange logs the traffic of one exchange.
func (l *Logger) LogExchange(ctx context.Context, r ExchangeStats) {
	shipped := "B"
	if r.ShipA {
		shipped = "A"
	}
	l.DebugContext(ctx, "exchange",
		"shipped", shipped,
		"peers", r.Peers,
		"sent", r.Sent,
		"received", r.Received,
		"bytes_sent", r.BytesSent,
		"bytes_received", r.BytesReceived,
		"returned", r.Returned,
		"candidates", r.Candidates,
		"duration", r.Duration,
	)
}
