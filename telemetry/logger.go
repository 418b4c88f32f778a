package telemetry

import (
	"context"
	"log/slog"
)

// Logger writes every record to a slog logger at debug level, failures at
// warn level.
type Logger struct {
	l *slog.Logger
}

// NewLogger wraps l.
func NewLogger(l *slog.Logger) *Logger {
	return &Logger{l: l}
}

// RecordQuery logs the statement.
func (g *Logger) RecordQuery(ctx context.Context, info QueryInfo) {
	attrs := []any{
		"table", info.Table,
		"op", info.Operation,
		"sql", info.SQL,
		"duration", info.Duration,
		"rows", info.Rows,
	}
	if info.Err != nil {
		g.l.WarnContext(ctx, "Query failed", append(attrs, "error", info.Err)...)
		return
	}
	g.l.DebugContext(ctx, "Query executed", attrs...)
}

// RecordConnection logs the event.
func (g *Logger) RecordConnection(ctx context.Context, info ConnectionInfo) {
	attrs := []any{"adapter", info.Adapter, "event", info.Event, "duration", info.Duration}
	if info.Err != nil {
		g.l.WarnContext(ctx, "Connection event failed", append(attrs, "error", info.Err)...)
		return
	}
	g.l.DebugContext(ctx, "Connection event", attrs...)
}

var _ Recorder = (*Logger)(nil)
