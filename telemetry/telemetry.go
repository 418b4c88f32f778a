// Package telemetry records statement executions and connection events.
package telemetry

import (
	"context"
	"time"
)

// Recorder receives one call per executed statement and connection event.
type Recorder interface {
	// RecordQuery records a statement execution.
	RecordQuery(ctx context.Context, info QueryInfo)

	// RecordConnection records a connection event.
	RecordConnection(ctx context.Context, info ConnectionInfo)
}

// QueryInfo describes one executed statement.
type QueryInfo struct {
	// Table is the target table.
	Table string

	// Operation is the statement kind (SELECT, INSERT, UPDATE, DELETE).
	Operation string

	// SQL is the rendered statement.
	SQL string

	// Duration is how long the adapter took.
	Duration time.Duration

	// Rows is the number of rows returned or affected.
	Rows int64

	// Err is the adapter error, nil on success.
	Err error
}

// Success reports whether the statement succeeded.
func (q QueryInfo) Success() bool { return q.Err == nil }

// ConnectionInfo describes a connection event.
type ConnectionInfo struct {
	// Adapter is the registered adapter name.
	Adapter string

	// Event is connect, close or rescan.
	Event string

	// Duration is how long the operation took.
	Duration time.Duration

	// Err is the failure, nil on success.
	Err error
}

// Multi fans every record out to several recorders.
type Multi []Recorder

// RecordQuery implements Recorder.
func (m Multi) RecordQuery(ctx context.Context, info QueryInfo) {
	for _, r := range m {
		r.RecordQuery(ctx, info)
	}
}

// RecordConnection implements Recorder.
func (m Multi) RecordConnection(ctx context.Context, info ConnectionInfo) {
	for _, r := range m {
		r.RecordConnection(ctx, info)
	}
}

var _ Recorder = Multi(nil)
