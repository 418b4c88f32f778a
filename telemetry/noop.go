package telemetry

import "context"

// Noop discards everything. Use it when telemetry is disabled.
type Noop struct{}

// RecordQuery does nothing.
func (Noop) RecordQuery(ctx context.Context, info QueryInfo) {}

// RecordConnection does nothing.
func (Noop) RecordConnection(ctx context.Context, info ConnectionInfo) {}

var _ Recorder = Noop{}
