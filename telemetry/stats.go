package telemetry

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Stats keeps in-memory counters keyed by table and operation.
type Stats struct {
	mu          sync.RWMutex
	queries     map[string]int64
	errors      map[string]int64
	durations   map[string]time.Duration
	connections map[string]int64
}

// NewStats creates an empty Stats.
func NewStats() *Stats {
	return &Stats{
		queries:     make(map[string]int64),
		errors:      make(map[string]int64),
		durations:   make(map[string]time.Duration),
		connections: make(map[string]int64),
	}
}

func statsKey(table, op string) string {
	return table + ":" + op
}

// RecordQuery counts the statement and its duration.
func (s *Stats) RecordQuery(ctx context.Context, info QueryInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := statsKey(info.Table, info.Operation)
	s.queries[k]++
	s.durations[k] += info.Duration
	if info.Err != nil {
		s.errors[k]++
	}
}

// RecordConnection counts the event.
func (s *Stats) RecordConnection(ctx context.Context, info ConnectionInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connections[info.Event]++
}

// Queries returns how many statements ran against table with op.
func (s *Stats) Queries(table, op string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queries[statsKey(table, op)]
}

// Errors returns how many statements against table with op failed.
func (s *Stats) Errors(table, op string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errors[statsKey(table, op)]
}

// Connections returns how many events of the kind were recorded.
func (s *Stats) Connections(event string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connections[event]
}

// Snapshot is a point-in-time copy of one counter row.
type Snapshot struct {
	Key      string
	Count    int64
	Errors   int64
	Duration time.Duration
}

// Snapshot returns all query counters sorted by key.
func (s *Stats) Snapshot() []Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Snapshot, 0, len(s.queries))
	for k, n := range s.queries {
		out = append(out, Snapshot{Key: k, Count: n, Errors: s.errors[k], Duration: s.durations[k]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

var _ Recorder = (*Stats)(nil)
