package fake

import (
	"context"
	"sync"

	"odin/internal/monitor"
)

var _ monitor.Sink = (*Sink)(nil)

// Sink keeps the last contents it received per observation kind.
type Sink struct {
	CallRecorder
	mu       sync.Mutex
	stats    map[monitor.ContainerID]monitor.ContainerStats
	logs     map[monitor.ContainerID]monitor.LogTail
	failures map[monitor.ContainerID]monitor.FailureRecord

	Err error
}

func (s *Sink) ReplaceStats(_ context.Context, stats map[monitor.ContainerID]monitor.ContainerStats) error {
	s.record("ReplaceStats", len(stats))
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()
	return nil
}

func (s *Sink) ReplaceLogs(_ context.Context, logs map[monitor.ContainerID]monitor.LogTail) error {
	s.record("ReplaceLogs", len(logs))
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	s.logs = logs
	s.mu.Unlock()
	return nil
}

func (s *Sink) ReplaceFailures(_ context.Context, failures map[monitor.ContainerID]monitor.FailureRecord) error {
	s.record("ReplaceFailures", len(failures))
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	s.failures = failures
	s.mu.Unlock()
	return nil
}

// Snapshot returns what the sink last received.
func (s *Sink) Snapshot() monitor.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return monitor.Snapshot{Stats: s.stats, Logs: s.logs, Failures: s.failures}
}
