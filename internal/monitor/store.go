package monitor

import (
	"slices"

	"github.com/goradd/maps"
)

// Store is the observation state shared by the collectors and readers.
// Each kind has one writer role; reads return independent copies.
type Store struct {
	stats    maps.SafeMap[ContainerID, ContainerStats]
	logs     maps.SafeMap[ContainerID, LogTail]
	failures maps.SafeMap[ContainerID, FailureRecord]
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

func (s *Store) SetStats(id ContainerID, stats ContainerStats) {
	s.stats.Set(id, stats)
}

// SetLogs replaces the stored tail, keeping at most MaxLogLines lines.
func (s *Store) SetLogs(id ContainerID, tail LogTail) {
	if len(tail) > MaxLogLines {
		tail = tail[:MaxLogLines]
	}
	s.logs.Set(id, slices.Clone(tail))
}

func (s *Store) SetFailures(id ContainerID, record FailureRecord) {
	s.failures.Set(id, slices.Clone(record))
}

func (s *Store) ClearFailures(id ContainerID) {
	s.failures.Delete(id)
}

// StatsFor returns the latest stats of one container.
func (s *Store) StatsFor(id ContainerID) (ContainerStats, bool) {
	return s.stats.Load(id)
}

func (s *Store) Stats() map[ContainerID]ContainerStats {
	out := make(map[ContainerID]ContainerStats, s.stats.Len())
	s.stats.Range(func(id ContainerID, v ContainerStats) bool {
		out[id] = v
		return true
	})
	return out
}

func (s *Store) Logs() map[ContainerID]LogTail {
	out := make(map[ContainerID]LogTail, s.logs.Len())
	s.logs.Range(func(id ContainerID, v LogTail) bool {
		out[id] = slices.Clone(v)
		return true
	})
	return out
}

func (s *Store) Failures() map[ContainerID]FailureRecord {
	out := make(map[ContainerID]FailureRecord, s.failures.Len())
	s.failures.Range(func(id ContainerID, v FailureRecord) bool {
		out[id] = slices.Clone(v)
		return true
	})
	return out
}

func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		Stats:    s.Stats(),
		Logs:     s.Logs(),
		Failures: s.Failures(),
	}
}
