package monitor

import (
	"slices"
	"time"
)

// MaxLogLines bounds every stored LogTail.
const MaxLogLines = 100

// ContainerID identifies one container instance. It is stable for the
// container's lifetime and unrelated across restarts.
type ContainerID string

// Short returns the 12-character prefix commonly shown for container IDs.
func (id ContainerID) Short() string {
	if len(id) > 12 {
		return string(id[:12])
	}
	return string(id)
}

// ContainerStats is one normalized statistics snapshot. CPUUsageTotal and the
// network counters are cumulative since container start.
type ContainerStats struct {
	CPUUsageTotal  uint64
	MemoryUsage    uint64
	MemoryLimit    uint64
	NetworkRxBytes uint64
	NetworkTxBytes uint64
	CollectedAt    time.Time
}

// LogTail holds at most MaxLogLines of the most recent log lines, oldest first.
type LogTail []string

// FailureRecord holds the failure descriptions extracted from one analysis.
type FailureRecord []string

// Snapshot is a point-in-time copy of every observation kind. No consistency
// across kinds is implied: stats may be newer than logs for the same container.
type Snapshot struct {
	Stats    map[ContainerID]ContainerStats
	Logs     map[ContainerID]LogTail
	Failures map[ContainerID]FailureRecord
}

// IDs returns every container ID present in any kind, sorted.
func (s Snapshot) IDs() []ContainerID {
	seen := make(map[ContainerID]struct{}, len(s.Stats))
	for id := range s.Stats {
		seen[id] = struct{}{}
	}
	for id := range s.Logs {
		seen[id] = struct{}{}
	}
	for id := range s.Failures {
		seen[id] = struct{}{}
	}
	out := make([]ContainerID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
