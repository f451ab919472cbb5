// Package runtime defines the container engine port consumed by the monitor.
package runtime

import "context"

// ContainerRuntime is the subset of a container engine the monitor needs.
// Production: adapter/docker.Runtime
// Testing: adapter/fake.ContainerRuntime
type ContainerRuntime interface {
	// ListContainers returns running containers, or all containers when all is set.
	ListContainers(ctx context.Context, all bool) ([]Container, error)
	// Stats returns one statistics sample for the container.
	Stats(ctx context.Context, id string) (StatsSample, error)
	// Logs returns the most recent log lines of the container.
	Logs(ctx context.Context, id string, opts LogOptions) ([]string, error)
}

// Container is one entry of a container listing.
type Container struct {
	ID     string
	Name   string
	Image  string
	State  string
	Status string
	Ports  []PortMapping
}

// Running reports whether the engine considers the container running.
func (c Container) Running() bool {
	return c.State == "running"
}

// PortMapping is a published or exposed container port.
type PortMapping struct {
	IP          string
	PrivatePort uint16
	PublicPort  uint16
	Protocol    string
}

// StatsSample is a raw statistics sample as reported by the engine.
// Counters are cumulative since container start.
type StatsSample struct {
	CPUTotalUsage uint64
	MemoryUsage   uint64
	MemoryLimit   uint64
	Networks      map[string]NetworkCounters
}

// NetworkCounters holds the byte counters of one network interface.
type NetworkCounters struct {
	RxBytes uint64
	TxBytes uint64
}

// LogOptions controls a log fetch.
type LogOptions struct {
	Tail       int
	Timestamps bool
	Follow     bool
}
