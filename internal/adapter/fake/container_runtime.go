package fake

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"odin/internal/runtime"
)

var _ runtime.ContainerRuntime = (*ContainerRuntime)(nil)

// ContainerRuntime is an in-memory implementation of runtime.ContainerRuntime.
// Logs returns every stored line; the requested tail is recorded, not applied.
type ContainerRuntime struct {
	CallRecorder
	mu         sync.Mutex
	containers []runtime.Container
	stats      map[string]runtime.StatsSample
	logs       map[string][]string

	// Hooks run before the fake does its work. A non-nil error is returned
	// as-is. Hooks may block to simulate a slow engine.
	ListErr  func(ctx context.Context, all bool) error
	StatsErr func(ctx context.Context, id string) error
	LogsErr  func(ctx context.Context, id string, opts runtime.LogOptions) error
}

// NewContainerRuntime creates an empty ContainerRuntime.
func NewContainerRuntime() *ContainerRuntime {
	return &ContainerRuntime{
		stats: make(map[string]runtime.StatsSample),
		logs:  make(map[string][]string),
	}
}

// AddContainer adds or replaces a container. An empty State means running.
func (r *ContainerRuntime) AddContainer(c runtime.Container) {
	if c.State == "" {
		c.State = "running"
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.containers {
		if r.containers[i].ID == c.ID {
			r.containers[i] = c
			return
		}
	}
	r.containers = append(r.containers, c)
}

// RemoveContainer forgets a container and its data.
func (r *ContainerRuntime) RemoveContainer(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.containers = slices.DeleteFunc(r.containers, func(c runtime.Container) bool { return c.ID == id })
	delete(r.stats, id)
	delete(r.logs, id)
}

// SetStats sets the sample returned by Stats.
func (r *ContainerRuntime) SetStats(id string, s runtime.StatsSample) {
	r.mu.Lock()
	r.stats[id] = s
	r.mu.Unlock()
}

// SetLogs sets the lines returned by Logs.
func (r *ContainerRuntime) SetLogs(id string, lines []string) {
	r.mu.Lock()
	r.logs[id] = slices.Clone(lines)
	r.mu.Unlock()
}

func (r *ContainerRuntime) ListContainers(ctx context.Context, all bool) ([]runtime.Container, error) {
	r.record("ListContainers", all)
	if r.ListErr != nil {
		if err := r.ListErr(ctx, all); err != nil {
			return nil, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]runtime.Container, 0, len(r.containers))
	for _, c := range r.containers {
		if !all && !c.Running() {
			continue
		}
		c.Ports = slices.Clone(c.Ports)
		out = append(out, c)
	}
	return out, nil
}

func (r *ContainerRuntime) Stats(ctx context.Context, id string) (runtime.StatsSample, error) {
	r.record("Stats", id)
	if r.StatsErr != nil {
		if err := r.StatsErr(ctx, id); err != nil {
			return runtime.StatsSample{}, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stats[id]
	if !ok {
		return runtime.StatsSample{}, fmt.Errorf("no stats for container %q", id)
	}
	networks := make(map[string]runtime.NetworkCounters, len(s.Networks))
	for name, c := range s.Networks {
		networks[name] = c
	}
	s.Networks = networks
	return s, nil
}

func (r *ContainerRuntime) Logs(ctx context.Context, id string, opts runtime.LogOptions) ([]string, error) {
	r.record("Logs", id, opts)
	if r.LogsErr != nil {
		if err := r.LogsErr(ctx, id, opts); err != nil {
			return nil, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	lines, ok := r.logs[id]
	if !ok {
		return nil, fmt.Errorf("no logs for container %q", id)
	}
	return slices.Clone(lines), nil
}
