package ui

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"odin/internal/monitor"
	"odin/internal/runtime"
)

// cellWidth bounds the free-text columns of the container table.
const cellWidth = 16

var _ monitor.Display = (*ContainerReporter)(nil)

// Snapshotter hands out a copy of the current observations.
type Snapshotter interface {
	Snapshot() monitor.Snapshot
}

// ContainerReporter prints the container table on every refresh, replacing
// the previous one when the output is a terminal.
type ContainerReporter struct {
	Runtime runtime.ContainerRuntime
	Source  Snapshotter // optional
	Out     io.Writer
}

func (r *ContainerReporter) Refresh(ctx context.Context) error {
	containers, err := r.Runtime.ListContainers(ctx, true)
	if err != nil {
		return fmt.Errorf("list containers: %w", err)
	}
	var snap monitor.Snapshot
	if r.Source != nil {
		snap = r.Source.Snapshot()
	}

	ClearScreen(r.Out)
	out := RenderContainers(containers, snap) + "\n" + Muted("Press Ctrl+C to exit") + "\n"
	if _, err := io.WriteString(r.Out, out); err != nil {
		return fmt.Errorf("write container table: %w", err)
	}
	return nil
}

// RenderContainers renders every container with its latest stats and the
// number of failures found in its logs, followed by the failures themselves.
func RenderContainers(containers []runtime.Container, snap monitor.Snapshot) string {
	if len(containers) == 0 {
		return "No containers found."
	}

	rows := make([][]string, 0, len(containers))
	for _, c := range containers {
		id := monitor.ContainerID(c.ID)
		memory, network := "-", "-"
		if st, ok := snap.Stats[id]; ok {
			memory = FormatMemory(st)
			network = FormatNetwork(st)
		}
		issues := "-"
		if n := len(snap.Failures[id]); n > 0 {
			issues = Warn(fmt.Sprint(n))
		}
		rows = append(rows, []string{
			id.Short(),
			Truncate(c.Name, cellWidth),
			State(c.State, Truncate(c.Status, cellWidth)),
			Truncate(FormatPorts(c.Ports), cellWidth),
			memory,
			network,
			issues,
		})
	}

	var sb strings.Builder
	sb.WriteString(Bold("Docker Containers:") + "\n")
	sb.WriteString(Table([]string{"CONTAINER ID", "NAME", "STATUS", "PORTS", "MEMORY", "NET RX/TX", "ISSUES"}, rows))
	if failures := RenderFailures(snap.Failures); failures != "" {
		sb.WriteString("\n\n" + failures)
	}
	return sb.String()
}

// RenderFailures lists the failure records by container, or returns "" when
// there are none.
func RenderFailures(failures map[monitor.ContainerID]monitor.FailureRecord) string {
	ids := make([]monitor.ContainerID, 0, len(failures))
	for id, record := range failures {
		if len(record) > 0 {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return ""
	}
	slices.Sort(ids)

	var sb strings.Builder
	sb.WriteString(Warn("Detected Issues:") + "\n")
	for _, id := range ids {
		sb.WriteString("Container: " + Accent(id.Short()) + "\n")
		for _, failure := range failures[id] {
			sb.WriteString("  - " + failure + "\n")
		}
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// FormatPorts renders "private->public" pairs. A port without a public
// binding maps to itself. Duplicates from dual-stack bindings are dropped.
func FormatPorts(ports []runtime.PortMapping) string {
	var parts []string
	for _, p := range ports {
		public := p.PublicPort
		if public == 0 {
			public = p.PrivatePort
		}
		part := fmt.Sprintf("%d->%d", p.PrivatePort, public)
		if !slices.Contains(parts, part) {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}

func FormatMemory(st monitor.ContainerStats) string {
	return fmt.Sprintf("%d/%d MB", st.MemoryUsage/1024/1024, st.MemoryLimit/1024/1024)
}

func FormatNetwork(st monitor.ContainerStats) string {
	return fmt.Sprintf("%d/%d KB", st.NetworkRxBytes/1024, st.NetworkTxBytes/1024)
}
