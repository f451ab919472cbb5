package monitor

import (
	"context"
	"sync/atomic"
	"time"

	"odin/internal/runtime"

	"go.opentelemetry.io/otel/attribute"
)

// CollectLogs runs one log collection cycle: list running containers, fetch
// up to MaxLogLines timestamped lines per container in parallel, and replace
// the stored tail of every container whose fetch succeeded in time.
func (m *Monitor) CollectLogs(ctx context.Context) (err error) {
	ctx, span := m.tracer.Start(ctx, "monitor.collect_logs")
	start := time.Now()
	defer func() {
		m.metrics.cycleDone(kindLogs, time.Since(start), err)
		endSpan(span, err)
	}()

	ids, err := m.listRunning(ctx)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("monitor.containers", len(ids)))

	opts := runtime.LogOptions{Tail: MaxLogLines, Timestamps: true, Follow: false}
	var collected atomic.Int64
	fanOut(ctx, m.cfg.MaxConcurrency, ids, func(ctx context.Context, id ContainerID) {
		lines, err := withTimeout(ctx, m.cfg.FetchTimeout, func(ctx context.Context) ([]string, error) {
			return m.runtime.Logs(ctx, string(id), opts)
		})
		if err != nil {
			m.metrics.fetchFailed(kindLogs)
			m.log.Warn("Failed to collect container logs.", "container", id.Short(), "err", err)
			return
		}
		m.store.SetLogs(id, capTail(lines))
		collected.Add(1)
	})

	m.metrics.collected(kindLogs, int(collected.Load()))
	m.log.Debug("Collected container logs.", "containers", len(ids), "collected", collected.Load())

	if m.cfg.Sink != nil {
		if err := m.cfg.Sink.ReplaceLogs(ctx, m.store.Logs()); err != nil {
			m.log.Warn("Failed to persist container logs.", "err", err)
		}
	}
	return nil
}

// capTail keeps the first MaxLogLines lines; accumulation stops at the cap.
func capTail(lines []string) LogTail {
	tail := make(LogTail, 0, min(len(lines), MaxLogLines))
	for _, line := range lines {
		if len(tail) >= MaxLogLines {
			break
		}
		tail = append(tail, line)
	}
	return tail
}
