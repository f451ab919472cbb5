package monitor

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"odin/internal/runtime"

	"go.opentelemetry.io/otel/attribute"
)

// CollectStats runs one metrics collection cycle: list running containers,
// fetch one sample per container in parallel, and replace the stored stats
// of every container whose fetch succeeded in time.
func (m *Monitor) CollectStats(ctx context.Context) (err error) {
	ctx, span := m.tracer.Start(ctx, "monitor.collect_stats")
	start := time.Now()
	defer func() {
		m.metrics.cycleDone(kindStats, time.Since(start), err)
		endSpan(span, err)
	}()

	ids, err := m.listRunning(ctx)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("monitor.containers", len(ids)))

	var collected atomic.Int64
	fanOut(ctx, m.cfg.MaxConcurrency, ids, func(ctx context.Context, id ContainerID) {
		sample, err := withTimeout(ctx, m.cfg.FetchTimeout, func(ctx context.Context) (runtime.StatsSample, error) {
			return m.runtime.Stats(ctx, string(id))
		})
		if err != nil {
			m.metrics.fetchFailed(kindStats)
			m.log.Warn("Failed to get container stats.", "container", id.Short(), "err", err)
			return
		}
		m.store.SetStats(id, normalizeStats(sample, m.cfg.PrimaryInterface, time.Now()))
		collected.Add(1)
	})

	m.metrics.collected(kindStats, int(collected.Load()))
	m.log.Debug("Collected container stats.", "containers", len(ids), "collected", collected.Load())

	if m.cfg.Sink != nil {
		if err := m.cfg.Sink.ReplaceStats(ctx, m.store.Stats()); err != nil {
			m.log.Warn("Failed to persist container stats.", "err", err)
		}
	}
	return nil
}

// normalizeStats converts a raw sample. Network counters come from the
// primary interface, or the first interface by name when it is missing.
func normalizeStats(s runtime.StatsSample, primary string, at time.Time) ContainerStats {
	out := ContainerStats{
		CPUUsageTotal: s.CPUTotalUsage,
		MemoryUsage:   s.MemoryUsage,
		MemoryLimit:   s.MemoryLimit,
		CollectedAt:   at,
	}
	counters, ok := s.Networks[primary]
	if !ok && len(s.Networks) > 0 {
		names := make([]string, 0, len(s.Networks))
		for name := range s.Networks {
			names = append(names, name)
		}
		slices.Sort(names)
		counters = s.Networks[names[0]]
	}
	out.NetworkRxBytes = counters.RxBytes
	out.NetworkTxBytes = counters.TxBytes
	return out
}

// listRunning enumerates running containers. Any failure aborts the calling
// cycle before a single write happens.
func (m *Monitor) listRunning(ctx context.Context) ([]ContainerID, error) {
	containers, err := m.runtime.ListContainers(ctx, false)
	if err != nil {
		m.log.Warn("Failed to list containers.", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrListContainers, err)
	}
	ids := make([]ContainerID, 0, len(containers))
	for _, c := range containers {
		if c.ID == "" {
			continue
		}
		ids = append(ids, ContainerID(c.ID))
	}
	return ids, nil
}
