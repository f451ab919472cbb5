package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"odin/internal/monitor"
)

var _ monitor.Sink = (*Store)(nil)

// ReplaceStats replaces every stored stats row with stats.
func (s *Store) ReplaceStats(ctx context.Context, stats map[monitor.ContainerID]monitor.ContainerStats) error {
	return s.replace(ctx, "container_stats", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO container_stats (
	container_id,
	cpu_usage_total,
	memory_usage,
	memory_limit,
	network_rx_bytes,
	network_tx_bytes,
	collected_at
) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare stats insert: %w", err)
		}
		defer stmt.Close()

		for id, st := range stats {
			if _, err := stmt.ExecContext(ctx,
				string(id),
				int64(st.CPUUsageTotal),
				int64(st.MemoryUsage),
				int64(st.MemoryLimit),
				int64(st.NetworkRxBytes),
				int64(st.NetworkTxBytes),
				st.CollectedAt.UTC().Format(time.RFC3339Nano),
			); err != nil {
				return fmt.Errorf("insert stats row %q: %w", id, err)
			}
		}
		return nil
	})
}

// ReplaceLogs replaces every stored log tail with logs.
func (s *Store) ReplaceLogs(ctx context.Context, logs map[monitor.ContainerID]monitor.LogTail) error {
	lines := make(map[monitor.ContainerID][]string, len(logs))
	for id, tail := range logs {
		lines[id] = tail
	}
	return s.replaceLines(ctx, "container_logs", lines)
}

// ReplaceFailures replaces every stored failure record with failures.
func (s *Store) ReplaceFailures(ctx context.Context, failures map[monitor.ContainerID]monitor.FailureRecord) error {
	lines := make(map[monitor.ContainerID][]string, len(failures))
	for id, record := range failures {
		lines[id] = record
	}
	return s.replaceLines(ctx, "container_failures", lines)
}

func (s *Store) replaceLines(ctx context.Context, table string, lines map[monitor.ContainerID][]string) error {
	updatedAt := time.Now().UTC().Format(time.RFC3339Nano)
	return s.replace(ctx, table, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+table+` (container_id, lines_json, updated_at) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare %s insert: %w", table, err)
		}
		defer stmt.Close()

		for id, l := range lines {
			if l == nil {
				l = []string{}
			}
			raw, err := json.Marshal(l)
			if err != nil {
				return fmt.Errorf("marshal %s row %q: %w", table, id, err)
			}
			if _, err := stmt.ExecContext(ctx, string(id), string(raw), updatedAt); err != nil {
				return fmt.Errorf("insert %s row %q: %w", table, id, err)
			}
		}
		return nil
	})
}

// replace deletes every row of table and runs insert in the same transaction.
func (s *Store) replace(ctx context.Context, table string, insert func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s transaction: %w", table, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return fmt.Errorf("delete previous %s: %w", table, err)
	}
	if err := insert(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s transaction: %w", table, err)
	}
	return nil
}

// Load reads everything the store holds.
func (s *Store) Load(ctx context.Context) (monitor.Snapshot, error) {
	stats, err := s.loadStats(ctx)
	if err != nil {
		return monitor.Snapshot{}, err
	}
	logs, err := s.loadLines(ctx, "container_logs")
	if err != nil {
		return monitor.Snapshot{}, err
	}
	failures, err := s.loadLines(ctx, "container_failures")
	if err != nil {
		return monitor.Snapshot{}, err
	}

	snap := monitor.Snapshot{
		Stats:    stats,
		Logs:     make(map[monitor.ContainerID]monitor.LogTail, len(logs)),
		Failures: make(map[monitor.ContainerID]monitor.FailureRecord, len(failures)),
	}
	for id, l := range logs {
		snap.Logs[id] = l
	}
	for id, l := range failures {
		snap.Failures[id] = l
	}
	return snap, nil
}

func (s *Store) loadStats(ctx context.Context) (map[monitor.ContainerID]monitor.ContainerStats, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT container_id, cpu_usage_total, memory_usage, memory_limit, network_rx_bytes, network_tx_bytes, collected_at
FROM container_stats`)
	if err != nil {
		return nil, fmt.Errorf("query container stats: %w", err)
	}
	defer rows.Close()

	out := make(map[monitor.ContainerID]monitor.ContainerStats)
	for rows.Next() {
		var (
			id                      string
			cpu, mem, limit, rx, tx int64
			collectedAtRaw          string
		)
		if err := rows.Scan(&id, &cpu, &mem, &limit, &rx, &tx, &collectedAtRaw); err != nil {
			return nil, fmt.Errorf("scan container stats row: %w", err)
		}
		collectedAt, err := time.Parse(time.RFC3339Nano, collectedAtRaw)
		if err != nil {
			return nil, fmt.Errorf("parse collected_at for %q: %w", id, err)
		}
		out[monitor.ContainerID(id)] = monitor.ContainerStats{
			CPUUsageTotal:  uint64(cpu),
			MemoryUsage:    uint64(mem),
			MemoryLimit:    uint64(limit),
			NetworkRxBytes: uint64(rx),
			NetworkTxBytes: uint64(tx),
			CollectedAt:    collectedAt,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate container stats: %w", err)
	}
	return out, nil
}

func (s *Store) loadLines(ctx context.Context, table string) (map[monitor.ContainerID][]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT container_id, lines_json FROM `+table)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	out := make(map[monitor.ContainerID][]string)
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		var lines []string
		if err := json.Unmarshal([]byte(raw), &lines); err != nil {
			return nil, fmt.Errorf("decode %s row %q: %w", table, id, err)
		}
		out[monitor.ContainerID(id)] = lines
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}
