// Package monitor observes a fleet of running containers: it collects stats
// and log tails on independent cadences, asks a text generator to classify
// failures in the logs, and keeps the latest result of each in a Store.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"odin/internal/check"
	"odin/internal/runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

var (
	ErrListContainers = errors.New("list containers")
	ErrAlreadyStarted = errors.New("monitor already started")
	ErrStopped        = errors.New("monitor stopped")
)

type lifecycle uint8

const (
	lifecycleIdle lifecycle = iota
	lifecycleRunning
	lifecycleStopped
)

// Monitor owns the observation store and the four periodic tasks that feed
// and display it.
type Monitor struct {
	cfg       Config
	runtime   runtime.ContainerRuntime
	generator TextGenerator
	store     *Store
	limiter   *rate.Limiter
	metrics   *Metrics
	tracer    trace.Tracer
	log       *slog.Logger

	mu     sync.Mutex
	state  lifecycle
	cancel context.CancelFunc
	tasks  sync.WaitGroup
}

// New creates a Monitor. It does not contact the runtime until Start or one
// of the cycle methods is called.
func New(rt runtime.ContainerRuntime, gen TextGenerator, cfg Config) (*Monitor, error) {
	if rt == nil {
		return nil, fmt.Errorf("new monitor: container runtime is required")
	}
	if gen == nil {
		return nil, fmt.Errorf("new monitor: text generator is required")
	}
	cfg, err := NormalizeConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("new monitor: %w", err)
	}

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer("odin/monitor")
	}
	return &Monitor{
		cfg:       cfg,
		runtime:   rt,
		generator: gen,
		store:     NewStore(),
		limiter:   rate.NewLimiter(cfg.AnalysisRate, cfg.AnalysisBurst),
		metrics:   cfg.Metrics,
		tracer:    tracer,
		log:       slog.With("component", "monitor"),
	}, nil
}

// Config returns the normalized configuration.
func (m *Monitor) Config() Config {
	return m.cfg
}

// Start refreshes the display once and schedules the display, stats, logs
// and analysis tasks at fixed rates. Each task first runs one interval after
// Start. Cancelling ctx has the same effect on the tasks as Stop.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case lifecycleRunning:
		m.mu.Unlock()
		return ErrAlreadyStarted
	case lifecycleStopped:
		m.mu.Unlock()
		return ErrStopped
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.state = lifecycleRunning
	// Every task is registered before a concurrent Stop can observe the
	// running state and wait on them.
	m.tasks.Add(1)
	m.schedule(runCtx, kindDisplay, m.cfg.DisplayInterval, m.refreshDisplay)
	m.schedule(runCtx, kindStats, m.cfg.StatsInterval, m.CollectStats)
	m.schedule(runCtx, kindLogs, m.cfg.LogsInterval, m.CollectLogs)
	m.schedule(runCtx, kindAnalysis, m.cfg.AnalysisInterval, m.Analyze)
	m.mu.Unlock()

	m.log.Info("Starting container monitor.",
		"display_interval", m.cfg.DisplayInterval,
		"stats_interval", m.cfg.StatsInterval,
		"logs_interval", m.cfg.LogsInterval,
		"analysis_interval", m.cfg.AnalysisInterval)

	defer m.tasks.Done()
	m.runTask(runCtx, kindDisplay, m.refreshDisplay)
	return nil
}

// Stop cancels all scheduled tasks and waits up to the grace period for
// in-flight runs. Runs still going after that are abandoned. Stop never
// fails and may be called any number of times.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	prev := m.state
	m.state = lifecycleStopped
	cancel := m.cancel
	m.mu.Unlock()

	if prev != lifecycleRunning {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		m.tasks.Wait()
		close(done)
	}()

	timer := time.NewTimer(m.cfg.GracePeriod)
	defer timer.Stop()
	select {
	case <-done:
		m.log.Info("Container monitor stopped.")
	case <-timer.C:
		m.log.Warn("Abandoning in-flight monitor tasks after grace period.", "grace_period", m.cfg.GracePeriod)
	}
	return nil
}

// ContainerStats returns a copy of the latest stats per container.
func (m *Monitor) ContainerStats() map[ContainerID]ContainerStats {
	return m.store.Stats()
}

// ContainerLogs returns a copy of the latest log tail per container.
func (m *Monitor) ContainerLogs() map[ContainerID]LogTail {
	return m.store.Logs()
}

// FailurePatterns returns a copy of the latest failure record per container.
func (m *Monitor) FailurePatterns() map[ContainerID]FailureRecord {
	return m.store.Failures()
}

// Snapshot returns a copy of every observation kind.
func (m *Monitor) Snapshot() Snapshot {
	return m.store.Snapshot()
}

func (m *Monitor) schedule(ctx context.Context, name string, every time.Duration, fn func(context.Context) error) {
	check.Assertf(every > 0, "task %s interval must be positive, got %s", name, every)
	m.tasks.Add(1)
	go func() {
		defer m.tasks.Done()
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.runTask(ctx, name, fn)
			}
		}
	}()
}

// runTask contains every failure of one run, panics included, so a task
// can never take down its siblings.
func (m *Monitor) runTask(ctx context.Context, name string, fn func(context.Context) error) {
	if ctx.Err() != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("Monitor task panicked.", "task", name, "panic", r)
		}
	}()
	if err := fn(ctx); err != nil && ctx.Err() == nil {
		m.log.Debug("Monitor task failed.", "task", name, "err", err)
	}
}

func (m *Monitor) refreshDisplay(ctx context.Context) (err error) {
	if m.cfg.Display == nil {
		return nil
	}
	start := time.Now()
	defer func() { m.metrics.cycleDone(kindDisplay, time.Since(start), err) }()

	if err := m.cfg.Display.Refresh(ctx); err != nil {
		m.log.Error("Display error.", "err", err)
		return fmt.Errorf("refresh display: %w", err)
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, strings.TrimSpace(err.Error()))
	}
	span.End()
}
