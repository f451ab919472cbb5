package monitor

import (
	"context"
	"errors"
	"testing"

	"odin/internal/runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type stubRuntime struct {
	listErr  error
	statsErr error
}

func (s stubRuntime) ListContainers(context.Context, bool) ([]runtime.Container, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return []runtime.Container{{ID: "a", State: "running"}, {ID: "b", State: "running"}}, nil
}

func (s stubRuntime) Stats(_ context.Context, id string) (runtime.StatsSample, error) {
	if s.statsErr != nil && id == "a" {
		return runtime.StatsSample{}, s.statsErr
	}
	return runtime.StatsSample{CPUTotalUsage: 1}, nil
}

func (s stubRuntime) Logs(context.Context, string, runtime.LogOptions) ([]string, error) {
	return []string{"line"}, nil
}

type stubGenerator string

func (g stubGenerator) Generate(context.Context, string) (string, error) { return string(g), nil }

func TestMetricsRecordCycles(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	m, err := New(stubRuntime{statsErr: errors.New("gone")}, stubGenerator("Error: x"), Config{Metrics: metrics})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := t.Context()
	if err := m.CollectStats(ctx); err != nil {
		t.Fatalf("CollectStats() error = %v", err)
	}
	if err := m.CollectLogs(ctx); err != nil {
		t.Fatalf("CollectLogs() error = %v", err)
	}
	if err := m.Analyze(ctx); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if got := testutil.ToFloat64(metrics.cycles.WithLabelValues(kindStats, "ok")); got != 1 {
		t.Errorf("stats ok cycles = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.fetchFailures.WithLabelValues(kindStats)); got != 1 {
		t.Errorf("stats fetch failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.containers.WithLabelValues(kindStats)); got != 1 {
		t.Errorf("stats containers collected = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.containers.WithLabelValues(kindLogs)); got != 2 {
		t.Errorf("logs containers collected = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.failingContainer); got != 2 {
		t.Errorf("failing containers = %v, want 2", got)
	}

	m.runtime = stubRuntime{listErr: errors.New("refused")}
	if err := m.CollectStats(ctx); err == nil {
		t.Fatal("CollectStats() error = nil with failing listing")
	}
	if got := testutil.ToFloat64(metrics.cycles.WithLabelValues(kindStats, "error")); got != 1 {
		t.Errorf("stats error cycles = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.cycleDone(kindStats, 0, nil)
	m.fetchFailed(kindStats)
	m.collected(kindLogs, 3)
	m.failing(1)
}

func TestCollectStatsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	m, err := New(stubRuntime{listErr: errors.New("refused")}, stubGenerator(""), Config{Tracer: tp.Tracer("test")})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := m.CollectStats(t.Context()); !errors.Is(err, ErrListContainers) {
		t.Fatalf("CollectStats() error = %v, want ErrListContainers", err)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	if spans[0].Name() != "monitor.collect_stats" {
		t.Fatalf("span name = %q", spans[0].Name())
	}
	if spans[0].Status().Code != codes.Error {
		t.Fatalf("span status = %v, want error", spans[0].Status().Code)
	}
}
