package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	// DefaultDisplayInterval is 5s: the container table refresh cadence.
	DefaultDisplayInterval = 5 * time.Second
	// DefaultStatsInterval is 30s: stats counters are cheap and move fast.
	DefaultStatsInterval = 30 * time.Second
	// DefaultLogsInterval is 60m: log collection is the least frequent collector.
	DefaultLogsInterval = 60 * time.Minute
	// DefaultFetchTimeout bounds each per-container stats or logs fetch.
	DefaultFetchTimeout = 5 * time.Second
	// DefaultAnalysisTimeout bounds one text-generation call.
	DefaultAnalysisTimeout = 3 * time.Minute
	// DefaultGracePeriod bounds how long Stop waits for in-flight tasks.
	DefaultGracePeriod = 60 * time.Second
	// DefaultMaxConcurrency caps per-cycle fan-out.
	DefaultMaxConcurrency = 32
	// DefaultPrimaryInterface names the interface whose counters are reported.
	DefaultPrimaryInterface = "eth0"

	analysisIntervalFactor = 5
)

// FailurePolicy decides what an analysis that finds no failures does to the
// previously stored FailureRecord.
type FailurePolicy uint8

const (
	// FailuresKeepStale leaves the last non-empty record in place.
	FailuresKeepStale FailurePolicy = iota
	// FailuresClearOnEmpty removes the record.
	FailuresClearOnEmpty
)

func (p FailurePolicy) String() string {
	switch p {
	case FailuresKeepStale:
		return "keep-stale"
	case FailuresClearOnEmpty:
		return "clear-on-empty"
	default:
		return "unknown"
	}
}

// ParseFailurePolicy accepts the String forms.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "keep-stale":
		return FailuresKeepStale, nil
	case "clear-on-empty":
		return FailuresClearOnEmpty, nil
	default:
		return 0, fmt.Errorf("invalid failure policy %q", s)
	}
}

// Display renders the current state somewhere visible to a human.
type Display interface {
	Refresh(ctx context.Context) error
}

// Sink receives the full contents of one observation kind after every
// cycle that wrote to it.
type Sink interface {
	ReplaceStats(ctx context.Context, stats map[ContainerID]ContainerStats) error
	ReplaceLogs(ctx context.Context, logs map[ContainerID]LogTail) error
	ReplaceFailures(ctx context.Context, failures map[ContainerID]FailureRecord) error
}

// Config tunes a Monitor. Zero values take the defaults above.
type Config struct {
	DisplayInterval  time.Duration
	StatsInterval    time.Duration
	LogsInterval     time.Duration
	AnalysisInterval time.Duration // zero: 5 × LogsInterval
	FetchTimeout     time.Duration
	AnalysisTimeout  time.Duration
	GracePeriod      time.Duration
	MaxConcurrency   int
	PrimaryInterface string
	FailurePolicy    FailurePolicy

	// AnalysisRate limits text-generation calls per second. Zero means unlimited.
	AnalysisRate  rate.Limit
	AnalysisBurst int

	Display Display // optional
	Sink    Sink    // optional
	Metrics *Metrics
	Tracer  trace.Tracer
}

// NormalizeConfig fills defaults and rejects negative values.
func NormalizeConfig(cfg Config) (Config, error) {
	durations := []struct {
		name string
		v    *time.Duration
		def  time.Duration
	}{
		{"display interval", &cfg.DisplayInterval, DefaultDisplayInterval},
		{"stats interval", &cfg.StatsInterval, DefaultStatsInterval},
		{"logs interval", &cfg.LogsInterval, DefaultLogsInterval},
		{"fetch timeout", &cfg.FetchTimeout, DefaultFetchTimeout},
		{"analysis timeout", &cfg.AnalysisTimeout, DefaultAnalysisTimeout},
		{"grace period", &cfg.GracePeriod, DefaultGracePeriod},
	}
	for _, d := range durations {
		if *d.v < 0 {
			return Config{}, fmt.Errorf("%s must not be negative: %s", d.name, *d.v)
		}
		if *d.v == 0 {
			*d.v = d.def
		}
	}

	if cfg.AnalysisInterval < 0 {
		return Config{}, fmt.Errorf("analysis interval must not be negative: %s", cfg.AnalysisInterval)
	}
	if cfg.AnalysisInterval == 0 {
		cfg.AnalysisInterval = analysisIntervalFactor * cfg.LogsInterval
	}

	if cfg.MaxConcurrency < 0 {
		return Config{}, fmt.Errorf("max concurrency must not be negative: %d", cfg.MaxConcurrency)
	}
	if cfg.MaxConcurrency == 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}

	cfg.PrimaryInterface = strings.TrimSpace(cfg.PrimaryInterface)
	if cfg.PrimaryInterface == "" {
		cfg.PrimaryInterface = DefaultPrimaryInterface
	}

	if cfg.AnalysisRate < 0 {
		return Config{}, fmt.Errorf("analysis rate must not be negative: %v", cfg.AnalysisRate)
	}
	if cfg.AnalysisRate == 0 {
		cfg.AnalysisRate = rate.Inf
	}
	if cfg.AnalysisBurst <= 0 {
		cfg.AnalysisBurst = 1
	}

	switch cfg.FailurePolicy {
	case FailuresKeepStale, FailuresClearOnEmpty:
	default:
		return Config{}, fmt.Errorf("invalid failure policy %d", cfg.FailurePolicy)
	}
	return cfg, nil
}
