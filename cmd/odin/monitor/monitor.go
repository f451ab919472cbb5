package monitorcmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"odin/cmd/odin/cmdutil"
	"odin/cmd/odin/ui"
	"odin/config"
	"odin/internal/monitor"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type flags struct {
	llm              cmdutil.LLMFlags
	statsInterval    time.Duration
	displayInterval  time.Duration
	logsInterval     time.Duration
	analysisInterval time.Duration
	maxConcurrency   int
	failurePolicy    string
	persist          bool
	dbPath           string
	metricsAddr      string
}

// Cmd returns the "odin monitor" command.
func Cmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Monitor Docker containers until interrupted",
		Long: `Refresh a table of all containers every few seconds while collecting
stats and log tails of the running ones in the background. Collected logs are
sent to the configured language model, and lines that name an error, failure
or exception are reported as detected issues.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cmdutil.LoadConfig()
			if err != nil {
				return err
			}
			f.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, &f)
		},
	}

	f.llm.Bind(cmd)
	cmd.Flags().DurationVarP(&f.statsInterval, "interval", "i", monitor.DefaultStatsInterval, "Stats collection interval")
	cmd.Flags().DurationVar(&f.displayInterval, "display-interval", monitor.DefaultDisplayInterval, "Table refresh interval")
	cmd.Flags().DurationVar(&f.logsInterval, "logs-interval", monitor.DefaultLogsInterval, "Log collection interval")
	cmd.Flags().DurationVar(&f.analysisInterval, "analysis-interval", 0, "Log analysis interval (default 5 × logs interval)")
	cmd.Flags().IntVar(&f.maxConcurrency, "max-concurrency", monitor.DefaultMaxConcurrency, "Containers fetched in parallel per cycle")
	cmd.Flags().StringVar(&f.failurePolicy, "failure-policy", "keep-stale", "What an analysis without failures does to earlier ones (keep-stale, clear-on-empty)")
	cmd.Flags().BoolVar(&f.persist, "persist", false, "Persist observations to the state database")
	cmd.Flags().StringVar(&f.dbPath, "db", "", "State database path (implies --persist)")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9464)")
	return cmd
}

// apply copies explicitly set flags over the config.
func (f *flags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("interval") {
		cfg.Monitor.StatsInterval = f.statsInterval
	}
	if changed("display-interval") {
		cfg.Monitor.DisplayInterval = f.displayInterval
	}
	if changed("logs-interval") {
		cfg.Monitor.LogsInterval = f.logsInterval
	}
	if changed("analysis-interval") {
		cfg.Monitor.AnalysisInterval = f.analysisInterval
	}
	if changed("max-concurrency") {
		cfg.Monitor.MaxConcurrency = f.maxConcurrency
	}
	if changed("failure-policy") {
		cfg.Monitor.FailurePolicy = f.failurePolicy
	}
	if changed("db") {
		cfg.DBPath = f.dbPath
	}
	if changed("metrics-addr") {
		cfg.MetricsAddr = f.metricsAddr
	}
	if cfg.DBPath != "" {
		f.persist = true
	}
}

func run(ctx context.Context, cfg *config.Config, f *flags) error {
	mcfg, err := cfg.MonitorConfig()
	if err != nil {
		return err
	}
	gen, err := f.llm.Client(cfg)
	if err != nil {
		return err
	}
	rt, err := cmdutil.ConnectDocker(ctx)
	if err != nil {
		return err
	}

	reporter := &ui.ContainerReporter{Runtime: rt, Out: os.Stdout}
	mcfg.Display = reporter

	if f.persist {
		store, err := cmdutil.OpenStore(cfg, cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		mcfg.Sink = store
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		reg := cmdutil.NewRegistry()
		mcfg.Metrics = monitor.NewMetrics(reg)
		g.Go(func() error { return cmdutil.ServeMetrics(gctx, cfg.MetricsAddr, reg) })
	}

	m, err := monitor.New(rt, gen, mcfg)
	if err != nil {
		return err
	}
	reporter.Source = m

	g.Go(func() error {
		if err := m.Start(gctx); err != nil {
			return fmt.Errorf("start monitor: %w", err)
		}
		<-gctx.Done()
		slog.Debug("Stopping container monitor.")
		return m.Stop()
	})
	return g.Wait()
}
