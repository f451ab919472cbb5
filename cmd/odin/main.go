package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	analyzecmd "odin/cmd/odin/analyze"
	configcmd "odin/cmd/odin/configure"
	failurescmd "odin/cmd/odin/failures"
	logscmd "odin/cmd/odin/logs"
	monitorcmd "odin/cmd/odin/monitor"
	pscmd "odin/cmd/odin/ps"
	"odin/cmd/odin/ui"
	"odin/config"
	"odin/internal/buildinfo"
	"odin/internal/logging"

	"github.com/spf13/cobra"
)

func main() {
	var (
		debug         bool
		logFormat     string
		noInteraction bool
	)
	if err := logging.Configure(logging.LevelWarn, logging.FormatText); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:           "odin",
		Short:         "Watch running containers and flag failures in their logs",
		Version:       buildinfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ui.ConfigureInteraction(noInteraction)

			level, format := logging.LevelWarn, logFormat
			if cfg, err := config.Load(); err == nil {
				if cfg.Log.Level != "" {
					level = cfg.Log.Level
				}
				if format == "" {
					format = cfg.Log.Format
				}
			}
			if debug {
				level = logging.LevelDebug
			}
			return logging.Configure(level, format)
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (text, json)")
	root.PersistentFlags().BoolVar(&noInteraction, "no-interaction", false, "Disable colors, spinners and pickers")

	root.AddCommand(monitorcmd.Cmd())
	root.AddCommand(analyzecmd.Cmd())
	root.AddCommand(pscmd.Cmd())
	root.AddCommand(logscmd.Cmd())
	root.AddCommand(failurescmd.Cmd())
	root.AddCommand(configcmd.Cmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
