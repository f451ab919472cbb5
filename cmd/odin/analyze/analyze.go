package analyzecmd

import (
	"context"
	"fmt"
	"io"
	"slices"

	"odin/cmd/odin/cmdutil"
	"odin/cmd/odin/ui"
	"odin/internal/monitor"

	"github.com/spf13/cobra"
)

// Cmd returns the "odin analyze" command.
func Cmd() *cobra.Command {
	var llmFlags cmdutil.LLMFlags

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Collect and analyze the running containers once",
		Long: `Run one stats collection, one log collection and one analysis over all
running containers, then print the statistics and any detected issues.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := cmdutil.LoadConfig()
			if err != nil {
				return err
			}
			mcfg, err := cfg.MonitorConfig()
			if err != nil {
				return err
			}
			gen, err := llmFlags.Client(cfg)
			if err != nil {
				return err
			}
			rt, err := cmdutil.ConnectDocker(ctx)
			if err != nil {
				return err
			}
			m, err := monitor.New(rt, gen, mcfg)
			if err != nil {
				return err
			}

			if err := ui.RunWithSpinner(ctx, "Collecting stats and logs", func(ctx context.Context) error {
				if err := m.CollectStats(ctx); err != nil {
					return err
				}
				return m.CollectLogs(ctx)
			}); err != nil {
				return err
			}
			if err := ui.RunWithSpinner(ctx, "Analyzing logs", m.Analyze); err != nil {
				return err
			}

			printReport(cmd.OutOrStdout(), m.Snapshot())
			return nil
		},
	}

	llmFlags.Bind(cmd)
	return cmd
}

func printReport(w io.Writer, snap monitor.Snapshot) {
	if len(snap.Stats) == 0 {
		fmt.Fprintln(w, "No running containers.")
		return
	}

	ids := make([]monitor.ContainerID, 0, len(snap.Stats))
	for id := range snap.Stats {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	fmt.Fprintln(w, ui.Bold("Container Statistics:"))
	for _, id := range ids {
		st := snap.Stats[id]
		fmt.Fprintf(w, "Container: %s\n", ui.Accent(id.Short()))
		fmt.Fprint(w, ui.KeyValues("  ",
			ui.KV("CPU time", fmt.Sprintf("%d ns", st.CPUUsageTotal)),
			ui.KV("Memory", ui.FormatMemory(st)),
			ui.KV("Network RX/TX", ui.FormatNetwork(st)),
		))
	}

	if failures := ui.RenderFailures(snap.Failures); failures != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, failures)
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, ui.InfoMsg("No issues detected."))
}
