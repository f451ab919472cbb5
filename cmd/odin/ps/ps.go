package pscmd

import (
	"context"
	"fmt"

	"odin/cmd/odin/cmdutil"
	"odin/cmd/odin/ui"
	"odin/config"
	"odin/internal/monitor"

	"github.com/spf13/cobra"
)

// Cmd returns the "odin ps" command.
func Cmd() *cobra.Command {
	var (
		dbPath    string
		withState bool
	)

	cmd := &cobra.Command{
		Use:   "ps",
		Short: "List containers once",
		Long: `List all containers. With --state, stats and detected issues persisted
by a running "odin monitor --persist" are shown alongside.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := cmdutil.LoadConfig()
			if err != nil {
				return err
			}

			var snap monitor.Snapshot
			if withState || dbPath != "" {
				if snap, err = loadSnapshot(ctx, cfg, dbPath); err != nil {
					return err
				}
			}

			rt, err := cmdutil.ConnectDocker(ctx)
			if err != nil {
				return err
			}
			containers, err := rt.ListContainers(ctx, true)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderContainers(containers, snap))
			return nil
		},
	}

	cmd.Flags().BoolVar(&withState, "state", false, "Include persisted stats and issues")
	cmd.Flags().StringVar(&dbPath, "db", "", "State database path (implies --state)")
	return cmd
}

func loadSnapshot(ctx context.Context, cfg *config.Config, dbPath string) (monitor.Snapshot, error) {
	store, err := cmdutil.OpenStore(cfg, dbPath)
	if err != nil {
		return monitor.Snapshot{}, err
	}
	defer store.Close()

	snap, err := store.Load(ctx)
	if err != nil {
		return monitor.Snapshot{}, fmt.Errorf("read persisted observations: %w", err)
	}
	return snap, nil
}
