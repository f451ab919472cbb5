package failurescmd

import (
	"fmt"

	"odin/cmd/odin/cmdutil"
	"odin/cmd/odin/ui"

	"github.com/spf13/cobra"
)

// Cmd returns the "odin failures" command.
func Cmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "failures",
		Short: "Show the issues a persisting monitor detected",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cmdutil.LoadConfig()
			if err != nil {
				return err
			}
			store, err := cmdutil.OpenStore(cfg, dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			snap, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}
			out := ui.RenderFailures(snap.Failures)
			if out == "" {
				fmt.Fprintln(cmd.OutOrStdout(), ui.InfoMsg("No issues detected."))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "State database path")
	return cmd
}
