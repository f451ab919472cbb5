package logscmd

import (
	"fmt"
	"strings"

	"odin/cmd/odin/cmdutil"
	"odin/cmd/odin/ui"
	"odin/internal/monitor"
	"odin/internal/runtime"

	"github.com/spf13/cobra"
)

// Cmd returns the "odin logs" command.
func Cmd() *cobra.Command {
	var (
		tail       int
		timestamps bool
	)

	cmd := &cobra.Command{
		Use:   "logs [container]",
		Short: "Show the recent logs of a container",
		Long: `Show the most recent log lines of a container, as the monitor collects
them. Without an argument, pick one of the running containers interactively.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := cmdutil.ConnectDocker(ctx)
			if err != nil {
				return err
			}

			var id string
			if len(args) == 1 {
				id = args[0]
			} else {
				containers, err := rt.ListContainers(ctx, false)
				if err != nil {
					return err
				}
				if len(containers) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No running containers.")
					return nil
				}
				idx, err := ui.Pick([]string{"CONTAINER ID", "NAME", "IMAGE", "STATUS"}, pickerRows(containers))
				if err != nil {
					return err
				}
				if idx < 0 {
					return nil
				}
				id = containers[idx].ID
			}

			lines, err := rt.Logs(ctx, id, runtime.LogOptions{Tail: tail, Timestamps: timestamps})
			if err != nil {
				return err
			}
			if len(lines) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), ui.Muted("No log output."))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(lines, "\n"))
			return nil
		},
	}

	cmd.Flags().IntVarP(&tail, "tail", "n", monitor.MaxLogLines, "Number of lines to show")
	cmd.Flags().BoolVarP(&timestamps, "timestamps", "t", true, "Prefix lines with their timestamp")
	return cmd
}

func pickerRows(containers []runtime.Container) [][]string {
	rows := make([][]string, 0, len(containers))
	for _, c := range containers {
		rows = append(rows, []string{
			monitor.ContainerID(c.ID).Short(),
			c.Name,
			c.Image,
			c.Status,
		})
	}
	return rows
}
