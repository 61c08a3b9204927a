package command

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gpustack/runtime/pkg/engine"
)

func newLogsCommand(g *GlobalParams) *cobra.Command {
	var tail int
	var follow bool
	var timestamps bool
	var token string

	cmd := &cobra.Command{
		Use:   "logs name",
		Short: "Fetch a workload's Run container logs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := buildRuntime(ctx, g.Backend)
			if err != nil {
				return err
			}
			return rt.Logs(ctx, args[0], token, engine.LogOptions{
				Tail:       tail,
				Follow:     follow,
				Timestamps: timestamps,
			}, os.Stdout)
		},
	}
	cmd.Flags().IntVar(&tail, "tail", 0, "number of lines from the end of the logs to show")
	cmd.Flags().BoolVar(&follow, "follow", false, "stream logs in real time")
	cmd.Flags().BoolVar(&timestamps, "timestamps", false, "include timestamps in the logs")
	cmd.Flags().StringVar(&token, "token", "", "specific container token (ID); defaults to the Run container")
	return cmd
}
