package command

import (
	"encoding/json"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gpustack/runtime/pkg/status"
)

func newGetCommand(g *GlobalParams) *cobra.Command {
	return &cobra.Command{
		Use:   "get name",
		Short: "Show a workload's aggregated status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := buildRuntime(ctx, g.Backend)
			if err != nil {
				return err
			}

			render := func() error {
				w, err := rt.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if w == nil {
					cmd.Printf("workload %q not found\n", args[0])
					return nil
				}
				return printWorkloadStatus(cmd, g, w)
			}

			if g.Watch <= 0 {
				return render()
			}
			for {
				if err := render(); err != nil {
					return err
				}
				time.Sleep(time.Duration(g.Watch) * time.Second)
			}
		},
	}
}

func printWorkloadStatus(cmd *cobra.Command, g *GlobalParams, w *status.WorkloadStatus) error {
	if g.JSON {
		encoded, err := json.MarshalIndent(w, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(encoded))
		return nil
	}

	stateColor := color.New(color.FgGreen)
	switch w.State {
	case status.StateFailed:
		stateColor = color.New(color.FgRed)
	case status.StateUnhealthy, status.StatePending, status.StateInitializing:
		stateColor = color.New(color.FgYellow)
	}

	cmd.Printf("name:    %s\n", w.Name)
	cmd.Printf("state:   %s\n", stateColor.Sprint(w.State))
	cmd.Printf("created: %s\n", w.CreatedAt)
	for _, op := range w.Executable {
		cmd.Printf("exec:    %s (%s)\n", op.Name, op.Token)
	}
	return nil
}
