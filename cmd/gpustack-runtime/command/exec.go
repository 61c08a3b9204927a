package command

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExecCommand(g *GlobalParams) *cobra.Command {
	var token string
	var detach bool

	cmd := &cobra.Command{
		Use:   "exec name [-- cmd args]",
		Short: "Run a command inside a workload's Run container",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := buildRuntime(ctx, g.Backend)
			if err != nil {
				return err
			}

			name := args[0]
			command := extraArgsAfterDash(cmd, args[1:])

			result, err := rt.Exec(ctx, name, token, command, detach)
			if err != nil {
				return err
			}
			if detach {
				return nil
			}
			if len(result.Output) > 0 {
				cmd.Print(string(result.Output))
			}
			if result.ExitCode != 0 {
				return fmt.Errorf("command exited with status %d", result.ExitCode)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "specific container token (ID); defaults to the Run container")
	cmd.Flags().BoolVarP(&detach, "detach", "d", false, "run the command without attaching to its output")
	return cmd
}
