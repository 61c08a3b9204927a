package command

import "github.com/spf13/cobra"

func newDeleteCommand(g *GlobalParams) *cobra.Command {
	return &cobra.Command{
		Use:   "delete name",
		Short: "Delete a workload and its ephemeral resources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := buildRuntime(ctx, g.Backend)
			if err != nil {
				return err
			}
			workload, err := rt.Delete(ctx, args[0])
			if err != nil {
				return err
			}
			if workload == nil {
				cmd.Printf("workload %q not found\n", args[0])
				return nil
			}
			cmd.Printf("workload %q deleted\n", args[0])
			return nil
		},
	}
}
