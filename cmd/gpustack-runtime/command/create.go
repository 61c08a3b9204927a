package command

import (
	"github.com/spf13/cobra"

	"github.com/gpustack/runtime/pkg/plan"
	"github.com/gpustack/runtime/pkg/runner"
)

func newCreateCommand(g *GlobalParams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create name image volume [-- extra_args]",
		Short: "Deploy a workload from a container image",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, image, volume := args[0], args[1], args[2]
			return runCreate(cmd, g, name, image, volume, extraArgsAfterDash(cmd, args[3:]))
		},
	}
	return cmd
}

func newCreateRunnerCommand(g *GlobalParams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-runner service version volume [-- extra_args]",
		Short: "Deploy a workload using a curated runner image",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, version, volume := args[0], args[1], args[2]

			image, err := runner.Resolve(service, version)
			if err != nil {
				return err
			}
			return runCreate(cmd, g, service, image, volume, extraArgsAfterDash(cmd, args[3:]))
		},
	}
	return cmd
}

// extraArgsAfterDash returns only the args cobra received after a
// literal "--" separator, discarding the rest if no separator was
// given - "create name image volume extra" (no "--") has no extra args.
func extraArgsAfterDash(cmd *cobra.Command, rest []string) []string {
	dashAt := cmd.ArgsLenAtDash()
	if dashAt < 0 {
		return nil
	}
	// rest is the tail of the positional args; skip any of its entries
	// that came before the "--".
	offset := len(cmd.Flags().Args()) - len(rest)
	if skip := dashAt - offset; skip > 0 && skip <= len(rest) {
		return rest[skip:]
	}
	return rest
}

func runCreate(cmd *cobra.Command, g *GlobalParams, name, image, volume string, extraArgs []string) error {
	ctx := cmd.Context()
	rt, err := buildRuntime(ctx, g.Backend)
	if err != nil {
		return err
	}

	p := plan.WorkloadPlan{
		Name: name,
		Containers: []plan.Container{
			{
				Name:    "main",
				Profile: plan.ProfileRun,
				Image:   image,
				Execution: &plan.Execution{
					Args: extraArgs,
				},
				Mounts: []plan.Mount{
					{Path: "/data", Volume: &volume},
				},
			},
		},
	}

	if err := rt.Create(ctx, p); err != nil {
		return err
	}
	cmd.Printf("workload %q created\n", name)
	return nil
}
