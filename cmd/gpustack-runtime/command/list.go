package command

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gpustack/runtime/pkg/status"
)

func newListCommand(g *GlobalParams) *cobra.Command {
	var rawLabels string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := buildRuntime(ctx, g.Backend)
			if err != nil {
				return err
			}
			selector := parseLabelSelector(rawLabels)

			render := func() error {
				workloads, err := rt.List(ctx, selector)
				if err != nil {
					return err
				}
				return printWorkloadList(cmd, g, workloads)
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
	cmd.Flags().StringVar(&rawLabels, "labels", "", "comma-separated k=v label selector")
	return cmd
}

func parseLabelSelector(raw string) map[string]string {
	out := map[string]string{}
	if raw == "" {
		return out
	}
	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		out[k] = v
	}
	return out
}

func printWorkloadList(cmd *cobra.Command, g *GlobalParams, workloads []*status.WorkloadStatus) error {
	if g.JSON {
		encoded, err := json.MarshalIndent(workloads, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(encoded))
		return nil
	}

	cmd.Printf("%-24s %-14s %s\n", "NAME", "STATE", "CREATED")
	for _, w := range workloads {
		cmd.Printf("%-24s %-14s %s\n", w.Name, w.State, w.CreatedAt)
	}
	return nil
}
