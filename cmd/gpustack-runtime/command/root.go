// Package command builds the gpustack-runtime cobra command tree. It
// is a thin translator from flags to pkg/runtime calls: no business
// logic lives here, matching the teacher's cmd/agent one-subcommand-
// per-package layout (collapsed into one package since this CLI's
// surface is a fraction of the teacher's).
package command

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/gpustack/runtime/internal/config"
	"github.com/gpustack/runtime/internal/log"
	"github.com/gpustack/runtime/pkg/engine"
	"github.com/gpustack/runtime/pkg/engine/docker"
	"github.com/gpustack/runtime/pkg/runtime"
	"github.com/gpustack/runtime/pkg/topology"
)

// Version and Commit are set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

// GlobalParams carries the flags shared across every subcommand.
type GlobalParams struct {
	Backend string
	JSON    bool
	Watch   int
	Profile bool
}

// NewRootCommand builds the full gpustack-runtime command tree.
func NewRootCommand() *cobra.Command {
	params := &GlobalParams{}

	root := &cobra.Command{
		Use:           "gpustack-runtime",
		Short:         "Run GPU-aware container workloads without a Kubernetes control plane",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			if params.Profile {
				return runProfile(cmd)
			}
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&params.Backend, "backend", "docker", "container engine backend to use")
	root.PersistentFlags().BoolVar(&params.JSON, "json", false, "render output as JSON")
	root.PersistentFlags().IntVar(&params.Watch, "watch", 0, "poll and re-render every N seconds (0 disables)")
	root.Flags().BoolVar(&params.Profile, "profile", false, "list supported deployers and detectors and exit")

	root.SetVersionTemplate(fmt.Sprintf("gpustack-runtime %s (%s)\n", Version, Commit))
	root.Version = Version

	root.AddCommand(
		newCreateCommand(params),
		newCreateRunnerCommand(params),
		newDeleteCommand(params),
		newGetCommand(params),
		newListCommand(params),
		newLogsCommand(params),
		newExecCommand(params),
		newDetectCommand(params),
	)

	return root
}

// Execute runs the CLI and returns the process exit code: 0 on
// success, 1 when no subcommand is given or a command fails.
func Execute() int {
	root := NewRootCommand()
	if len(os.Args) == 1 {
		_ = root.Help()
		return 1
	}
	if err := root.Execute(); err != nil {
		log.Errorf("%v", err)
		return 1
	}
	return 0
}

func runProfile(cmd *cobra.Command) error {
	cmd.Println("deployers:")
	cmd.Println("  - docker")
	cmd.Println("detectors:")
	cmd.Println("  - nvidia")
	cmd.Println("  - hygon")
	return nil
}

// buildRuntime wires config, logging, the engine backend, and the
// lifecycle API the same way for every subcommand.
func buildRuntime(ctx context.Context, backend string) (*runtime.Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log.SetLevel(cfg.LogLevel)

	var eng engine.Engine
	switch backend {
	case "docker", "":
		eng, err = docker.New()
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported backend %q", backend)
	}

	if !eng.IsSupported(ctx) {
		return nil, fmt.Errorf("backend %q is not supported in this environment", backend)
	}

	return runtime.New(eng, afero.NewOsFs(), cfg.EphemeralFilesDir, topology.Options{
		PauseImage:               cfg.PauseImage,
		UnhealthyRestartImage:    cfg.UnhealthyRestartImage,
		ResourceDeviceEnvMapping: topology.DefaultResourceDeviceEnvMapping,
	}), nil
}
