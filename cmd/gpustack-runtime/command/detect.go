package command

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/gpustack/runtime/pkg/device"
	"github.com/gpustack/runtime/pkg/device/hygon"
	"github.com/gpustack/runtime/pkg/device/nvidia"
)

func newDetectCommand(g *GlobalParams) *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Detect accelerator devices present on this host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			registry := device.NewRegistry(nvidia.New(), hygon.New())

			render := func() error {
				devices, err := registry.DetectDevices(ctx)
				if err != nil {
					return err
				}
				return printDevices(cmd, g, devices)
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

func printDevices(cmd *cobra.Command, g *GlobalParams, devices []device.Device) error {
	if g.JSON {
		encoded, err := json.MarshalIndent(devices, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(encoded))
		return nil
	}

	cmd.Printf("%-36s %-10s %-24s %s\n", "UUID", "VENDOR", "NAME", "MEMORY(MiB)")
	for _, d := range devices {
		cmd.Printf("%-36s %-10s %-24s %d\n", d.UUID, d.Manufacturer, d.Name, d.MemoryMiB)
	}
	return nil
}
