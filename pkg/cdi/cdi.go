// Package cdi computes Container Device Interface entries for detected
// devices (spec.md §4.G): one entry per device index, one per UUID,
// and a synthetic "all" entry aggregating every node. Rendering the
// entries to an on-disk CDI JSON file is a thin text/template writer
// in render.go; the entry-content computation here is fully tested.
package cdi

import (
	"fmt"
	"os"

	"github.com/gpustack/runtime/pkg/device"
)

// Spec is the subset of the CDI spec.json shape this runtime emits.
type Spec struct {
	Version string   `json:"cdiVersion"`
	Kind    string   `json:"kind"`
	Devices []Device `json:"devices"`
}

type Device struct {
	Name           string         `json:"name"`
	ContainerEdits ContainerEdits `json:"containerEdits"`
}

type ContainerEdits struct {
	DeviceNodes []DeviceNode `json:"deviceNodes"`
}

type DeviceNode struct {
	Path string `json:"path"`
}

// KindForManufacturer maps a detected device's manufacturer to its CDI
// "kind" (the same vendor.com/resource key used as a resource request
// key and as the topology projector's device-env-mapping key).
func KindForManufacturer(m device.Manufacturer) (string, bool) {
	kind, ok := manufacturerKinds[m]
	return kind, ok
}

var manufacturerKinds = map[device.Manufacturer]string{
	device.ManufacturerNVIDIA:    "nvidia.com/gpu",
	device.ManufacturerAMD:       "amd.com/gpu",
	device.ManufacturerHygon:     "hygon.com/dcunum",
	device.ManufacturerCambricon: "cambricon.com/vmlu",
	device.ManufacturerMThreads:  "mthreads.com/vgpu",
	device.ManufacturerIluvatar:  "iluvatar.ai/vgpu",
	device.ManufacturerEnflame:   "enflame.com/vgcu",
	device.ManufacturerMetaX:     "metax-tech.com/sgpu",
}

// Exists abstracts device-node presence checks so tests can stub the
// filesystem without touching the real /dev tree.
type Exists func(path string) bool

func osExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Generate computes the CDI spec for every device of the given
// manufacturer in devices. It returns nil if no device of that
// manufacturer is present, the manufacturer has no known CDI kind, or
// (for vendors with required common nodes, e.g. Hygon) none of those
// common nodes exist on the host.
func Generate(devices []device.Device, manufacturer device.Manufacturer, exists Exists) (*Spec, error) {
	if exists == nil {
		exists = osExists
	}

	kind, ok := KindForManufacturer(manufacturer)
	if !ok {
		return nil, nil
	}

	var matched []device.Device
	for _, d := range devices {
		if d.Manufacturer == manufacturer {
			matched = append(matched, d)
		}
	}
	if len(matched) == 0 {
		return nil, nil
	}

	switch manufacturer {
	case device.ManufacturerNVIDIA:
		return generateNVIDIA(kind, matched, exists), nil
	case device.ManufacturerHygon:
		return generateHygon(kind, matched, exists), nil
	default:
		return nil, fmt.Errorf("cdi generation not implemented for manufacturer %q", manufacturer)
	}
}

func generateNVIDIA(kind string, devices []device.Device, exists Exists) *Spec {
	var common []string
	for _, p := range []string{"/dev/nvidiactl", "/dev/nvidia-uvm", "/dev/nvidia-uvm-tools"} {
		if exists(p) {
			common = append(common, p)
		}
	}

	var cdiDevices []Device
	allNodes := append([]string{}, common...)

	for index, d := range devices {
		nodes := append([]string{}, common...)
		devNode := fmt.Sprintf("/dev/nvidia%d", index)
		if exists(devNode) {
			nodes = append(nodes, devNode)
			allNodes = append(allNodes, devNode)
		}

		edits := ContainerEdits{DeviceNodes: toDeviceNodes(nodes)}
		cdiDevices = append(cdiDevices,
			Device{Name: fmt.Sprintf("%d", index), ContainerEdits: edits},
			Device{Name: d.UUID, ContainerEdits: edits},
		)
	}

	if len(cdiDevices) == 0 {
		return nil
	}
	cdiDevices = append(cdiDevices, Device{
		Name:           "all",
		ContainerEdits: ContainerEdits{DeviceNodes: toDeviceNodes(dedup(allNodes))},
	})

	return &Spec{Version: "0.6.0", Kind: kind, Devices: cdiDevices}
}

func generateHygon(kind string, devices []device.Device, exists Exists) *Spec {
	var common []string
	for _, p := range []string{"/dev/kfd", "/dev/mkfd"} {
		if exists(p) {
			common = append(common, p)
		}
	}
	if len(common) == 0 {
		return nil
	}

	var cdiDevices []Device
	allNodes := append([]string{}, common...)

	for _, d := range devices {
		nodes := append([]string{}, common...)
		if cardID, ok := d.Appendix["card_id"]; ok {
			dn := fmt.Sprintf("/dev/dri/card%v", cardID)
			nodes = append(nodes, dn)
			allNodes = append(allNodes, dn)
		}
		if renderdID, ok := d.Appendix["renderd_id"]; ok {
			dn := fmt.Sprintf("/dev/dri/renderD%v", renderdID)
			nodes = append(nodes, dn)
			allNodes = append(allNodes, dn)
		}

		edits := ContainerEdits{DeviceNodes: toDeviceNodes(nodes)}
		cdiDevices = append(cdiDevices,
			Device{Name: fmt.Sprintf("%d", indexOf(devices, d)), ContainerEdits: edits},
			Device{Name: d.UUID, ContainerEdits: edits},
		)
	}

	if len(cdiDevices) == 0 {
		return nil
	}
	cdiDevices = append(cdiDevices, Device{
		Name:           "all",
		ContainerEdits: ContainerEdits{DeviceNodes: toDeviceNodes(dedup(allNodes))},
	})

	return &Spec{Version: "0.6.0", Kind: kind, Devices: cdiDevices}
}

func indexOf(devices []device.Device, target device.Device) int {
	for i, d := range devices {
		if d.UUID == target.UUID {
			return i
		}
	}
	return -1
}

func toDeviceNodes(paths []string) []DeviceNode {
	out := make([]DeviceNode, 0, len(paths))
	for _, p := range paths {
		out = append(out, DeviceNode{Path: p})
	}
	return out
}

func dedup(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
