package cdi

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpustack/runtime/pkg/device"
)

func TestGenerateNVIDIAPerIndexAndUUIDPlusAll(t *testing.T) {
	devices := []device.Device{
		{Manufacturer: device.ManufacturerNVIDIA, UUID: "GPU-aaa"},
		{Manufacturer: device.ManufacturerNVIDIA, UUID: "GPU-bbb"},
	}
	exists := func(path string) bool {
		switch path {
		case "/dev/nvidiactl", "/dev/nvidia-uvm", "/dev/nvidia0", "/dev/nvidia1":
			return true
		default:
			return false
		}
	}

	spec, err := Generate(devices, device.ManufacturerNVIDIA, exists)
	require.NoError(t, err)
	require.NotNil(t, spec)
	assert.Equal(t, "nvidia.com/gpu", spec.Kind)

	names := map[string]bool{}
	for _, d := range spec.Devices {
		names[d.Name] = true
	}
	assert.True(t, names["0"])
	assert.True(t, names["1"])
	assert.True(t, names["GPU-aaa"])
	assert.True(t, names["GPU-bbb"])
	assert.True(t, names["all"])

	all := spec.Devices[len(spec.Devices)-1]
	assert.Equal(t, "all", all.Name)
	assert.Len(t, all.ContainerEdits.DeviceNodes, 4)
}

func TestGenerateHygonRequiresCommonNodes(t *testing.T) {
	devices := []device.Device{
		{Manufacturer: device.ManufacturerHygon, UUID: "HYGON-0", Appendix: map[string]any{"card_id": 0, "renderd_id": 128}},
	}

	spec, err := Generate(devices, device.ManufacturerHygon, func(string) bool { return false })
	require.NoError(t, err)
	assert.Nil(t, spec, "no common nodes present means no spec should be generated")

	exists := func(path string) bool {
		return path == "/dev/kfd"
	}
	spec, err = Generate(devices, device.ManufacturerHygon, exists)
	require.NoError(t, err)
	require.NotNil(t, spec)

	var cardEntry *Device
	for i := range spec.Devices {
		if spec.Devices[i].Name == "HYGON-0" {
			cardEntry = &spec.Devices[i]
		}
	}
	require.NotNil(t, cardEntry)

	var paths []string
	for _, n := range cardEntry.ContainerEdits.DeviceNodes {
		paths = append(paths, n.Path)
	}
	assert.Contains(t, paths, "/dev/kfd")
	assert.Contains(t, paths, "/dev/dri/card0")
	assert.Contains(t, paths, "/dev/dri/renderD128")
}

func TestGenerateReturnsNilForUnmatchedManufacturer(t *testing.T) {
	devices := []device.Device{{Manufacturer: device.ManufacturerAMD, UUID: "x"}}
	spec, err := Generate(devices, device.ManufacturerNVIDIA, func(string) bool { return true })
	require.NoError(t, err)
	assert.Nil(t, spec)
}

func TestRenderWritesJSON(t *testing.T) {
	fs := afero.NewMemMapFs()
	spec := &Spec{Version: "0.6.0", Kind: "nvidia.com/gpu", Devices: []Device{
		{Name: "0", ContainerEdits: ContainerEdits{DeviceNodes: []DeviceNode{{Path: "/dev/nvidia0"}}}},
	}}

	require.NoError(t, Render(fs, "/etc/cdi/nvidia.json", spec))

	data, err := afero.ReadFile(fs, "/etc/cdi/nvidia.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), "nvidia.com/gpu")
	assert.Contains(t, string(data), "/dev/nvidia0")
}
