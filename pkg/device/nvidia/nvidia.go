// Package nvidia is the NVIDIA device.Backend, grounded on the
// teacher's comp/core/workloadmeta/collectors/internal/nvml collector:
// an nvml.Interface value is injected at construction so tests swap in
// github.com/NVIDIA/go-nvml/pkg/nvml/mock instead of touching real
// hardware, exactly as nvml_test.go's collector.nvmlLib field does.
package nvidia

import (
	"context"
	"fmt"

	"github.com/NVIDIA/go-nvml/pkg/nvml"

	"github.com/gpustack/runtime/internal/log"
	"github.com/gpustack/runtime/pkg/device"
)

const Name = "nvidia"

// Backend implements device.Backend against NVML.
type Backend struct {
	nvmlLib nvml.Interface
}

// New returns the production backend bound to the real NVML library.
func New() *Backend {
	return &Backend{nvmlLib: nvml.New()}
}

// NewWithLib injects an nvml.Interface, used by tests to supply a mock.
func NewWithLib(lib nvml.Interface) *Backend {
	return &Backend{nvmlLib: lib}
}

func (b *Backend) Name() string { return Name }

// IsSupported probes nvmlInit/nvmlShutdown; any failure means the
// library is absent or the driver isn't loaded.
func (b *Backend) IsSupported(_ context.Context) bool {
	if ret := b.nvmlLib.Init(); ret != nvml.SUCCESS {
		log.Debugf("nvml init probe failed: %v", ret)
		return false
	}
	defer b.nvmlLib.Shutdown()
	return true
}

// Detect enumerates every physical GPU, expanding MIG partitions into
// their own Device records when MIG mode is enabled. See spec.md §4.A.
func (b *Backend) Detect(_ context.Context) ([]device.Device, error) {
	if ret := b.nvmlLib.Init(); ret != nvml.SUCCESS {
		return nil, fmt.Errorf("nvml init: %v", ret)
	}
	defer b.nvmlLib.Shutdown()

	driverVer, ret := b.nvmlLib.SystemGetDriverVersion()
	if ret != nvml.SUCCESS {
		return nil, fmt.Errorf("get driver version: %v", ret)
	}
	driverVerTuple := splitVersionTuple(driverVer)

	cudaVer, ret := b.nvmlLib.SystemGetCudaDriverVersion()
	if ret != nvml.SUCCESS {
		return nil, fmt.Errorf("get cuda driver version: %v", ret)
	}
	runtimeVerMajor, runtimeVerMinor := cudaVer/1000, (cudaVer%1000)/10
	runtimeVer := fmt.Sprintf("%d.%d", runtimeVerMajor, runtimeVerMinor)

	count, ret := b.nvmlLib.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return nil, fmt.Errorf("get device count: %v", ret)
	}

	var devices []device.Device
	for i := 0; i < count; i++ {
		dev, ret := b.nvmlLib.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			return nil, fmt.Errorf("get device handle %d: %v", i, ret)
		}

		devs, err := b.detectOne(dev, driverVer, driverVerTuple, runtimeVer, []any{runtimeVerMajor, runtimeVerMinor})
		if err != nil {
			return nil, err
		}
		devices = append(devices, devs...)
	}
	return devices, nil
}

func (b *Backend) detectOne(dev nvml.Device, driverVer string, driverVerTuple []any, runtimeVer string, runtimeVerTuple []any) ([]device.Device, error) {
	uuid, ret := dev.GetUUID()
	if ret != nvml.SUCCESS {
		return nil, fmt.Errorf("get uuid: %v", ret)
	}
	mem, ret := dev.GetMemoryInfo()
	if ret != nvml.SUCCESS {
		return nil, fmt.Errorf("get memory info: %v", ret)
	}
	util, ret := dev.GetUtilizationRates()
	if ret != nvml.SUCCESS {
		return nil, fmt.Errorf("get utilization: %v", ret)
	}
	temp, ret := dev.GetTemperature(nvml.TEMPERATURE_GPU)
	if ret != nvml.SUCCESS {
		return nil, fmt.Errorf("get temperature: %v", ret)
	}
	ccMajor, ccMinor, ret := dev.GetCudaComputeCapability()
	if ret != nvml.SUCCESS {
		return nil, fmt.Errorf("get compute capability: %v", ret)
	}
	cc := fmt.Sprintf("%d.%d", ccMajor, ccMinor)
	ccTuple := []int{ccMajor, ccMinor}

	appendix := map[string]any{
		"arch_family": archFamily(ccMajor, ccMinor),
	}
	if cluster, clique, ok := fabricInfo(dev); ok {
		appendix["fabric_cluster_uuid"] = cluster
		appendix["fabric_clique_id"] = clique
	}

	migMode, _, ret := dev.GetMigMode()
	if ret != nvml.SUCCESS {
		migMode = nvml.DEVICE_MIG_DISABLE
	}

	if migMode == nvml.DEVICE_MIG_DISABLE {
		name, ret := dev.GetName()
		if ret != nvml.SUCCESS {
			return nil, fmt.Errorf("get name: %v", ret)
		}
		return []device.Device{{
			Manufacturer:           device.ManufacturerNVIDIA,
			Name:                   name,
			UUID:                   uuid,
			DriverVersion:          driverVer,
			DriverVersionTuple:     driverVerTuple,
			RuntimeVersion:         runtimeVer,
			RuntimeVersionTuple:    runtimeVerTuple,
			ComputeCapability:      cc,
			ComputeCapabilityTuple: ccTuple,
			Cores:                  1,
			CoresUtilization:       int(util.Gpu),
			MemoryMiB:              int64(mem.Total >> 20),
			MemoryUsedMiB:          int64(mem.Used >> 20),
			MemoryUtilization:      int(mem.Used * 100 / mem.Total),
			TemperatureC:           int(temp),
			Appendix:               appendix,
		}}, nil
	}

	return b.detectMIG(dev, uuid, mem, driverVer, driverVerTuple, runtimeVer, runtimeVerTuple, cc, ccTuple, appendix)
}

// detectMIG enumerates every MIG instance on dev, reconstructing each
// slice's human-readable name via the GI/CI profile tables in mig.go.
func (b *Backend) detectMIG(
	dev nvml.Device, _ string, parentMem nvml.Memory,
	driverVer string, driverVerTuple []any, runtimeVer string, runtimeVerTuple []any,
	cc string, ccTuple []int, parentAppendix map[string]any,
) ([]device.Device, error) {
	migCount, ret := dev.GetMaxMigDeviceCount()
	if ret != nvml.SUCCESS {
		return nil, fmt.Errorf("get max mig device count: %v", ret)
	}

	var devices []device.Device

	for i := 0; i < migCount; i++ {
		mdev, ret := dev.GetMigDeviceHandleByIndex(i)
		if ret != nvml.SUCCESS {
			continue
		}

		mUUID, ret := mdev.GetUUID()
		if ret != nvml.SUCCESS {
			return nil, fmt.Errorf("get mig uuid: %v", ret)
		}
		mMem, ret := mdev.GetMemoryInfo()
		if ret != nvml.SUCCESS {
			return nil, fmt.Errorf("get mig memory info: %v", ret)
		}
		mTemp, ret := mdev.GetTemperature(nvml.TEMPERATURE_GPU)
		if ret != nvml.SUCCESS {
			return nil, fmt.Errorf("get mig temperature: %v", ret)
		}

		appendix := make(map[string]any, len(parentAppendix)+2)
		for k, v := range parentAppendix {
			appendix[k] = v
		}

		giID, ret := mdev.GetGpuInstanceId()
		if ret != nvml.SUCCESS {
			return nil, fmt.Errorf("get gpu instance id: %v", ret)
		}
		appendix["gpu_instance_id"] = giID

		ciID, ret := mdev.GetComputeInstanceId()
		if ret != nvml.SUCCESS {
			return nil, fmt.Errorf("get compute instance id: %v", ret)
		}
		appendix["compute_instance_id"] = ciID

		var name string
		var cores int
		n, c, err := resolveMigName(dev, mdev, giID, ciID, parentMem)
		if err != nil {
			log.Warnf("resolve mig profile name: %v", err)
		} else {
			name, cores = n, c
		}

		devices = append(devices, device.Device{
			Manufacturer:           device.ManufacturerNVIDIA,
			Name:                   name,
			UUID:                   mUUID,
			DriverVersion:          driverVer,
			DriverVersionTuple:     driverVerTuple,
			RuntimeVersion:         runtimeVer,
			RuntimeVersionTuple:    runtimeVerTuple,
			ComputeCapability:      cc,
			ComputeCapabilityTuple: ccTuple,
			Cores:                  cores,
			MemoryMiB:              int64(mMem.Total >> 20),
			MemoryUsedMiB:          int64(mMem.Used >> 20),
			MemoryUtilization:      int((mMem.Used >> 20) * 100 / (mMem.Total >> 20)),
			TemperatureC:           int(mTemp),
			Appendix:               appendix,
		})
	}

	return devices, nil
}

// resolveMigName searches the GI/CI profile-info tables to find the
// profile whose Id matches the instance's reported profile, and turns
// the matched slice counts into the device's display name.
func resolveMigName(dev, mdev nvml.Device, giID, ciID int, parentMem nvml.Memory) (string, int, error) {
	attrs, ret := mdev.GetAttributes()
	if ret != nvml.SUCCESS {
		return "", 0, fmt.Errorf("get mig attributes: %v", ret)
	}
	gi, ret := dev.GetGpuInstanceById(giID)
	if ret != nvml.SUCCESS {
		return "", 0, fmt.Errorf("get gpu instance: %v", ret)
	}
	ci, ret := gi.GetComputeInstanceById(ciID)
	if ret != nvml.SUCCESS {
		return "", 0, fmt.Errorf("get compute instance: %v", ret)
	}
	giInfo, ret := gi.GetInfo()
	if ret != nvml.SUCCESS {
		return "", 0, fmt.Errorf("get gpu instance info: %v", ret)
	}
	ciInfo, ret := ci.GetInfo()
	if ret != nvml.SUCCESS {
		return "", 0, fmt.Errorf("get compute instance info: %v", ret)
	}

	for giProfileID := 0; giProfileID < nvml.GPU_INSTANCE_PROFILE_COUNT; giProfileID++ {
		giProfile, ret := dev.GetGpuInstanceProfileInfo(giProfileID)
		if ret != nvml.SUCCESS || giProfile.Id != giInfo.ProfileId {
			continue
		}

		for ciProfileID := 0; ciProfileID < nvml.COMPUTE_INSTANCE_PROFILE_COUNT; ciProfileID++ {
			ciProfile, ret := gi.GetComputeInstanceProfileInfo(ciProfileID, nvml.COMPUTE_INSTANCE_ENGINE_PROFILE_SHARED)
			if ret != nvml.SUCCESS || ciProfile.Id != ciInfo.ProfileId {
				continue
			}

			giSlices, ok := gpuInstanceSlices(giProfileID)
			if !ok {
				return "", 0, fmt.Errorf("unknown gpu instance profile %d", giProfileID)
			}
			ciSlices, ok := computeInstanceSlices(ciProfileID)
			if !ok {
				return "", 0, fmt.Errorf("unknown compute instance profile %d", ciProfileID)
			}
			memGiB := migMemoryGiB(attrs.MemorySizeMB, parentMem.Total)
			name := migDeviceName(giSlices, ciSlices, memGiB, gpuInstanceAttrs(giProfileID), gpuInstanceNegativeAttrs(giProfileID))
			return name, ciSlices, nil
		}
	}
	return "", 0, fmt.Errorf("no matching profile for gi=%d ci=%d", giID, ciID)
}

// fabricInfo reads the GPU's fabric info if available and its state is
// "completed"; otherwise it reports no fabric membership.
func fabricInfo(dev nvml.Device) (clusterUUID string, cliqueID uint32, ok bool) {
	info, ret := dev.GetGpuFabricInfo()
	if ret != nvml.SUCCESS {
		return "", 0, false
	}
	if info.State != nvml.GPU_FABRIC_STATE_COMPLETED {
		return "", 0, false
	}
	return fmt.Sprintf("%x", info.ClusterUuid), info.CliqueId, true
}

func splitVersionTuple(v string) []any {
	var out []any
	start := 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == '.' {
			out = append(out, parseIntOrString(v[start:i]))
			start = i + 1
		}
	}
	return out
}

func parseIntOrString(s string) any {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err == nil && fmt.Sprintf("%d", n) == s {
		return n
	}
	return s
}
