// Package device normalizes heterogeneous accelerator vendor APIs into
// a vendor-neutral Device model. Backends register themselves in a
// priority-ordered Registry; the first one whose IsSupported probe
// succeeds wins detection for the host (a host is treated as
// single-vendor by design; coexistence is a non-goal per spec.md §4.A).
package device

import "context"

// Manufacturer tags the vendor that produced a Device.
type Manufacturer string

const (
	ManufacturerUnknown   Manufacturer = "unknown"
	ManufacturerNVIDIA    Manufacturer = "nvidia"
	ManufacturerAMD       Manufacturer = "amd"
	ManufacturerHygon     Manufacturer = "hygon"
	ManufacturerAscend    Manufacturer = "ascend"
	ManufacturerCambricon Manufacturer = "cambricon"
	ManufacturerMThreads  Manufacturer = "mthreads"
	ManufacturerIluvatar  Manufacturer = "iluvatar"
	ManufacturerEnflame   Manufacturer = "enflame"
	ManufacturerMetaX     Manufacturer = "metax"
)

// Device is the normalized record produced by every backend, whole-GPU
// or MIG partition alike.
type Device struct {
	Manufacturer Manufacturer

	Name string
	UUID string

	DriverVersion      string
	DriverVersionTuple  []any
	RuntimeVersion      string
	RuntimeVersionTuple []any

	ComputeCapability      string
	ComputeCapabilityTuple []int

	// Cores is 1 for a whole GPU, or the partition's slice count for a
	// MIG device.
	Cores             int
	CoresUtilization  int
	MemoryMiB         int64
	MemoryUsedMiB     int64
	MemoryUtilization int
	TemperatureC      int

	// Appendix carries vendor-specific extras: architecture family,
	// fabric info, MIG instance IDs, render/card node IDs, ...
	Appendix map[string]any
}

// Backend is a single vendor's detection implementation.
type Backend interface {
	// Name identifies the backend/manufacturer, e.g. "nvidia".
	Name() string
	// IsSupported is a cheap probe; a false result means Detect should
	// not be called (and the registry moves to the next backend).
	IsSupported(ctx context.Context) bool
	// Detect enumerates devices. A mid-enumeration vendor failure is
	// returned as an error, recoverable at the caller.
	Detect(ctx context.Context) ([]Device, error)
}
