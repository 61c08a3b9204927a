package topology

// DefaultResourceDeviceEnvMapping is the vendor resource-key to
// runtime-selector-env-var table. Three distinct Ascend resource keys
// collapse onto the same env var, and the Moore Threads entry keeps the
// vendor's own "METHERDS" misspelling - both are faithful to how the
// runtime these containers actually run against resolves visibility.
var DefaultResourceDeviceEnvMapping = map[string]string{
	"nvidia.com/gpu":        "NVIDIA_VISIBLE_DEVICES",
	"amd.com/gpu":           "AMD_VISIBLE_DEVICES",
	"huawei.com/Ascend910A": "ASCEND_VISIBLE_DEVICES",
	"huawei.com/Ascend910B": "ASCEND_VISIBLE_DEVICES",
	"huawei.com/Ascend310P": "ASCEND_VISIBLE_DEVICES",
	"cambricon.com/vmlu":    "CAMBRICON_VISIBLE_DEVICES",
	"hygon.com/dcunum":      "HYGON_VISIBLE_DEVICES",
	"mthreads.com/vgpu":     "METHERDS_VISIBLE_DEVICES",
	"iluvatar.ai/vgpu":      "ILUVATAR_VISIBLE_DEVICES",
	"enflame.com/vgcu":      "ENFLAME_VISIBLE_DEVICES",
	"metax-tech.com/sgpu":   "METAX_VISIBLE_DEVICES",
}
