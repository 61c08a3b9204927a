package plan

import "sort"

const (
	ResourceCPU    = "cpu"
	ResourceMemory = "memory"
)

// ParsedResources returns the container's resources as the tagged-union
// Resource slice, sorted by key for deterministic iteration (projector
// output and tests should not depend on Go's randomized map order).
func (c Container) ParsedResources() []Resource {
	out := make([]Resource, 0, len(c.Resources))
	keys := make([]string, 0, len(c.Resources))
	for k := range c.Resources {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, Resource{Kind: k, Value: c.Resources[k]})
	}
	return out
}

// DeviceResources returns every resource entry that is neither "cpu"
// nor "memory" - the vendor device keys (e.g. "nvidia.com/gpu") that
// the topology projector turns into runtime-selector env vars.
func (c Container) DeviceResources() []Resource {
	var out []Resource
	for _, r := range c.ParsedResources() {
		if r.Kind == ResourceCPU || r.Kind == ResourceMemory {
			continue
		}
		out = append(out, r)
	}
	return out
}
