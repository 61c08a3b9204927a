package device

import "context"

// Registry holds backends in priority order; DetectBackend/DetectDevices
// use the first one whose IsSupported probe succeeds.
type Registry struct {
	backends []Backend
}

// NewRegistry builds a registry from backends, highest priority first.
func NewRegistry(backends ...Backend) *Registry {
	return &Registry{backends: backends}
}

// DetectBackend returns the name of the first supported backend, or ""
// if none is supported.
func (r *Registry) DetectBackend(ctx context.Context) string {
	for _, b := range r.backends {
		if b.IsSupported(ctx) {
			return b.Name()
		}
	}
	return ""
}

// DetectDevices runs Detect on the first supported backend. It returns
// an empty, non-nil slice (never an error) if no backend is supported,
// matching the reference implementation's "no backend -> empty list"
// contract; a supported backend's own Detect error is propagated.
func (r *Registry) DetectDevices(ctx context.Context) ([]Device, error) {
	for _, b := range r.backends {
		if !b.IsSupported(ctx) {
			continue
		}
		devs, err := b.Detect(ctx)
		if err != nil {
			return nil, err
		}
		if devs == nil {
			devs = []Device{}
		}
		return devs, nil
	}
	return []Device{}, nil
}
