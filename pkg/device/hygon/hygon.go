// Package hygon is the Hygon device.Backend. Unlike NVIDIA there is no
// vendor SMI library in the pack to bind against, so detection is a
// direct devfs probe: presence of /dev/kfd means the driver is loaded,
// and each /dev/dri/card{N} node is one physical device. The appendix
// fields populated here (card_id, renderd_id) are exactly the ones
// original_source/deployer/cdi/hygon.py reads back out when building
// CDI device nodes, so pkg/cdi/cdi.go's generateHygon works unmodified
// against devices detected here.
package hygon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gpustack/runtime/pkg/device"
)

const Name = "hygon"

// kfdPath is the Hygon/ROCm kernel fusion driver node whose presence
// signals the driver is loaded.
const kfdPath = "/dev/kfd"

// driPattern globs the DRM card nodes; renderD nodes follow the kernel's
// fixed card-to-render-minor offset of 128 (card0 -> renderD128, ...).
const driPattern = "/dev/dri/card*"

const renderMinorOffset = 128

// Backend implements device.Backend against the host's devfs.
type Backend struct {
	// root is prepended to every probed path; tests set it to a
	// temporary directory instead of touching the real /dev.
	root string
}

// New returns the production backend probing the real host devfs.
func New() *Backend {
	return &Backend{root: ""}
}

// NewWithRoot injects a root directory, used by tests to fake up /dev.
func NewWithRoot(root string) *Backend {
	return &Backend{root: root}
}

func (b *Backend) Name() string { return Name }

// IsSupported reports whether the kfd node exists.
func (b *Backend) IsSupported(_ context.Context) bool {
	_, err := os.Stat(filepath.Join(b.root, kfdPath))
	return err == nil
}

// Detect enumerates one Device per /dev/dri/card{N} node. No vendor SMI
// is available in this environment, so telemetry fields (utilization,
// memory, temperature) are left zero; only identity and the CDI-facing
// appendix are populated.
func (b *Backend) Detect(ctx context.Context) ([]device.Device, error) {
	if !b.IsSupported(ctx) {
		return nil, nil
	}

	matches, err := filepath.Glob(filepath.Join(b.root, driPattern))
	if err != nil {
		return nil, fmt.Errorf("glob dri card nodes: %w", err)
	}

	cardIDs := make([]int, 0, len(matches))
	for _, m := range matches {
		id, ok := parseCardID(filepath.Base(m))
		if !ok {
			continue
		}
		cardIDs = append(cardIDs, id)
	}
	sort.Ints(cardIDs)

	devices := make([]device.Device, 0, len(cardIDs))
	for _, id := range cardIDs {
		devices = append(devices, device.Device{
			Manufacturer: device.ManufacturerHygon,
			Name:         fmt.Sprintf("hygon-dcu-%d", id),
			UUID:         fmt.Sprintf("HYGON-%d", id),
			Cores:        1,
			Appendix: map[string]any{
				"card_id":    id,
				"renderd_id": id + renderMinorOffset,
			},
		})
	}
	return devices, nil
}

func parseCardID(base string) (int, bool) {
	s := strings.TrimPrefix(base, "card")
	if s == base {
		return 0, false
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return id, true
}
