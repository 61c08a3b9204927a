package hygon

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpustack/runtime/pkg/device"
)

func fakeDevfs(t *testing.T, cardIDs ...int) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dev", "dri"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "dev", "kfd"), nil, 0o644))
	for _, id := range cardIDs {
		name := filepath.Join(root, "dev", "dri", "card"+strconv.Itoa(id))
		require.NoError(t, os.WriteFile(name, nil, 0o644))
	}
	return root
}

func TestIsSupportedRequiresKFDNode(t *testing.T) {
	root := t.TempDir()
	b := NewWithRoot(root)
	assert.False(t, b.IsSupported(context.Background()))

	require.NoError(t, os.MkdirAll(filepath.Join(root, "dev"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "dev", "kfd"), nil, 0o644))
	assert.True(t, b.IsSupported(context.Background()))
}

func TestDetectEnumeratesCardNodesInOrder(t *testing.T) {
	root := fakeDevfs(t, 1, 0)
	b := NewWithRoot(root)

	devices, err := b.Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2)

	assert.Equal(t, device.ManufacturerHygon, devices[0].Manufacturer)
	assert.Equal(t, 0, devices[0].Appendix["card_id"])
	assert.Equal(t, 128, devices[0].Appendix["renderd_id"])
	assert.Equal(t, 1, devices[1].Appendix["card_id"])
	assert.Equal(t, 129, devices[1].Appendix["renderd_id"])
}

func TestDetectReturnsNilWithoutKFD(t *testing.T) {
	b := NewWithRoot(t.TempDir())
	devices, err := b.Detect(context.Background())
	require.NoError(t, err)
	assert.Nil(t, devices)
}
