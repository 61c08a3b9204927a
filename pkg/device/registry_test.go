package device

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	name      string
	supported bool
	devices   []Device
	err       error
}

func (f *fakeBackend) Name() string                            { return f.name }
func (f *fakeBackend) IsSupported(_ context.Context) bool       { return f.supported }
func (f *fakeBackend) Detect(_ context.Context) ([]Device, error) { return f.devices, f.err }

func TestRegistryFirstSupportedWins(t *testing.T) {
	a := &fakeBackend{name: "a", supported: false}
	b := &fakeBackend{name: "b", supported: true, devices: []Device{{Name: "gpu0"}}}
	c := &fakeBackend{name: "c", supported: true, devices: []Device{{Name: "should-not-be-used"}}}

	r := NewRegistry(a, b, c)
	assert.Equal(t, "b", r.DetectBackend(context.Background()))

	devs, err := r.DetectDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devs, 1)
	assert.Equal(t, "gpu0", devs[0].Name)
}

func TestRegistryNoneSupportedReturnsEmpty(t *testing.T) {
	r := NewRegistry(&fakeBackend{name: "a", supported: false})
	assert.Equal(t, "", r.DetectBackend(context.Background()))

	devs, err := r.DetectDevices(context.Background())
	require.NoError(t, err)
	assert.Empty(t, devs)
	assert.NotNil(t, devs)
}

func TestRegistryPropagatesDetectError(t *testing.T) {
	r := NewRegistry(&fakeBackend{name: "a", supported: true, err: errors.New("nvml boom")})
	_, err := r.DetectDevices(context.Background())
	assert.ErrorContains(t, err, "nvml boom")
}
