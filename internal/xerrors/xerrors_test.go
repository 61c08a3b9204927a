package xerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationErrorUnwrap(t *testing.T) {
	base := errors.New("pull failed")
	err := Wrap(base, "create", "demo")

	var opErr *OperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "create", opErr.Op)
	assert.Equal(t, "demo", opErr.Workload)
	assert.True(t, errors.Is(err, base))
}

func TestWrapNilIsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "create", "demo"))
}

func TestUnsupportedErrorMessage(t *testing.T) {
	err := NewUnsupportedError("nvml", errors.New("library not found"))
	assert.Contains(t, err.Error(), "nvml")
	assert.Contains(t, err.Error(), "library not found")
}
