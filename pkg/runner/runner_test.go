package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveKnownService(t *testing.T) {
	image, err := Resolve("vllm", "0.6.0")
	require.NoError(t, err)
	assert.Equal(t, "gpustack/vllm:0.6.0", image)
}

func TestResolveDefaultsVersionToLatest(t *testing.T) {
	image, err := Resolve("vllm", "")
	require.NoError(t, err)
	assert.Equal(t, "gpustack/vllm:latest", image)
}

func TestResolveUnknownServiceErrors(t *testing.T) {
	_, err := Resolve("not-a-real-service", "1.0")
	require.Error(t, err)
}
