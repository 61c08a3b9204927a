package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(envEphemeralFilesDir, filepath.Join(dir, "ephemeral"))
	t.Setenv(envLogLevel, "")
	t.Setenv(envPauseImage, "")
	t.Setenv(envUnhealthyRestartImage, "")
	t.Setenv(envDetectIndexInBusIndex, "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, defaultPauseImage, cfg.PauseImage)
	assert.Equal(t, defaultUnhealthyRestartImage, cfg.UnhealthyRestartImage)
	assert.False(t, cfg.DetectIndexInBusIndex)

	_, statErr := os.Stat(cfg.EphemeralFilesDir)
	assert.NoError(t, statErr)
}

func TestParseBool(t *testing.T) {
	assert.True(t, parseBool("1"))
	assert.True(t, parseBool("true"))
	assert.True(t, parseBool("True"))
	assert.False(t, parseBool("0"))
	assert.False(t, parseBool("false"))
	assert.False(t, parseBool(""))
}
