// Package config loads the runtime's environment-variable configuration.
// The loading mechanism itself (viper bound to the process environment)
// is the out-of-scope "environment-variable configuration loader"
// collaborator from spec.md §1; the variable names, defaults, and
// effects below are in scope and specified in spec.md §6.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	envLogLevel              = "GPUSTACK_RUNTIME_LOG_LEVEL"
	envPauseImage            = "GPUSTACK_RUNTIME_DOCKER_PAUSE_IMAGE"
	envUnhealthyRestartImage = "GPUSTACK_RUNTIME_DOCKER_UNHEALTHY_RESTART_IMAGE"
	envEphemeralFilesDir     = "GPUSTACK_RUNTIME_DOCKER_EPHEMERAL_FILES_DIR"
	envDetectIndexInBusIndex = "GPUSTACK_RUNTIME_DETECT_INDEX_IN_BUS_INDEX"

	defaultPauseImage            = "rancher/mirrored-pause:3.10"
	defaultUnhealthyRestartImage = "willfarrell/autoheal:latest"
	defaultLogLevel              = "info"
)

// Config is the process-wide configuration, decoded once at start-up
// and threaded through the components that need it rather than read
// ad hoc from the environment.
type Config struct {
	LogLevel              string
	PauseImage            string
	UnhealthyRestartImage string
	EphemeralFilesDir     string
	DetectIndexInBusIndex bool
}

// Load reads the environment variables documented in spec.md §6 and
// applies their defaults. The ephemeral files directory is created if
// it does not already exist.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()
	v.SetDefault(envLogLevel, defaultLogLevel)
	v.SetDefault(envPauseImage, defaultPauseImage)
	v.SetDefault(envUnhealthyRestartImage, defaultUnhealthyRestartImage)
	v.SetDefault(envEphemeralFilesDir, defaultEphemeralFilesDir())
	v.SetDefault(envDetectIndexInBusIndex, false)

	for _, key := range []string{
		envLogLevel, envPauseImage, envUnhealthyRestartImage,
		envEphemeralFilesDir, envDetectIndexInBusIndex,
	} {
		_ = v.BindEnv(key)
	}

	cfg := &Config{
		LogLevel:              v.GetString(envLogLevel),
		PauseImage:            v.GetString(envPauseImage),
		UnhealthyRestartImage: v.GetString(envUnhealthyRestartImage),
		EphemeralFilesDir:     expandHome(v.GetString(envEphemeralFilesDir)),
		DetectIndexInBusIndex: parseBool(v.GetString(envDetectIndexInBusIndex)),
	}

	if err := os.MkdirAll(cfg.EphemeralFilesDir, 0o755); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultEphemeralFilesDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".cache", "gpustack-runtime")
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// parseBool is the truthiness rule for
// GPUSTACK_RUNTIME_DETECT_INDEX_IN_BUS_INDEX: only "1", "true", "True"
// and "TRUE" are true. It is narrower than strconv.ParseBool, which
// also accepts "t" and "T".
func parseBool(s string) bool {
	switch s {
	case "1", "true", "True", "TRUE":
		return true
	default:
		return false
	}
}
