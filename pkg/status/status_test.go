package status

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpustack/runtime/pkg/engine"
	"github.com/gpustack/runtime/pkg/labels"
)

func container(component, name string, status engine.ContainerStatus, exitCode int, restart bool) engine.Container {
	return engine.Container{
		ID:     "id-" + name,
		Name:   name,
		Status: status,
		ExitCode: exitCode,
		Labels: map[string]string{
			labels.Component:     component,
			labels.ComponentName: name,
			labels.Workload:      "wl",
		},
		HasRestartPolicy: restart,
		CreatedAt:        "2026-01-01T00:00:00Z",
	}
}

func shuffled(cs []engine.Container) []engine.Container {
	out := make([]engine.Container, len(cs))
	copy(out, cs)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func TestAggregateOrderIndependent(t *testing.T) {
	cs := []engine.Container{
		container(labels.ComponentPause, "pause", engine.StatusRunning, 0, true),
		container(labels.ComponentInit, "init", engine.StatusExited, 0, false),
		container(labels.ComponentRun, "main", engine.StatusRunning, 0, true),
	}

	base := Aggregate("wl", cs)
	for i := 0; i < 5; i++ {
		got := Aggregate("wl", shuffled(cs))
		assert.Equal(t, base.State, got.State)
		assert.ElementsMatch(t, base.Executable, got.Executable)
		assert.ElementsMatch(t, base.Loggable, got.Loggable)
	}
}

func TestAggregateSimpleRunIsRunning(t *testing.T) {
	cs := []engine.Container{
		container(labels.ComponentPause, "pause", engine.StatusRunning, 0, true),
		container(labels.ComponentRun, "main", engine.StatusRunning, 0, true),
	}
	got := Aggregate("wl", cs)
	require.NotNil(t, got)
	assert.Equal(t, StateRunning, got.State)
	require.Len(t, got.Executable, 1)
}

func TestAggregateInitThenRunTransitions(t *testing.T) {
	pending := []engine.Container{
		container(labels.ComponentInit, "init", engine.StatusCreated, 0, false),
		container(labels.ComponentRun, "main", engine.StatusCreated, 0, true),
	}
	assert.Equal(t, StatePending, Aggregate("wl", pending).State)

	initializing := []engine.Container{
		container(labels.ComponentInit, "init", engine.StatusRunning, 0, false),
		container(labels.ComponentRun, "main", engine.StatusCreated, 0, true),
	}
	assert.Equal(t, StateInitializing, Aggregate("wl", initializing).State)

	running := []engine.Container{
		container(labels.ComponentInit, "init", engine.StatusExited, 0, false),
		container(labels.ComponentRun, "main", engine.StatusRunning, 0, true),
	}
	assert.Equal(t, StateRunning, Aggregate("wl", running).State)

	// init container removed mid-run: state stays Running.
	afterInitRemoved := []engine.Container{
		container(labels.ComponentRun, "main", engine.StatusRunning, 0, true),
	}
	assert.Equal(t, StateRunning, Aggregate("wl", afterInitRemoved).State)
}

func TestAggregateInitFailureIsFailed(t *testing.T) {
	cs := []engine.Container{
		container(labels.ComponentInit, "init", engine.StatusExited, 1, false),
		container(labels.ComponentRun, "main", engine.StatusCreated, 0, true),
	}
	got := Aggregate("wl", cs)
	assert.Equal(t, StateFailed, got.State)
}

func TestAggregateCrashedRunWithoutRestartIsFailed(t *testing.T) {
	cs := []engine.Container{
		container(labels.ComponentRun, "main", engine.StatusExited, 1, false),
	}
	assert.Equal(t, StateFailed, Aggregate("wl", cs).State)
}

func TestAggregateCrashedRunWithRestartIsUnhealthy(t *testing.T) {
	cs := []engine.Container{
		container(labels.ComponentRun, "main", engine.StatusExited, 1, true),
	}
	assert.Equal(t, StateUnhealthy, Aggregate("wl", cs).State)
}

func TestAggregateEmptyReturnsNil(t *testing.T) {
	assert.Nil(t, Aggregate("wl", nil))
}
