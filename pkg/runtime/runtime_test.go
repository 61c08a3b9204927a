package runtime

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpustack/runtime/pkg/engine"
	"github.com/gpustack/runtime/pkg/engine/enginetest"
	"github.com/gpustack/runtime/pkg/labels"
	"github.com/gpustack/runtime/pkg/plan"
	"github.com/gpustack/runtime/pkg/status"
	"github.com/gpustack/runtime/pkg/topology"
)

func newTestRuntime() (*Runtime, *enginetest.Engine) {
	eng := enginetest.New()
	rt := New(eng, afero.NewMemMapFs(), "/ephemeral", topology.Options{
		PauseImage:            "rancher/mirrored-pause:3.10",
		UnhealthyRestartImage: "willfarrell/autoheal:latest",
	})
	return rt, eng
}

func TestCreateSimpleRunIsRunning(t *testing.T) {
	rt, _ := newTestRuntime()
	ctx := context.Background()

	p := plan.WorkloadPlan{
		Name:        "s1",
		HostNetwork: true,
		Containers: []plan.Container{
			{
				Name:      "main",
				Profile:   plan.ProfileRun,
				Image:     "busybox:latest",
				Execution: &plan.Execution{Command: []string{"sh", "-c", "sleep 60"}},
			},
		},
	}

	require.NoError(t, rt.Create(ctx, p))

	got, err := rt.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, status.StateRunning, got.State)
	assert.Len(t, got.Executable, 1)
}

func TestCreateInitFailurePropagates(t *testing.T) {
	rt, eng := newTestRuntime()
	ctx := context.Background()

	p := plan.WorkloadPlan{
		Name: "s3",
		Containers: []plan.Container{
			{Name: "setup", Profile: plan.ProfileInit, Image: "busybox"},
			{Name: "main", Profile: plan.ProfileRun, Image: "busybox"},
		},
	}

	require.NoError(t, rt.Create(ctx, p))

	// The init container has no restart policy; force it into a failed
	// exit with the run container never started, and confirm the
	// aggregator reports Failed (init containers are only consulted
	// while a run container is still "created").
	eng.SetStatus("s3-init-0", engine.StatusExited, 1)
	eng.SetStatus("s3-run-1", engine.StatusCreated, 0)
	got, gerr := rt.Get(ctx, "s3")
	require.NoError(t, gerr)
	assert.Equal(t, status.StateFailed, got.State)
}

func TestDeleteRemovesContainersVolumesAndFiles(t *testing.T) {
	rt, eng := newTestRuntime()
	ctx := context.Background()

	content := "x"
	vol := "data"
	p := plan.WorkloadPlan{
		Name: "s5",
		Containers: []plan.Container{
			{
				Name:    "main",
				Profile: plan.ProfileRun,
				Image:   "busybox",
				Files: []plan.File{
					{Path: "/cfg/a", Content: &content, Mode: 0o400},
				},
				Mounts: []plan.Mount{{Path: "/data", Volume: &vol}},
			},
		},
	}

	require.NoError(t, rt.Create(ctx, p))

	workload, err := rt.Delete(ctx, "s5")
	require.NoError(t, err)
	require.NotNil(t, workload)

	remaining, err := eng.ListContainers(ctx, map[string]string{labels.Workload: "s5"})
	require.NoError(t, err)
	assert.Empty(t, remaining)

	volumes, err := eng.ListVolumes(ctx, map[string]string{labels.Workload: "s5"})
	require.NoError(t, err)
	assert.Empty(t, volumes)

	exists, err := afero.Exists(rt.FS, "/ephemeral/s5-0-0")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGetReturnsNilForUnknownWorkload(t *testing.T) {
	rt, _ := newTestRuntime()
	got, err := rt.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}
