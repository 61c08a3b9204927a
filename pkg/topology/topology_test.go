package topology

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpustack/runtime/pkg/labels"
	"github.com/gpustack/runtime/pkg/plan"
)

func projectSimple(t *testing.T, p plan.WorkloadPlan) Projected {
	t.Helper()
	validated, err := plan.Validate(p)
	require.NoError(t, err)
	materialized, err := plan.Materialize(validated, afero.NewMemMapFs(), "/ephemeral")
	require.NoError(t, err)
	projected, err := Project(validated, materialized, Options{
		PauseImage:            "rancher/mirrored-pause:3.10",
		UnhealthyRestartImage: "willfarrell/autoheal:latest",
	})
	require.NoError(t, err)
	return projected
}

func TestProjectSimpleRun(t *testing.T) {
	p := plan.WorkloadPlan{
		Name:        "s1",
		HostNetwork: true,
		Containers: []plan.Container{
			{
				Name:    "main",
				Profile: plan.ProfileRun,
				Image:   "busybox:latest",
				Execution: &plan.Execution{
					Command: []string{"sh", "-c", "sleep 60"},
				},
			},
		},
	}

	projected := projectSimple(t, p)
	require.Len(t, projected.Run, 1)
	assert.Equal(t, "s1-pause", projected.Pause.Name)
	assert.Equal(t, "host", projected.Pause.Params.NetworkMode)
	assert.Equal(t, "always", projected.Run[0].Params.RestartPolicy.Name)
	assert.Equal(t, "container:s1-pause", projected.Run[0].Params.NetworkMode)
}

func TestProjectRunDefaultsRestartAlways(t *testing.T) {
	p := plan.WorkloadPlan{
		Name: "defaults",
		Containers: []plan.Container{
			{Name: "main", Profile: plan.ProfileRun, Image: "busybox"},
		},
	}
	projected := projectSimple(t, p)
	require.NotNil(t, projected.Run[0].Params.RestartPolicy)
	assert.Equal(t, "always", projected.Run[0].Params.RestartPolicy.Name)
}

func TestProjectRunExplicitAlwaysOrNeverLeavesRestartPolicyUnset(t *testing.T) {
	always := plan.RestartAlways
	never := plan.RestartNever
	p := plan.WorkloadPlan{
		Name: "explicit",
		Containers: []plan.Container{
			{Name: "a", Profile: plan.ProfileRun, Image: "busybox", RestartPolicy: &always},
			{Name: "b", Profile: plan.ProfileRun, Image: "busybox", RestartPolicy: &never},
		},
	}
	projected := projectSimple(t, p)
	for _, np := range projected.Run {
		assert.Nil(t, np.Params.RestartPolicy, "container %s should have no engine restart policy set", np.Name)
	}
}

func TestProjectInitContainerNaming(t *testing.T) {
	p := plan.WorkloadPlan{
		Name: "s2",
		Containers: []plan.Container{
			{Name: "setup", Profile: plan.ProfileInit, Image: "busybox"},
			{Name: "main", Profile: plan.ProfileRun, Image: "busybox"},
		},
	}
	projected := projectSimple(t, p)
	require.Len(t, projected.Init, 1)
	assert.Equal(t, "s2-init-0", projected.Init[0].Name)
	assert.Equal(t, "s2-run-1", projected.Run[0].Name)
}

func TestProjectAutohealOnlyWhenTeardownEnabled(t *testing.T) {
	p := plan.WorkloadPlan{
		Name: "s4",
		Containers: []plan.Container{
			{
				Name:    "main",
				Profile: plan.ProfileRun,
				Image:   "busybox",
				Checks: []plan.Check{
					{TCP: &plan.CheckTCP{Port: 9}, Teardown: true, Retries: 1},
				},
			},
		},
	}
	projected := projectSimple(t, p)
	require.NotNil(t, projected.UnhealthyRestart)
	assert.Equal(t, labels.ComponentUnhealthyRestart, projected.UnhealthyRestart.Params.Labels[labels.Component])
	assert.Equal(t, "true", projected.Run[0].Params.Labels[labels.ComponentHeal("s4")])
	require.NotNil(t, projected.Run[0].Params.HealthCheck)
}

func TestProjectEphemeralFileIsReadOnlyBindMount(t *testing.T) {
	content := "x"
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
			},
		},
	}
	projected := projectSimple(t, p)
	require.Len(t, projected.Run[0].Params.Mounts, 1)
	mnt := projected.Run[0].Params.Mounts[0]
	assert.Equal(t, "/cfg/a", mnt.Target)
	assert.True(t, mnt.ReadOnly)
}

func TestProjectDeviceResourceSetsEnvAndLeavesRuntimeUnset(t *testing.T) {
	p := plan.WorkloadPlan{
		Name: "gpu",
		Containers: []plan.Container{
			{
				Name:      "main",
				Profile:   plan.ProfileRun,
				Image:     "busybox",
				Resources: plan.Resources{"nvidia.com/gpu": "0,1"},
			},
		},
	}
	projected := projectSimple(t, p)
	assert.Equal(t, "0,1", projected.Run[0].Params.Env["NVIDIA_VISIBLE_DEVICES"])
	assert.Empty(t, projected.Run[0].Params.Runtime)
}
