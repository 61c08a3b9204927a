package plan

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestMaterializeEphemeralFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := "x"
	p := WorkloadPlan{
		Name: "demo",
		Containers: []Container{
			{
				Name:    "svc",
				Profile: ProfileRun,
				Files: []File{
					{Path: "/cfg/a", Content: &content, Mode: 0o400},
				},
			},
		},
	}

	m, err := Materialize(p, fs, "/ephemeral")
	require.NoError(t, err)

	key := FileKey{ContainerIndex: 0, Path: "/cfg/a"}
	path, ok := m.FilePathByContainerAndPath[key]
	require.True(t, ok)
	assert.Equal(t, "/ephemeral/demo-0-0", path)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))

	_ = strptr
}

func TestMaterializeEphemeralVolume(t *testing.T) {
	fs := afero.NewMemMapFs()
	vol := "data"
	p := WorkloadPlan{
		Name: "demo",
		Containers: []Container{
			{
				Name:    "svc",
				Profile: ProfileRun,
				Mounts: []Mount{
					{Path: "/data", Volume: &vol},
				},
			},
		},
	}

	m, err := Materialize(p, fs, "/ephemeral")
	require.NoError(t, err)
	require.Len(t, m.Volumes, 1)
	assert.Equal(t, "demo-data", m.Volumes[0].Name)
	assert.Equal(t, "demo-data", m.VolumeNameByRequestedName["data"])
}

func TestRemoveEphemeralFilesOnlyMatchesWorkloadPrefix(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/ephemeral/demo-0-0", []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/ephemeral/other-0-0", []byte("y"), 0o644))

	require.NoError(t, RemoveEphemeralFiles(fs, "/ephemeral", "demo"))

	_, err := fs.Stat("/ephemeral/demo-0-0")
	assert.Error(t, err)
	_, err = fs.Stat("/ephemeral/other-0-0")
	assert.NoError(t, err)
}
