package plan

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/gpustack/runtime/internal/xerrors"
)

// VolumeRequest is one ephemeral engine volume the planner needs
// materialized before containers reference it.
type VolumeRequest struct {
	// Name is the rewritten engine-side name: "{workload}-{volume}".
	Name   string
	Labels map[string]string
}

// FileRequest is one ephemeral host file the planner needs written
// before containers bind-mount it.
type FileRequest struct {
	// Path is the absolute host path the content is written to.
	Path string
	Mode os.FileMode
	Content string
}

// Materialized is the planner's output: the rewritten volume-name table
// and file-path table later consumed by the topology projector when
// building mount specs, plus the volume/file requests a caller (the
// Lifecycle API) must actually create.
type Materialized struct {
	// VolumeNameByRequestedName maps a Container.Mount's requested
	// volume name to its rewritten engine-side name.
	VolumeNameByRequestedName map[string]string
	// FilePathByContainerAndPath maps (container index, file path) to
	// the ephemeral host file path that backs it.
	FilePathByContainerAndPath map[FileKey]string

	Volumes []VolumeRequest
	Files   []FileRequest
}

// FileKey identifies a single ephemeral file within a plan.
type FileKey struct {
	ContainerIndex int
	Path           string
}

// Materialize computes the ephemeral volume and file tables for a
// validated plan and writes the ephemeral files to fs under dir.
// Ephemeral file *writing* is performed here; ephemeral volumes are
// only described by the returned VolumeRequests, and the engine volume
// objects themselves are created by the caller.
//
// Resolves DESIGN.md Open Question 1: the per-mount volume-name
// mapping is consumed by iterating its *values* (the rewritten engine
// names) to build one VolumeRequest per unique value — not by
// destructuring a (index, name) tuple, which the reference
// implementation's own mapping shape does not actually produce.
func Materialize(p WorkloadPlan, fs afero.Fs, dir string) (Materialized, error) {
	m := Materialized{
		VolumeNameByRequestedName:  map[string]string{},
		FilePathByContainerAndPath: map[FileKey]string{},
	}

	seenVolumes := map[string]struct{}{}
	for _, c := range p.Containers {
		for _, mnt := range c.Mounts {
			if mnt.Volume == nil || *mnt.Volume == "" {
				continue
			}
			rewritten := fmt.Sprintf("%s-%s", p.Name, *mnt.Volume)
			m.VolumeNameByRequestedName[*mnt.Volume] = rewritten
		}
	}
	for _, rewritten := range m.VolumeNameByRequestedName {
		if _, ok := seenVolumes[rewritten]; ok {
			continue
		}
		seenVolumes[rewritten] = struct{}{}
		m.Volumes = append(m.Volumes, VolumeRequest{Name: rewritten, Labels: p.Labels})
	}

	for ci, c := range p.Containers {
		for fi, f := range c.Files {
			if f.Content == nil {
				continue
			}
			name := fmt.Sprintf("%s-%d-%d", p.Name, ci, fi)
			path := filepath.Join(dir, name)
			mode := os.FileMode(f.Mode)
			if mode == 0 {
				mode = 0o644
			}

			key := FileKey{ContainerIndex: ci, Path: f.Path}
			m.FilePathByContainerAndPath[key] = path
			m.Files = append(m.Files, FileRequest{Path: path, Mode: mode, Content: *f.Content})
		}
	}

	for _, fr := range m.Files {
		if err := afero.WriteFile(fs, fr.Path, []byte(fr.Content), fr.Mode); err != nil {
			return m, xerrors.Wrap(err, "materialize", p.Name)
		}
		if err := fs.Chmod(fr.Path, fr.Mode); err != nil {
			return m, xerrors.Wrap(err, "materialize", p.Name)
		}
	}

	return m, nil
}

// RemoveEphemeralFiles deletes every ephemeral file belonging to
// workload name under dir, matching the "{name}-*" glob used by
// delete (spec.md §4.F).
func RemoveEphemeralFiles(fs afero.Fs, dir, name string) error {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return xerrors.Wrap(err, "delete-ephemeral-files", name)
	}
	prefix := name + "-"
	var firstErr error
	for _, e := range entries {
		if e.IsDir() || len(e.Name()) < len(prefix) || e.Name()[:len(prefix)] != prefix {
			continue
		}
		if err := fs.Remove(filepath.Join(dir, e.Name())); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return xerrors.Wrap(firstErr, "delete-ephemeral-files", name)
	}
	return nil
}
