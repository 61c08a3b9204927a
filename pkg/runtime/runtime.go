// Package runtime implements the Lifecycle API (spec.md §4.F): it
// wires the workload planner, topology projector, engine binding, and
// status aggregator together into Create/Get/Delete/List/Logs/Exec.
package runtime

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"

	"github.com/gpustack/runtime/internal/log"
	"github.com/gpustack/runtime/internal/xerrors"
	"github.com/gpustack/runtime/pkg/engine"
	"github.com/gpustack/runtime/pkg/labels"
	"github.com/gpustack/runtime/pkg/plan"
	"github.com/gpustack/runtime/pkg/status"
	"github.com/gpustack/runtime/pkg/topology"
)

// Runtime is the Lifecycle API entry point bound to a single engine.
type Runtime struct {
	Engine       engine.Engine
	FS           afero.Fs
	EphemeralDir string
	Topology     topology.Options
}

func New(eng engine.Engine, fs afero.Fs, ephemeralDir string, topo topology.Options) *Runtime {
	return &Runtime{Engine: eng, FS: fs, EphemeralDir: ephemeralDir, Topology: topo}
}

func (r *Runtime) requireSupported(ctx context.Context) error {
	if !r.Engine.IsSupported(ctx) {
		return xerrors.NewUnsupportedError(r.Engine.Name(), nil)
	}
	return nil
}

// Create deploys a workload: validates and materializes the plan,
// projects it to engine container params, then creates and starts
// pause, init, run, and (if needed) autoheal containers in that order.
// Creation is idempotent - containers that already exist by name are
// adopted as-is (DESIGN.md Open Question 3).
func (r *Runtime) Create(ctx context.Context, p plan.WorkloadPlan) error {
	if err := r.requireSupported(ctx); err != nil {
		return err
	}

	validated, err := plan.Validate(p)
	if err != nil {
		return err
	}

	materialized, err := plan.Materialize(validated, r.FS, r.EphemeralDir)
	if err != nil {
		return err
	}
	for _, v := range materialized.Volumes {
		if err := r.Engine.CreateVolume(ctx, v.Name, v.Labels); err != nil {
			return err
		}
	}

	projected, err := topology.Project(validated, materialized, r.Topology)
	if err != nil {
		return err
	}

	if err := r.createAndStart(ctx, projected.Pause); err != nil {
		return err
	}
	for _, np := range projected.Init {
		if err := r.createAndStart(ctx, np); err != nil {
			return err
		}
	}
	for _, np := range projected.Run {
		if err := r.createAndStart(ctx, np); err != nil {
			return err
		}
	}
	if projected.UnhealthyRestart != nil {
		if err := r.createAndStart(ctx, *projected.UnhealthyRestart); err != nil {
			return err
		}
	}

	return nil
}

func (r *Runtime) createAndStart(ctx context.Context, np topology.NamedParams) error {
	if np.Params.Image != "" {
		if err := r.Engine.PullImage(ctx, np.Params.Image); err != nil {
			return err
		}
	}

	c, err := r.Engine.CreateContainer(ctx, np.Params)
	if err != nil {
		return err
	}

	// Restart states are respected: created -> start, exited/dead ->
	// restart, paused -> unpause. An adopted, already-stopped or
	// -paused container must not go through StartContainer - Docker
	// itself rejects that combination.
	switch c.Status {
	case engine.StatusCreated:
		if err := r.Engine.StartContainer(ctx, c.ID); err != nil {
			return err
		}
	case engine.StatusExited, engine.StatusDead:
		if err := r.Engine.RestartContainer(ctx, c.ID); err != nil {
			return err
		}
	case engine.StatusPaused:
		if err := r.Engine.UnpauseContainer(ctx, c.ID); err != nil {
			return err
		}
	}

	if !c.HasRestartPolicy && np.Params.RestartPolicy == nil {
		exitCode, err := r.Engine.WaitContainer(ctx, c.ID)
		if err != nil {
			return err
		}
		if exitCode != 0 {
			return xerrors.NewOperationError("create", np.Name,
				fmt.Errorf("container %s exited with status %d", np.Name, exitCode))
		}
	}

	return nil
}

// Get returns the aggregated status of a workload, or nil if it does
// not exist.
func (r *Runtime) Get(ctx context.Context, name string) (*status.WorkloadStatus, error) {
	if err := r.requireSupported(ctx); err != nil {
		return nil, err
	}

	containers, err := r.Engine.ListContainers(ctx, map[string]string{
		labels.Workload:  name,
		labels.Component: "",
	})
	if err != nil {
		return nil, err
	}
	return status.Aggregate(name, containers), nil
}

// Delete removes every container, ephemeral volume, and ephemeral file
// belonging to the workload, on a best-effort basis: it keeps going
// after a single resource fails to delete and returns every error it
// hit bundled together.
func (r *Runtime) Delete(ctx context.Context, name string) (*status.WorkloadStatus, error) {
	if err := r.requireSupported(ctx); err != nil {
		return nil, err
	}

	workload, err := r.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if workload == nil {
		return nil, nil
	}

	var errs *multierror.Error
	suppress := func(err error) {
		log.Warnf("delete workload %s: %v", name, err)
		errs = multierror.Append(errs, err)
	}

	containers, err := r.Engine.ListContainers(ctx, map[string]string{labels.Workload: name})
	if err != nil {
		suppress(err)
	}
	for _, c := range containers {
		if err := r.Engine.RemoveContainer(ctx, c.ID); err != nil {
			suppress(err)
		}
	}

	volumes, err := r.Engine.ListVolumes(ctx, map[string]string{labels.Workload: name})
	if err != nil {
		suppress(err)
	}
	for _, v := range volumes {
		if err := r.Engine.RemoveVolume(ctx, v); err != nil {
			suppress(err)
		}
	}

	if err := plan.RemoveEphemeralFiles(r.FS, r.EphemeralDir, name); err != nil {
		suppress(err)
	}

	return workload, errs.ErrorOrNil()
}

// List returns every workload whose containers match the given label
// selector, in addition to the reserved workload/component labels
// every workload carries.
func (r *Runtime) List(ctx context.Context, selector map[string]string) ([]*status.WorkloadStatus, error) {
	if err := r.requireSupported(ctx); err != nil {
		return nil, err
	}

	filter := map[string]string{labels.Workload: "", labels.Component: ""}
	for k, v := range selector {
		if k == labels.Workload || k == labels.Component || k == labels.ComponentIdx {
			continue
		}
		filter[k] = v
	}

	containers, err := r.Engine.ListContainers(ctx, filter)
	if err != nil {
		return nil, err
	}

	grouped := map[string][]engine.Container{}
	var order []string
	for _, c := range containers {
		name := c.Labels[labels.Workload]
		if name == "" {
			continue
		}
		if _, ok := grouped[name]; !ok {
			order = append(order, name)
		}
		grouped[name] = append(grouped[name], c)
	}

	out := make([]*status.WorkloadStatus, 0, len(order))
	for _, name := range order {
		out = append(out, status.Aggregate(name, grouped[name]))
	}
	return out, nil
}

// Logs streams the logs of the named container (token), or the
// workload's Run container if token is empty.
func (r *Runtime) Logs(ctx context.Context, name, token string, opts engine.LogOptions, w io.Writer) error {
	if err := r.requireSupported(ctx); err != nil {
		return err
	}
	id, err := r.resolveOperationTarget(ctx, name, token, true)
	if err != nil {
		return err
	}
	return r.Engine.Logs(ctx, id, opts, w)
}

// Exec runs command inside the named container (token), or the
// workload's Run container if token is empty. An empty command
// defaults to an attached "/bin/sh".
func (r *Runtime) Exec(ctx context.Context, name, token string, command []string, detach bool) (engine.ExecResult, error) {
	if err := r.requireSupported(ctx); err != nil {
		return engine.ExecResult{}, err
	}

	attach := !detach
	if len(command) == 0 {
		attach = true
		command = []string{"/bin/sh"}
	}

	id, err := r.resolveOperationTarget(ctx, name, token, false)
	if err != nil {
		return engine.ExecResult{}, err
	}
	return r.Engine.Exec(ctx, id, command, attach)
}

func (r *Runtime) resolveOperationTarget(ctx context.Context, name, token string, loggable bool) (string, error) {
	containers, err := r.Engine.ListContainers(ctx, map[string]string{labels.Workload: name})
	if err != nil {
		return "", err
	}
	if len(containers) == 0 {
		return "", xerrors.NewOperationError("resolve-target", name, fmt.Errorf("workload %s not found", name))
	}

	for _, c := range containers {
		if token != "" {
			if c.ID == token {
				return c.ID, nil
			}
			continue
		}
		if c.Labels[labels.Component] == labels.ComponentRun {
			return c.ID, nil
		}
	}

	what := "executable"
	if loggable {
		what = "loggable"
	}
	return "", xerrors.NewOperationError("resolve-target", name, fmt.Errorf("%s container of workload %s not found", what, name))
}
