// Package status implements the pure state-aggregation function that
// folds a workload's raw container list into a single WorkloadStatus
// (spec.md §4.E). It holds no engine dependency: callers (pkg/runtime)
// supply the already-listed engine.Container slice.
package status

import (
	"github.com/gpustack/runtime/pkg/engine"
	"github.com/gpustack/runtime/pkg/labels"
)

type State string

const (
	StateUnknown      State = "Unknown"
	StatePending      State = "Pending"
	StateInitializing State = "Initializing"
	StateRunning      State = "Running"
	StateUnhealthy    State = "Unhealthy"
	StateFailed       State = "Failed"
)

// Operation identifies one container an executable/loggable action can
// target, by its human component name and engine token (container ID).
type Operation struct {
	Name  string
	Token string
}

// WorkloadStatus is the aggregated, user-facing view of a workload.
type WorkloadStatus struct {
	Name       string
	CreatedAt  string
	Labels     map[string]string
	Executable []Operation
	Loggable   []Operation
	State      State
}

// Aggregate folds a workload's containers (as returned by the engine,
// filtered to just that workload's label) into a WorkloadStatus. It is
// a pure function: the result depends only on the container slice's
// contents, not on iteration order (spec.md testable property 5).
func Aggregate(name string, containers []engine.Container) *WorkloadStatus {
	if len(containers) == 0 {
		return nil
	}

	out := &WorkloadStatus{
		Name:      name,
		CreatedAt: containers[0].CreatedAt,
		Labels:    labels.StripReserved(containers[0].Labels),
	}

	for _, c := range containers {
		op := Operation{
			Name:  c.Labels[labels.ComponentName],
			Token: c.ID,
		}
		if op.Name == "" {
			op.Name = c.Name
		}
		if op.Token == "" {
			op.Token = c.Name
		}

		switch c.Labels[labels.Component] {
		case labels.ComponentInit:
			if c.Status == engine.StatusRunning && c.HasRestartPolicy {
				out.Executable = append(out.Executable, op)
			}
			out.Loggable = append(out.Loggable, op)
		case labels.ComponentRun:
			out.Executable = append(out.Executable, op)
			out.Loggable = append(out.Loggable, op)
		}
	}

	out.State = parseState(containers)
	return out
}

// parseState implements the same fold the reference deployer performs:
// it inspects only init/run containers (pause and autoheal are
// deliberately excluded) and reasons from the run containers outward,
// consulting init containers only while a run container is still
// "created".
func parseState(containers []engine.Container) State {
	var initContainers, runContainers []engine.Container
	for _, c := range containers {
		switch c.Labels[labels.Component] {
		case labels.ComponentInit:
			initContainers = append(initContainers, c)
		case labels.ComponentRun:
			runContainers = append(runContainers, c)
		}
	}

	if len(runContainers) == 0 {
		if len(initContainers) == 0 {
			return StateUnknown
		}
		return StatePending
	}

	for _, cr := range runContainers {
		if cr.Status == engine.StatusCreated {
			if len(initContainers) == 0 {
				return StatePending
			}
			for _, ci := range initContainers {
				if ci.Status == engine.StatusCreated {
					return StatePending
				}
				if ci.Status == engine.StatusDead || (ci.Status == engine.StatusExited && ci.ExitCode != 0) {
					return StateFailed
				}
				if ci.Status != engine.StatusExited && !ci.HasRestartPolicy {
					return StateInitializing
				}
			}
			return StateInitializing
		}
		if cr.Status == engine.StatusDead || (cr.Status == engine.StatusExited && cr.ExitCode != 0) {
			if !cr.HasRestartPolicy {
				return StateFailed
			}
			return StateUnhealthy
		}
		if cr.Status != engine.StatusRunning && !cr.HasRestartPolicy {
			return StatePending
		}
	}

	return StateRunning
}
