package plan

import (
	"fmt"

	"github.com/gpustack/runtime/internal/xerrors"
	"github.com/gpustack/runtime/pkg/labels"
)

// Validate enforces the invariants in spec.md §3: at least one Run
// container, and unique container names. It also applies the
// plan-level defaulting (attaching the workload label) described in
// spec.md §4.C, mutating a copy rather than the caller's plan.
func Validate(p WorkloadPlan) (WorkloadPlan, error) {
	if p.Name == "" {
		return p, xerrors.NewOperationError("validate", p.Name, fmt.Errorf("workload name is required"))
	}

	seen := make(map[string]struct{}, len(p.Containers))
	hasRun := false
	for _, c := range p.Containers {
		if c.Name == "" {
			return p, xerrors.NewOperationError("validate", p.Name, fmt.Errorf("container name is required"))
		}
		if _, dup := seen[c.Name]; dup {
			return p, xerrors.NewOperationError("validate", p.Name, fmt.Errorf("duplicate container name %q", c.Name))
		}
		seen[c.Name] = struct{}{}
		if c.Profile == ProfileRun {
			hasRun = true
		}
	}
	if !hasRun {
		return p, xerrors.NewOperationError("validate", p.Name, fmt.Errorf("workload plan must contain at least one Run container"))
	}

	out := p
	out.Labels = make(map[string]string, len(p.Labels)+1)
	for k, v := range p.Labels {
		out.Labels[k] = v
	}
	out.Labels[labels.Workload] = p.Name

	out.Containers = make([]Container, len(p.Containers))
	copy(out.Containers, p.Containers)

	return out, nil
}
