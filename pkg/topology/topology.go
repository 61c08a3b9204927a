// Package topology turns a validated plan.WorkloadPlan into the
// concrete engine.CreateParams for every container the workload needs:
// a shared-namespace pause container, the init/run containers
// themselves, and an optional autoheal sidecar. This is the component
// that actually understands how the flat container-engine model
// projects a pod-like workload (spec.md §4.D).
package topology

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/docker/go-units"

	"github.com/gpustack/runtime/pkg/engine"
	"github.com/gpustack/runtime/pkg/labels"
	"github.com/gpustack/runtime/pkg/plan"
)

// Options configures the projection. ResourceDeviceEnvMapping defaults
// to DefaultResourceDeviceEnvMapping when nil, letting a caller extend
// or override vendor resource keys without touching this package.
type Options struct {
	PauseImage            string
	UnhealthyRestartImage string
	ResourceDeviceEnvMapping map[string]string
}

// NamedParams pairs a container's engine-level name with the params to
// create it with and the human-facing component identity the status
// aggregator and lifecycle API key operations off of.
type NamedParams struct {
	Name          string
	ComponentName string
	Index         int
	Params        engine.CreateParams
}

// Projected is the full set of containers a workload needs, in the
// order they must be created (and started).
type Projected struct {
	Pause           NamedParams
	Init            []NamedParams
	Run             []NamedParams
	UnhealthyRestart *NamedParams
}

// Project converts a validated, materialized plan into engine-level
// container parameters.
func Project(p plan.WorkloadPlan, m plan.Materialized, opts Options) (Projected, error) {
	mapping := opts.ResourceDeviceEnvMapping
	if mapping == nil {
		mapping = DefaultResourceDeviceEnvMapping
	}

	var out Projected
	out.Pause = projectPause(p, opts.PauseImage)

	pauseNamespace := fmt.Sprintf("container:%s", out.Pause.Name)
	for ci, c := range p.Containers {
		np, err := projectContainer(p, c, ci, pauseNamespace, m, mapping)
		if err != nil {
			return out, err
		}
		if c.Profile == plan.ProfileInit {
			out.Init = append(out.Init, np)
		} else {
			out.Run = append(out.Run, np)
		}
	}

	if ahc := projectUnhealthyRestart(p, opts.UnhealthyRestartImage); ahc != nil {
		out.UnhealthyRestart = ahc
	}

	return out, nil
}

func projectPause(p plan.WorkloadPlan, pauseImage string) NamedParams {
	name := fmt.Sprintf("%s-pause", p.Name)

	params := engine.CreateParams{
		Name:        name,
		Image:       pauseImage,
		Detach:      true,
		NetworkMode: "bridge",
		IPCMode:     "shareable",
		Labels: mergeLabels(p.Labels, map[string]string{
			labels.Component: labels.ComponentPause,
		}),
		RestartPolicy: &engine.RestartPolicy{Name: "always"},
	}

	if p.HostNetwork {
		params.NetworkMode = "host"
	} else if ports := collectPorts(p); len(ports) > 0 {
		params.Ports = ports
	}

	if p.HostIPC {
		params.IPCMode = "host"
	}

	params.Labels[labels.ComponentHash] = componentHash(params)

	return NamedParams{Name: name, ComponentName: "pause", Params: params}
}

func collectPorts(p plan.WorkloadPlan) map[string]int {
	out := map[string]int{}
	for _, c := range p.Containers {
		if c.Profile != plan.ProfileRun {
			continue
		}
		for _, port := range c.Ports {
			external := port.Internal
			if port.External != nil {
				external = *port.External
			}
			spec := fmt.Sprintf("%d/%s", port.Internal, strings.ToLower(string(port.Protocol)))
			out[spec] = external
		}
	}
	return out
}

func projectContainer(
	p plan.WorkloadPlan,
	c plan.Container,
	ci int,
	pauseNamespace string,
	m plan.Materialized,
	deviceEnvMapping map[string]string,
) (NamedParams, error) {
	profile := strings.ToLower(string(c.Profile))
	name := fmt.Sprintf("%s-%s-%d", p.Name, profile, ci)

	params := engine.CreateParams{
		Name:        name,
		Image:       c.Image,
		NetworkMode: pauseNamespace,
		IPCMode:     pauseNamespace,
		Labels: mergeLabels(p.Labels, map[string]string{
			labels.Component:     profile,
			labels.ComponentName: c.Name,
			labels.ComponentIdx:  strconv.Itoa(ci),
		}),
	}

	if !p.HostNetwork {
		params.Hostname = c.Name
	}
	if p.PIDShared {
		params.PIDMode = pauseNamespace
	}
	if shm, ok := parseMemory(p.ShmSize); ok && shm > 0 {
		params.ShmSize = shm
	}

	detach := c.Profile == plan.ProfileRun
	applyRestartPolicy(c, &params, &detach)
	applyExecution(p, c, &params)
	applyEnvAndRuntime(c, &params)
	applyResources(c, &params, deviceEnvMapping)
	applyFilesAndMounts(ci, c, &params, m)

	if c.Profile == plan.ProfileRun && len(c.Checks) > 0 {
		if firstCheckEnablesAutoheal(c) {
			params.Labels[labels.ComponentHeal(p.Name)] = "true"
		}
		params.HealthCheck = buildHealthCheck(c.Checks[0])
	}

	params.Detach = detach

	params.Labels[labels.ComponentHash] = componentHash(params)

	return NamedParams{Name: name, ComponentName: c.Name, Index: ci, Params: params}, nil
}

// applyRestartPolicy reproduces, faithfully, the reference engine's
// restart-policy resolution: an Init container only gets an engine
// restart policy when it explicitly asks for OnFailure or Always (and
// Always also forces it to run detached like a sidecar); a Run
// container defaults to Always unless it explicitly asks for
// OnFailure - an explicit Always or Never on a Run container falls
// through unset, leaving the engine's own implicit "no" in effect.
func applyRestartPolicy(c plan.Container, params *engine.CreateParams, detach *bool) {
	switch c.Profile {
	case plan.ProfileInit:
		if c.RestartPolicy == nil {
			return
		}
		switch *c.RestartPolicy {
		case plan.RestartOnFailure:
			params.RestartPolicy = &engine.RestartPolicy{Name: "on-failure"}
		case plan.RestartAlways:
			params.RestartPolicy = &engine.RestartPolicy{Name: "always"}
			*detach = true
		}
	case plan.ProfileRun:
		if c.RestartPolicy == nil {
			params.RestartPolicy = &engine.RestartPolicy{Name: "always"}
			return
		}
		if *c.RestartPolicy == plan.RestartOnFailure {
			params.RestartPolicy = &engine.RestartPolicy{Name: "on-failure"}
		}
	}
}

func applyExecution(p plan.WorkloadPlan, c plan.Container, params *engine.CreateParams) {
	e := c.Execution
	if e == nil {
		return
	}

	if e.WorkingDir != "" {
		params.WorkingDir = e.WorkingDir
	}
	if len(e.Command) > 0 {
		params.Entrypoint = e.Command
	}
	if len(e.Args) > 0 {
		params.Command = e.Args
	}

	runAsUser := e.RunAsUser
	if runAsUser == nil {
		runAsUser = p.RunAsUser
	}
	runAsGroup := e.RunAsGroup
	if runAsGroup == nil {
		runAsGroup = p.RunAsGroup
	}
	if runAsUser != nil {
		params.User = strconv.FormatInt(*runAsUser, 10)
		if runAsGroup != nil {
			params.User = fmt.Sprintf("%d:%d", *runAsUser, *runAsGroup)
		}
	}
	if runAsGroup != nil {
		params.GroupAdd = []string{strconv.FormatInt(*runAsGroup, 10)}
		if p.FSGroup != nil {
			params.GroupAdd = append(params.GroupAdd, strconv.FormatInt(*p.FSGroup, 10))
		}
	} else if p.FSGroup != nil {
		params.GroupAdd = []string{strconv.FormatInt(*p.FSGroup, 10)}
	}

	if len(p.Sysctls) > 0 {
		params.Sysctls = map[string]string{}
		for _, s := range p.Sysctls {
			params.Sysctls[s.Name] = s.Value
		}
	}

	if e.ReadonlyRootfs {
		params.ReadOnly = true
	}
	if e.Privileged {
		params.Privileged = true
	} else if e.Capabilities != nil {
		if len(e.Capabilities.Add) > 0 {
			params.CapAdd = e.Capabilities.Add
		} else if len(e.Capabilities.Drop) > 0 {
			params.CapDrop = e.Capabilities.Drop
		}
	}
}

// applyEnvAndRuntime sets Env and, when a "*_VISIBLE_DEVICES" variable
// is present, the engine Runtime field - "none"/"void" removes any
// runtime selection, matching the reference convention for explicitly
// opting a container out of GPU visibility.
func applyEnvAndRuntime(c plan.Container, params *engine.CreateParams) {
	if len(c.Envs) == 0 {
		return
	}
	params.Env = map[string]string{}
	for _, e := range c.Envs {
		if strings.HasSuffix(e.Name, "_VISIBLE_DEVICES") {
			if e.Value == "none" || e.Value == "void" {
				params.Runtime = ""
			} else {
				params.Runtime = strings.ToLower(strings.TrimSuffix(e.Name, "_VISIBLE_DEVICES"))
			}
		}
		params.Env[e.Name] = e.Value
	}
}

func applyResources(c plan.Container, params *engine.CreateParams, deviceEnvMapping map[string]string) {
	for _, r := range c.ParsedResources() {
		switch r.Kind {
		case plan.ResourceCPU:
			if v, ok := toFloat(r.Value); ok {
				params.CPUShares = int64(math.Ceil(v * 1024))
			}
		case plan.ResourceMemory:
			if bytes, ok := parseMemory(r.Value); ok {
				params.MemoryBytes = bytes
			}
		default:
			envName, ok := deviceEnvMapping[r.Kind]
			if !ok {
				continue
			}
			if params.Env == nil {
				params.Env = map[string]string{}
			}
			params.Env[envName] = fmt.Sprintf("%v", r.Value)
		}
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func parseMemory(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case string:
		trimmed := strings.TrimSuffix(strings.ToLower(n), "i")
		bytes, err := units.RAMInBytes(trimmed)
		if err != nil {
			return 0, false
		}
		return bytes, true
	default:
		return 0, false
	}
}

func applyFilesAndMounts(ci int, c plan.Container, params *engine.CreateParams, m plan.Materialized) {
	for _, f := range c.Files {
		var source string
		if f.Content != nil {
			key := plan.FileKey{ContainerIndex: ci, Path: f.Path}
			path, ok := m.FilePathByContainerAndPath[key]
			if !ok {
				continue
			}
			source = path
		} else if f.Path != "" {
			source = f.Path
		} else {
			continue
		}

		params.Mounts = append(params.Mounts, engine.Mount{
			Type:     "bind",
			Source:   source,
			Target:   "/" + strings.TrimPrefix(f.Path, "/"),
			ReadOnly: f.Mode != 0 && f.Mode < 0o600,
		})
	}

	for _, mnt := range c.Mounts {
		mount := engine.Mount{Type: "volume", Target: "/" + strings.TrimPrefix(mnt.Path, "/")}
		switch {
		case mnt.Volume != nil && *mnt.Volume != "":
			if rewritten, ok := m.VolumeNameByRequestedName[*mnt.Volume]; ok {
				mount.Source = rewritten
			} else {
				mount.Source = *mnt.Volume
			}
		case mnt.Path != "":
			mount.Type = "bind"
			mount.Source = mnt.Path
		default:
			continue
		}
		if mnt.Mode == plan.MountROX {
			mount.ReadOnly = true
		}
		params.Mounts = append(params.Mounts, mount)
	}
}

// projectUnhealthyRestart builds the autoheal sidecar when at least one
// Run container's first check has teardown enabled. It watches for the
// per-workload "component-heal-{name}" label and restarts any matching
// container that Docker reports unhealthy.
func projectUnhealthyRestart(p plan.WorkloadPlan, image string) *NamedParams {
	enabled := false
	for _, c := range p.Containers {
		if c.Profile == plan.ProfileRun && firstCheckEnablesAutoheal(c) {
			enabled = true
			break
		}
	}
	if !enabled {
		return nil
	}

	name := fmt.Sprintf("%s-unhealthy-restart", p.Name)
	params := engine.CreateParams{
		Name:        name,
		Image:       image,
		Detach:      true,
		NetworkMode: "none",
		Labels: mergeLabels(p.Labels, map[string]string{
			labels.Component: labels.ComponentUnhealthyRestart,
		}),
		RestartPolicy: &engine.RestartPolicy{Name: "always"},
		Env: map[string]string{
			"AUTOHEAL_CONTAINER_LABEL": labels.ComponentHeal(p.Name),
		},
		Volumes: []string{"/var/run/docker.sock:/var/run/docker.sock"},
	}

	params.Labels[labels.ComponentHash] = componentHash(params)

	return &NamedParams{Name: name, ComponentName: "unhealthy-restart", Params: params}
}

// componentHash summarizes everything about params that determines
// whether a previously-adopted container still matches the plan it was
// created from - image, command, env, mounts, resources, and the rest
// of the engine-facing spec, but never Labels itself (componentHash is
// written into Labels, so hashing it would be circular). encoding/json
// sorts map keys, so the digest is stable across runs for an unchanged
// plan.
func componentHash(params engine.CreateParams) string {
	hashable := params
	hashable.Labels = nil
	b, err := json.Marshal(hashable)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:16]
}

func mergeLabels(base map[string]string, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
