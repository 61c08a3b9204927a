// Package enginetest provides an in-memory engine.Engine fake so
// pkg/topology and pkg/runtime scenarios can be exercised without a
// live container daemon.
package enginetest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/gpustack/runtime/pkg/engine"
)

const Name = "fake"

// Engine is a deterministic, in-process fake satisfying engine.Engine.
// Containers move straight from "created" to "running" on Start, and
// newly created containers with no RestartPolicy and a zero exit
// command are left "created" until Start is called, mirroring the
// real engine's semantics closely enough for topology/runtime tests.
type Engine struct {
	mu sync.Mutex

	images     map[string]struct{}
	volumes    map[string]map[string]string // name -> labels
	containers map[string]*engine.Container
	params     map[string]engine.CreateParams
	seq        int
}

func New() *Engine {
	return &Engine{
		images:     map[string]struct{}{},
		volumes:    map[string]map[string]string{},
		containers: map[string]*engine.Container{},
		params:     map[string]engine.CreateParams{},
	}
}

func (e *Engine) Name() string                            { return Name }
func (e *Engine) IsSupported(_ context.Context) bool       { return true }

func (e *Engine) PullImage(_ context.Context, image string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.images[image] = struct{}{}
	return nil
}

func (e *Engine) CreateVolume(_ context.Context, name string, labels map[string]string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volumes[name] = labels
	return nil
}

func (e *Engine) ListVolumes(_ context.Context, labels map[string]string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for name, vl := range e.volumes {
		if matchesLabels(vl, labels) {
			out = append(out, name)
		}
	}
	return out, nil
}

func (e *Engine) RemoveVolume(_ context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.volumes, name)
	return nil
}

func (e *Engine) CreateContainer(_ context.Context, p engine.CreateParams) (engine.Container, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, ok := e.containers[p.Name]; ok {
		return *existing, nil
	}

	e.seq++
	c := &engine.Container{
		ID:        fmt.Sprintf("fake-%d", e.seq),
		Name:      p.Name,
		Status:    engine.StatusCreated,
		Labels:    p.Labels,
		CreatedAt: "1970-01-01T00:00:00Z",
	}
	if p.RestartPolicy != nil && p.RestartPolicy.Name != "" {
		c.HasRestartPolicy = true
	}
	e.containers[p.Name] = c
	e.params[p.Name] = p
	return *c, nil
}

func (e *Engine) StartContainer(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.findByID(id)
	if c == nil {
		return fmt.Errorf("container %s not found", id)
	}
	if c.Status != engine.StatusCreated {
		return fmt.Errorf("container %s is %s, not created", id, c.Status)
	}
	c.Status = engine.StatusRunning
	return nil
}

func (e *Engine) RestartContainer(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.findByID(id)
	if c == nil {
		return fmt.Errorf("container %s not found", id)
	}
	if c.Status != engine.StatusExited && c.Status != engine.StatusDead {
		return fmt.Errorf("container %s is %s, not exited/dead", id, c.Status)
	}
	c.Status = engine.StatusRunning
	return nil
}

func (e *Engine) UnpauseContainer(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.findByID(id)
	if c == nil {
		return fmt.Errorf("container %s not found", id)
	}
	if c.Status != engine.StatusPaused {
		return fmt.Errorf("container %s is %s, not paused", id, c.Status)
	}
	c.Status = engine.StatusRunning
	return nil
}

func (e *Engine) WaitContainer(_ context.Context, id string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.findByID(id)
	if c == nil {
		return 0, fmt.Errorf("container %s not found", id)
	}
	return c.ExitCode, nil
}

func (e *Engine) RemoveContainer(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for name, c := range e.containers {
		if c.ID == id || name == id {
			delete(e.containers, name)
			delete(e.params, name)
			return nil
		}
	}
	return nil
}

func (e *Engine) ListContainers(_ context.Context, labels map[string]string) ([]engine.Container, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []engine.Container
	for _, c := range e.containers {
		if matchesLabels(c.Labels, labels) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (e *Engine) InspectContainer(_ context.Context, id string) (engine.Container, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.findByID(id)
	if c == nil {
		return engine.Container{}, fmt.Errorf("container %s not found", id)
	}
	return *c, nil
}

func (e *Engine) Logs(_ context.Context, id string, _ engine.LogOptions, w io.Writer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c := e.findByID(id); c != nil {
		_, _ = fmt.Fprintf(w, "log line for %s\n", c.Name)
	}
	return nil
}

func (e *Engine) Exec(_ context.Context, id string, command []string, _ bool) (engine.ExecResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.findByID(id) == nil {
		return engine.ExecResult{}, fmt.Errorf("container %s not found", id)
	}
	return engine.ExecResult{ExitCode: 0, Output: []byte(fmt.Sprintf("ran %v", command))}, nil
}

// SetStatus lets tests force a container into an arbitrary state, e.g.
// to simulate a crashed init container.
func (e *Engine) SetStatus(name string, status engine.ContainerStatus, exitCode int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.containers[name]; ok {
		c.Status = status
		c.ExitCode = exitCode
	}
}

// Params returns the CreateParams a container was created with, for
// assertions in projector tests.
func (e *Engine) Params(name string) (engine.CreateParams, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.params[name]
	return p, ok
}

func (e *Engine) findByID(id string) *engine.Container {
	if c, ok := e.containers[id]; ok {
		return c
	}
	for _, c := range e.containers {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func matchesLabels(have, want map[string]string) bool {
	for k, v := range want {
		if v == "" {
			if _, ok := have[k]; !ok {
				return false
			}
			continue
		}
		if have[k] != v {
			return false
		}
	}
	return true
}
