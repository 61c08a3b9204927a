// Package docker binds pkg/engine.Engine to a real Docker daemon using
// the official Docker client.
package docker

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	"github.com/pkg/errors"

	"github.com/gpustack/runtime/internal/log"
	"github.com/gpustack/runtime/internal/xerrors"
	"github.com/gpustack/runtime/pkg/engine"
)

const Name = "docker"

// Engine binds pkg/engine.Engine against a live Docker daemon.
type Engine struct {
	cli *client.Client

	supportedOnce sync.Once
	supported     bool
}

// New constructs the Docker engine, preferring the Unix socket at
// /var/run/docker.sock and falling back to the standard DOCKER_HOST
// environment variables otherwise.
func New() (*Engine, error) {
	opts := []client.Opt{client.WithAPIVersionNegotiation()}
	if _, err := os.Stat("/var/run/docker.sock"); err == nil {
		opts = append(opts, client.WithHost("unix:///var/run/docker.sock"))
	} else {
		opts = append(opts, client.FromEnv)
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create docker client")
	}
	return &Engine{cli: cli}, nil
}

func (e *Engine) Name() string { return Name }

func (e *Engine) IsSupported(ctx context.Context) bool {
	e.supportedOnce.Do(func() {
		if e.cli == nil {
			return
		}
		if _, err := e.cli.Ping(ctx); err != nil {
			log.Debugf("docker ping failed: %v", err)
			return
		}
		e.supported = true
	})
	return e.supported
}

func (e *Engine) PullImage(ctx context.Context, image string) error {
	if _, _, err := e.cli.ImageInspectWithRaw(ctx, image); err == nil {
		return nil
	}

	rc, err := e.cli.ImagePull(ctx, image, types.ImagePullOptions{})
	if err != nil {
		return xerrors.Wrap(err, "pull-image", image)
	}
	defer rc.Close()
	_, _ = io.Copy(io.Discard, rc)
	return nil
}

func (e *Engine) CreateVolume(ctx context.Context, name string, labels map[string]string) error {
	_, err := e.cli.VolumeCreate(ctx, volume.CreateOptions{
		Name:   name,
		Driver: "local",
		Labels: labels,
	})
	if err != nil {
		return xerrors.Wrap(err, "create-volume", name)
	}
	return nil
}

func (e *Engine) ListVolumes(ctx context.Context, labels map[string]string) ([]string, error) {
	args := filters.NewArgs()
	for k, v := range labels {
		args.Add("label", k+"="+v)
	}
	resp, err := e.cli.VolumeList(ctx, volume.ListOptions{Filters: args})
	if err != nil {
		return nil, xerrors.Wrap(err, "list-volumes", "")
	}
	names := make([]string, 0, len(resp.Volumes))
	for _, v := range resp.Volumes {
		names = append(names, v.Name)
	}
	return names, nil
}

func (e *Engine) RemoveVolume(ctx context.Context, name string) error {
	if err := e.cli.VolumeRemove(ctx, name, true); err != nil {
		return xerrors.Wrap(err, "remove-volume", name)
	}
	return nil
}

func (e *Engine) CreateContainer(ctx context.Context, p engine.CreateParams) (engine.Container, error) {
	existing, err := e.cli.ContainerInspect(ctx, p.Name)
	if err == nil {
		return containerFromInspect(existing), nil
	}
	if !client.IsErrNotFound(err) {
		return engine.Container{}, xerrors.Wrap(err, "inspect-container", p.Name)
	}

	cfg := &container.Config{
		Image:      p.Image,
		Hostname:   p.Hostname,
		Env:        mapToEnvSlice(p.Env),
		Labels:     p.Labels,
		WorkingDir: p.WorkingDir,
		Entrypoint: p.Entrypoint,
		Cmd:        p.Command,
		User:       p.User,
	}
	if p.HealthCheck != nil {
		cfg.Healthcheck = &container.HealthConfig{
			Test:        p.HealthCheck.Test,
			Interval:    secondsToDuration(p.HealthCheck.Interval),
			Timeout:     secondsToDuration(p.HealthCheck.Timeout),
			Retries:     p.HealthCheck.Retries,
			StartPeriod: secondsToDuration(p.HealthCheck.StartPeriod),
		}
	}

	hostCfg := &container.HostConfig{
		NetworkMode: container.NetworkMode(p.NetworkMode),
		IpcMode:     container.IpcMode(p.IPCMode),
		PidMode:     container.PidMode(p.PIDMode),
		Privileged:  p.Privileged,
		ReadonlyRootfs: p.ReadOnly,
		GroupAdd:    p.GroupAdd,
		CapAdd:      p.CapAdd,
		CapDrop:     p.CapDrop,
		Sysctls:     p.Sysctls,
		ShmSize:     p.ShmSize,
		Runtime:     p.Runtime,
		Resources: container.Resources{
			CPUShares: p.CPUShares,
			Memory:    p.MemoryBytes,
		},
		Binds: p.Volumes,
	}
	if p.RestartPolicy != nil && p.RestartPolicy.Name != "" {
		hostCfg.RestartPolicy = container.RestartPolicy{Name: container.RestartPolicyMode(p.RestartPolicy.Name)}
	}
	for _, m := range p.Mounts {
		hostCfg.Binds = append(hostCfg.Binds, bindSpec(m))
	}
	if len(p.Ports) > 0 {
		exposed, bindings, err := toPortMap(p.Ports)
		if err != nil {
			return engine.Container{}, xerrors.Wrap(err, "create-container", p.Name)
		}
		cfg.ExposedPorts = exposed
		hostCfg.PortBindings = bindings
	}

	resp, err := e.cli.ContainerCreate(ctx, cfg, hostCfg, &network.NetworkingConfig{}, nil, p.Name)
	if err != nil {
		return engine.Container{}, xerrors.Wrap(err, "create-container", p.Name)
	}

	return e.InspectContainer(ctx, resp.ID)
}

func (e *Engine) StartContainer(ctx context.Context, id string) error {
	if err := e.cli.ContainerStart(ctx, id, types.ContainerStartOptions{}); err != nil {
		return xerrors.Wrap(err, "start-container", id)
	}
	return nil
}

// RestartContainer restarts an already-created, now-stopped container.
// ContainerStart would also work here, but ContainerRestart matches
// the reference deployer's dispatch and stops then starts cleanly for
// a container docker still considers "exited"/"dead".
func (e *Engine) RestartContainer(ctx context.Context, id string) error {
	if err := e.cli.ContainerRestart(ctx, id, container.StopOptions{}); err != nil {
		return xerrors.Wrap(err, "restart-container", id)
	}
	return nil
}

func (e *Engine) UnpauseContainer(ctx context.Context, id string) error {
	if err := e.cli.ContainerUnpause(ctx, id); err != nil {
		return xerrors.Wrap(err, "unpause-container", id)
	}
	return nil
}

func (e *Engine) WaitContainer(ctx context.Context, id string) (int, error) {
	statusCh, errCh := e.cli.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		return 0, xerrors.Wrap(err, "wait-container", id)
	case st := <-statusCh:
		return int(st.StatusCode), nil
	}
}

func (e *Engine) RemoveContainer(ctx context.Context, id string) error {
	err := e.cli.ContainerRemove(ctx, id, types.ContainerRemoveOptions{Force: true})
	if err != nil && !client.IsErrNotFound(err) {
		return xerrors.Wrap(err, "remove-container", id)
	}
	return nil
}

func (e *Engine) ListContainers(ctx context.Context, labels map[string]string) ([]engine.Container, error) {
	args := filters.NewArgs()
	for k, v := range labels {
		if v == "" {
			args.Add("label", k)
			continue
		}
		args.Add("label", k+"="+v)
	}
	list, err := e.cli.ContainerList(ctx, types.ContainerListOptions{All: true, Filters: args})
	if err != nil {
		return nil, xerrors.Wrap(err, "list-containers", "")
	}

	out := make([]engine.Container, 0, len(list))
	for _, c := range list {
		inspected, err := e.InspectContainer(ctx, c.ID)
		if err != nil {
			continue
		}
		out = append(out, inspected)
	}
	return out, nil
}

func (e *Engine) InspectContainer(ctx context.Context, id string) (engine.Container, error) {
	inspected, err := e.cli.ContainerInspect(ctx, id)
	if err != nil {
		return engine.Container{}, xerrors.Wrap(err, "inspect-container", id)
	}
	return containerFromInspect(inspected), nil
}

func (e *Engine) Logs(ctx context.Context, id string, opts engine.LogOptions, w io.Writer) error {
	dockerOpts := types.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Timestamps: opts.Timestamps,
		Follow:     opts.Follow,
	}
	if opts.Tail > 0 {
		dockerOpts.Tail = itoa(opts.Tail)
	}
	if opts.Since > 0 {
		dockerOpts.Since = itoa64(opts.Since)
	}

	rc, err := e.cli.ContainerLogs(ctx, id, dockerOpts)
	if err != nil {
		return xerrors.Wrap(err, "logs", id)
	}
	defer rc.Close()

	if _, err := stdcopy.StdCopy(w, w, rc); err != nil && err != io.EOF {
		return xerrors.Wrap(err, "logs", id)
	}
	return nil
}

func (e *Engine) Exec(ctx context.Context, id string, command []string, attach bool) (engine.ExecResult, error) {
	created, err := e.cli.ContainerExecCreate(ctx, id, types.ExecConfig{
		Cmd:          command,
		AttachStdout: true,
		AttachStderr: true,
		AttachStdin:  attach,
		Tty:          attach,
	})
	if err != nil {
		return engine.ExecResult{}, xerrors.Wrap(err, "exec", id)
	}

	resp, err := e.cli.ContainerExecAttach(ctx, created.ID, types.ExecStartCheck{Tty: attach})
	if err != nil {
		return engine.ExecResult{}, xerrors.Wrap(err, "exec", id)
	}
	defer resp.Close()

	var buf strings.Builder
	_, _ = io.Copy(&buf, resp.Reader)

	inspected, err := e.cli.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return engine.ExecResult{}, xerrors.Wrap(err, "exec", id)
	}

	return engine.ExecResult{ExitCode: inspected.ExitCode, Output: []byte(buf.String())}, nil
}

func containerFromInspect(c types.ContainerJSON) engine.Container {
	status := engine.ContainerStatus(c.State.Status)
	hasRestart := c.HostConfig != nil && c.HostConfig.RestartPolicy.Name != "" &&
		c.HostConfig.RestartPolicy.Name != container.RestartPolicyDisabled
	return engine.Container{
		ID:               c.ID,
		Name:             strings.TrimPrefix(c.Name, "/"),
		Status:           status,
		ExitCode:         c.State.ExitCode,
		CreatedAt:        c.Created,
		Labels:           c.Config.Labels,
		HasRestartPolicy: hasRestart,
	}
}

func mapToEnvSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

func bindSpec(m engine.Mount) string {
	mode := "rw"
	if m.ReadOnly {
		mode = "ro"
	}
	return m.Source + ":" + m.Target + ":" + mode
}

func toPortMap(ports map[string]int) (nat.PortSet, nat.PortMap, error) {
	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for spec, external := range ports {
		port, err := nat.NewPort(protocolOf(spec), portOf(spec))
		if err != nil {
			return nil, nil, err
		}
		exposed[port] = struct{}{}
		bindings[port] = []nat.PortBinding{{HostPort: itoa(external)}}
	}
	return exposed, bindings, nil
}

func protocolOf(spec string) string {
	if i := strings.LastIndex(spec, "/"); i >= 0 {
		return spec[i+1:]
	}
	return "tcp"
}

func portOf(spec string) string {
	if i := strings.LastIndex(spec, "/"); i >= 0 {
		return spec[:i]
	}
	return spec
}

func secondsToDuration(s int) time.Duration { return time.Duration(s) * time.Second }

func itoa(n int) string     { return strconv.Itoa(n) }
func itoa64(n int64) string { return strconv.FormatInt(n, 10) }
