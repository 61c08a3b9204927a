// Package engine defines the capability surface the topology projector
// and lifecycle API drive against. A concrete binding (pkg/engine/docker)
// talks to a real container engine; pkg/engine/enginetest provides an
// in-memory fake for exercising pkg/runtime without a live daemon.
package engine

import (
	"context"
	"io"
)

// ContainerStatus mirrors the small subset of container lifecycle state
// the status aggregator needs to fold into a WorkloadStatusState.
type ContainerStatus string

const (
	StatusCreated ContainerStatus = "created"
	StatusRunning ContainerStatus = "running"
	StatusPaused  ContainerStatus = "paused"
	StatusExited  ContainerStatus = "exited"
	StatusDead    ContainerStatus = "dead"
)

// Mount describes a single bind or named-volume mount to attach to a
// container at creation time.
type Mount struct {
	Type     string // "bind" or "volume"
	Source   string
	Target   string
	ReadOnly bool
}

// Port is a single internal/external port mapping; External of 0 means
// "same as internal".
type Port struct {
	Internal int
	External int
	Protocol string
}

// HealthCheck is the engine-native health-check spec synthesized by the
// topology projector from a Check.
type HealthCheck struct {
	Test        []string
	Interval    int
	Timeout     int
	Retries     int
	StartPeriod int
}

// RestartPolicy is the engine-native restart policy name ("no",
// "on-failure", "always"); an empty Name means "do not set one",
// letting the engine fall back to its own default.
type RestartPolicy struct {
	Name string
}

// CreateParams is the full set of engine-level container-creation
// parameters the topology projector produces for a single container.
type CreateParams struct {
	Name        string
	Image       string
	Labels      map[string]string
	Env         map[string]string
	Detach      bool
	NetworkMode string
	IPCMode     string
	PIDMode     string
	Hostname    string
	ShmSize     int64
	Runtime     string
	WorkingDir  string
	Entrypoint  []string
	Command     []string
	User        string
	GroupAdd    []string
	Sysctls     map[string]string
	ReadOnly    bool
	Privileged  bool
	CapAdd      []string
	CapDrop     []string
	CPUShares   int64
	MemoryBytes int64
	Ports       map[string]int
	Mounts      []Mount
	RestartPolicy *RestartPolicy
	HealthCheck   *HealthCheck
	Volumes       []string // docker-style "host:container" bind shorthand, e.g. docker.sock
}

// Container is the engine's view of a single container belonging to a
// workload, as returned by List/Get.
type Container struct {
	ID        string
	Name      string
	Status    ContainerStatus
	ExitCode  int
	CreatedAt string
	Labels    map[string]string
	HasRestartPolicy bool
}

// ExecResult is the outcome of a detached exec call.
type ExecResult struct {
	ExitCode int
	Output   []byte
}

// LogOptions controls a Logs call.
type LogOptions struct {
	Timestamps bool
	Tail       int // 0 means "all"
	Since      int64
	Follow     bool
}

// Engine is the capability interface a container backend must satisfy
// to back the topology projector and the lifecycle API.
type Engine interface {
	Name() string
	IsSupported(ctx context.Context) bool

	PullImage(ctx context.Context, image string) error

	CreateVolume(ctx context.Context, name string, labels map[string]string) error
	ListVolumes(ctx context.Context, labels map[string]string) ([]string, error)
	RemoveVolume(ctx context.Context, name string) error

	// CreateContainer is idempotent: if a container with params.Name
	// already exists it is returned as-is without reconciliation.
	CreateContainer(ctx context.Context, params CreateParams) (Container, error)
	// StartContainer starts a container in the "created" state.
	StartContainer(ctx context.Context, id string) error
	// RestartContainer restarts a container in the "exited"/"dead"
	// state (adopted, already-stopped containers never go through
	// StartContainer - the engine treats that as an error).
	RestartContainer(ctx context.Context, id string) error
	// UnpauseContainer resumes a container in the "paused" state.
	UnpauseContainer(ctx context.Context, id string) error
	WaitContainer(ctx context.Context, id string) (int, error)
	RemoveContainer(ctx context.Context, id string) error

	ListContainers(ctx context.Context, labels map[string]string) ([]Container, error)
	InspectContainer(ctx context.Context, id string) (Container, error)

	Logs(ctx context.Context, id string, opts LogOptions, w io.Writer) error
	Exec(ctx context.Context, id string, command []string, attach bool) (ExecResult, error)
}
