// Package plan holds the declarative WorkloadPlan data model and the
// validation/materialization logic of the Workload Planner (spec.md
// §4.C). Types mirror original_source's deployer/__types__.py.
package plan

// ContainerProfile selects whether a container runs to completion
// before the workload's services start (Init) or is the long-lived
// service itself (Run).
type ContainerProfile string

const (
	ProfileRun  ContainerProfile = "Run"
	ProfileInit ContainerProfile = "Init"
)

// RestartPolicy controls engine-level restart behavior.
type RestartPolicy string

const (
	RestartAlways    RestartPolicy = "Always"
	RestartOnFailure RestartPolicy = "OnFailure"
	RestartNever     RestartPolicy = "Never"
)

type Capabilities struct {
	Add  []string
	Drop []string
}

type Security struct {
	RunAsUser      *int64
	RunAsGroup     *int64
	ReadonlyRootfs bool
	Privileged     bool
	Capabilities   *Capabilities
}

type Execution struct {
	Security
	WorkingDir string
	Command    []string
	Args       []string
}

// Resource is the tagged-union representation of a single resource
// entry (spec.md §9's "loose inline-typed resources map" design note):
// CPU and Memory are well-known keys, anything else is a vendor device
// key whose value becomes an env var per the configurable
// resource_device_env_mapping table.
type Resource struct {
	// Kind is "cpu", "memory", or a vendor resource key such as
	// "nvidia.com/gpu".
	Kind string
	// Value holds the raw wire value: float64 for cpu, and either an
	// int64 (bytes) or string (engine-native size, e.g. "2Gi") for
	// memory and device keys.
	Value any
}

// Resources is the wire-form free-form resource map, decoded into
// Resource entries by Container.ParsedResources.
type Resources map[string]any

type Env struct {
	Name  string
	Value string
}

// File describes an ephemeral in-container file. If Content is nil,
// the path is bind-mounted from the host instead of materialized.
type File struct {
	Path    string
	Mode    int64
	Content *string
}

type MountMode string

const (
	MountRWO MountMode = "ReadWriteOnce"
	MountROX MountMode = "ReadOnlyMany"
	MountRWX MountMode = "ReadWriteMany"
)

// Mount describes a bind or named-volume mount. If Volume is nil, Path
// is bind-mounted from the host.
type Mount struct {
	Path    string
	Mode    MountMode
	Volume  *string
	Subpath string
}

type PortProtocol string

const (
	PortTCP  PortProtocol = "TCP"
	PortUDP  PortProtocol = "UDP"
	PortSCTP PortProtocol = "SCTP"
)

type Port struct {
	Internal int
	External *int
	Protocol PortProtocol
}

type CheckExecution struct {
	Command []string
}

type CheckTCP struct {
	Port int
}

type CheckHTTP struct {
	Port    int
	Headers map[string]string
	Path    string
}

// Check is a single container health check. Exactly one of Execution,
// TCP, HTTP, or HTTPS should be set; the projector only honors the
// first entry in Container.Checks.
type Check struct {
	Delay     int
	Interval  int
	Timeout   int
	Retries   int
	Teardown  bool
	Execution *CheckExecution
	TCP       *CheckTCP
	HTTP      *CheckHTTP
	HTTPS     *CheckHTTP
}

// Container is a single container in a WorkloadPlan.
type Container struct {
	Image         string
	Name          string
	Profile       ContainerProfile
	RestartPolicy *RestartPolicy

	Execution *Execution
	Envs      []Env
	Resources Resources
	Files     []File
	Mounts    []Mount
	Ports     []Port
	Checks    []Check
}

type Sysctl struct {
	Name  string
	Value string
}

// WorkloadPlan is the immutable, declarative description of a
// workload. See spec.md §3 for invariants.
type WorkloadPlan struct {
	Name   string
	Labels map[string]string

	HostNetwork bool
	PIDShared   bool
	// HostIPC resolves Open Question 4 in DESIGN.md: treated as an
	// optional bool parallel to PIDShared.
	HostIPC bool
	ShmSize any // int64 bytes or engine-native size string

	RunAsUser  *int64
	RunAsGroup *int64
	FSGroup    *int64
	Sysctls    []Sysctl

	Containers []Container
}
