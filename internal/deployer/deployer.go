package deployer

import (
	"context"
)

// PortMapping describes a host-to-container port binding.
// Host 0 means "let the runtime pick an ephemeral port".
type PortMapping struct {
	Host      int `json:"host"`
	Container int `json:"container"`
}

// ContainerOpts holds the options for creating a container.
type ContainerOpts struct {
	Name   string
	Image  string
	Ports  []PortMapping
	Labels map[string]string
}

// CreateResult holds the result of creating a container.
type CreateResult struct {
	ContainerID string
	Name        string
}

// RemoveOpts controls how a container is removed.
type RemoveOpts struct {
	Force       bool
	KeepVolumes bool
}

// PullProgress is one event of an image pull stream.
type PullProgress struct {
	ID      string
	Status  string
	Current int64
	Total   int64
}

// ProgressFunc receives pull progress events in stream order.
type ProgressFunc func(PullProgress)

// ContainerStatus holds the status of a container.
type ContainerStatus struct {
	ID      string
	Name    string
	State   string // running, exited, created, etc.
	Running bool
}

// Deployer is the capability interface over the container engine. It holds no
// deployment logic and never retries.
type Deployer interface {
	Ping(ctx context.Context) error
	PullImage(ctx context.Context, image, tag string, progress ProgressFunc) error
	CreateContainer(ctx context.Context, opts ContainerOpts) (*CreateResult, error)
	StartContainer(ctx context.Context, containerID string) error
	RemoveContainer(ctx context.Context, containerID string, opts RemoveOpts) error
	InspectContainer(ctx context.Context, containerID string) (*ContainerStatus, error)
}
