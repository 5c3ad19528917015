package deployer

import "context"

// Container is a non-owning handle to a container in the runtime. The runtime
// stays the source of truth for whether the container still exists.
type Container struct {
	ID   string
	Name string

	d Deployer
}

// NewContainer returns a handle for id operated through d.
func NewContainer(d Deployer, id, name string) *Container {
	return &Container{ID: id, Name: name, d: d}
}

// Start starts the container.
func (c *Container) Start(ctx context.Context) error {
	return c.d.StartContainer(ctx, c.ID)
}

// Remove removes the container with the given options.
func (c *Container) Remove(ctx context.Context, opts RemoveOpts) error {
	return c.d.RemoveContainer(ctx, c.ID, opts)
}

// Inspect returns the runtime's view of the container.
func (c *Container) Inspect(ctx context.Context) (*ContainerStatus, error) {
	return c.d.InspectContainer(ctx, c.ID)
}
