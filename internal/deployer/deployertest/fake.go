// Package deployertest provides an in-memory [deployer.Deployer] for tests.
package deployertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/edvin/swapd/internal/deployer"
)

// FakeContainer is the fake runtime's view of one container.
type FakeContainer struct {
	ID      string
	Name    string
	Image   string
	Ports   []deployer.PortMapping
	Labels  map[string]string
	Running bool
}

// Fake is a thread-safe in-memory container runtime. Container ids are
// assigned sequentially as c1, c2, ... Error fields are returned by the
// matching operation when set.
type Fake struct {
	mu         sync.Mutex
	seq        int
	containers map[string]*FakeContainer
	pulled     []string
	calls      []string

	PingErr   error
	PullErr   error
	CreateErr error
	StartErr  error
	// RemoveErr is keyed by container id.
	RemoveErr map[string]error
	// PullEvents are delivered to the progress callback on every pull.
	PullEvents []deployer.PullProgress
	// StartGate, when non-nil, blocks StartContainer until it is closed.
	StartGate chan struct{}
}

// NewFake returns an empty runtime.
func NewFake() *Fake {
	return &Fake{
		containers: make(map[string]*FakeContainer),
		RemoveErr:  make(map[string]error),
	}
}

var _ deployer.Deployer = (*Fake)(nil)

func (f *Fake) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *Fake) Ping(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ping")
	if f.PingErr != nil {
		return fmt.Errorf("%w: %w", deployer.ErrRuntimeUnreachable, f.PingErr)
	}
	return nil
}

func (f *Fake) PullImage(_ context.Context, image, tag string, progress deployer.ProgressFunc) error {
	ref := image
	if tag != "" {
		ref = image + ":" + tag
	}
	f.mu.Lock()
	f.record("pull " + ref)
	if f.PullErr != nil {
		f.mu.Unlock()
		return fmt.Errorf("%w: %w", deployer.ErrPullFailed, f.PullErr)
	}
	f.pulled = append(f.pulled, ref)
	events := append([]deployer.PullProgress(nil), f.PullEvents...)
	f.mu.Unlock()

	if progress != nil {
		for _, ev := range events {
			progress(ev)
		}
	}
	return nil
}

func (f *Fake) CreateContainer(_ context.Context, opts deployer.ContainerOpts) (*deployer.CreateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create " + opts.Name)
	if f.CreateErr != nil {
		return nil, fmt.Errorf("%w: %w", deployer.ErrCreateFailed, f.CreateErr)
	}
	for _, c := range f.containers {
		if c.Name == opts.Name {
			return nil, fmt.Errorf("%w: name %s already in use", deployer.ErrCreateFailed, opts.Name)
		}
	}
	f.seq++
	id := fmt.Sprintf("c%d", f.seq)
	f.containers[id] = &FakeContainer{
		ID:     id,
		Name:   opts.Name,
		Image:  opts.Image,
		Ports:  opts.Ports,
		Labels: opts.Labels,
	}
	return &deployer.CreateResult{ContainerID: id, Name: opts.Name}, nil
}

func (f *Fake) StartContainer(_ context.Context, containerID string) error {
	f.mu.Lock()
	gate := f.StartGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("start " + containerID)
	if f.StartErr != nil {
		return fmt.Errorf("%w: %w", deployer.ErrStartFailed, f.StartErr)
	}
	c, ok := f.containers[containerID]
	if !ok {
		return fmt.Errorf("%w: %w: %s", deployer.ErrStartFailed, deployer.ErrContainerNotFound, containerID)
	}
	if c.Running {
		return fmt.Errorf("%w: container %s already running", deployer.ErrStartFailed, containerID)
	}
	c.Running = true
	return nil
}

func (f *Fake) RemoveContainer(_ context.Context, containerID string, opts deployer.RemoveOpts) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("remove %s force=%t keep_volumes=%t", containerID, opts.Force, opts.KeepVolumes))
	if err := f.RemoveErr[containerID]; err != nil {
		return fmt.Errorf("%w: %w", deployer.ErrRemoveFailed, err)
	}
	c, ok := f.containers[containerID]
	if !ok {
		return fmt.Errorf("%w: %w: %s", deployer.ErrRemoveFailed, deployer.ErrContainerNotFound, containerID)
	}
	if c.Running && !opts.Force {
		return fmt.Errorf("%w: container %s is running", deployer.ErrRemoveFailed, containerID)
	}
	delete(f.containers, containerID)
	return nil
}

func (f *Fake) InspectContainer(_ context.Context, containerID string) (*deployer.ContainerStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("inspect " + containerID)
	c, ok := f.containers[containerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", deployer.ErrContainerNotFound, containerID)
	}
	state := "created"
	if c.Running {
		state = "running"
	}
	return &deployer.ContainerStatus{ID: c.ID, Name: c.Name, State: state, Running: c.Running}, nil
}

// Seed adds a container directly, as if created by an earlier process.
func (f *Fake) Seed(id, name string, running bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.containers[id] = &FakeContainer{ID: id, Name: name, Running: running}
}

// Container returns a copy of the container with id, if it exists.
func (f *Fake) Container(id string) (FakeContainer, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[id]
	if !ok {
		return FakeContainer{}, false
	}
	return *c, true
}

// Exists reports whether a container with id exists.
func (f *Fake) Exists(id string) bool {
	_, ok := f.Container(id)
	return ok
}

// Calls returns the operations performed so far, excluding inspections.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Pulled returns the image references pulled so far.
func (f *Fake) Pulled() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.pulled...)
}

// SetPingErr changes PingErr while the fake may be in use.
func (f *Fake) SetPingErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PingErr = err
}

// SetStartGate changes StartGate while the fake may be in use.
func (f *Fake) SetStartGate(gate chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.StartGate = gate
}
