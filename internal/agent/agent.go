package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/edvin/swapd/internal/deployer"
	"github.com/edvin/swapd/internal/metrics"
	"github.com/edvin/swapd/internal/model"
	"github.com/edvin/swapd/internal/platform"
	"github.com/edvin/swapd/internal/record"
)

const (
	labelManagedBy = "swapd.managed-by"
	labelTarget    = "swapd.target"
	managedByValue = "swapd"
)

// Options describe what an Agent deploys.
type Options struct {
	Target string
	Image  string
	Tag    string
	Ports  []deployer.PortMapping
	// Policy is model.PolicyReclaim or model.PolicyReject and decides what
	// Lock does with a record left in Deploying.
	Policy string
}

type state int

const (
	stateCreated state = iota
	stateLocked
	stateDeployed
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateCreated:
		return "created"
	case stateLocked:
		return "locked"
	case stateDeployed:
		return "deployed"
	default:
		return "failed"
	}
}

// Agent carries one deployment attempt through Created -> Locked -> Deployed.
// It is not reusable; every attempt builds a new Agent.
type Agent struct {
	logger   zerolog.Logger
	deployer deployer.Deployer
	store    record.Store
	opts     Options

	container *deployer.Container
	previous  *deployer.Container
	state     state
}

// New pulls the image and creates, but does not start, the new container.
// Nothing is written to the record store, so a failure here is safe to retry.
func New(ctx context.Context, logger zerolog.Logger, d deployer.Deployer, store record.Store, opts Options) (*Agent, error) {
	if opts.Policy == "" {
		opts.Policy = model.PolicyReclaim
	}
	ref, err := deployer.ParseImageRef(opts.Image, opts.Tag)
	if err != nil {
		return nil, err
	}
	logger = logger.With().Str("component", "agent").Logger()

	if err := d.Ping(ctx); err != nil {
		return nil, err
	}
	logger.Debug().Msg("connected to container runtime")

	logger.Debug().Str("image", ref.String()).Msg("pulling image")
	pullImage, pullTag := ref.PullArgs()
	err = d.PullImage(ctx, pullImage, pullTag, func(p deployer.PullProgress) {
		logger.Trace().
			Str("layer", p.ID).
			Str("status", p.Status).
			Int64("current", p.Current).
			Int64("total", p.Total).
			Msg("pull progress")
	})
	if err != nil {
		return nil, err
	}

	name := platform.ContainerName(ref.Name)
	logger.Debug().Str("container_name", name).Msg("creating container")

	res, err := d.CreateContainer(ctx, deployer.ContainerOpts{
		Name:  name,
		Image: ref.String(),
		Ports: opts.Ports,
		Labels: map[string]string{
			labelManagedBy: managedByValue,
			labelTarget:    opts.Target,
		},
	})
	if err != nil {
		return nil, err
	}

	return &Agent{
		logger:    logger.With().Str("container_id", res.ContainerID).Logger(),
		deployer:  d,
		store:     store,
		opts:      opts,
		container: deployer.NewContainer(d, res.ContainerID, res.Name),
		state:     stateCreated,
	}, nil
}

// Container returns the handle of the container this agent deploys.
func (a *Agent) Container() *deployer.Container {
	return a.container
}

// Previous returns the container scheduled for retirement, or nil.
func (a *Agent) Previous() *deployer.Container {
	return a.previous
}

// Lock consults the record to find the container to retire and then claims
// the slot by writing {new container, Deploying}.
func (a *Agent) Lock(ctx context.Context) error {
	if a.state != stateCreated {
		return fmt.Errorf("lock: agent is %s", a.state)
	}
	a.logger.Debug().Msg("locking deployment record")

	rec, err := a.store.Read(ctx)
	switch {
	case errors.Is(err, record.ErrNotFound):
		a.logger.Debug().Msg("no previous deployment")
	case err != nil:
		a.state = stateFailed
		return fmt.Errorf("lock: %w", err)
	case rec.Status == model.StatusDeploying:
		if a.opts.Policy == model.PolicyReject {
			a.state = stateFailed
			return fmt.Errorf("lock: container %s: %w", rec.ContainerID, ErrAlreadyDeploying)
		}
		metrics.ObserveAbandoned(a.opts.Target)
		a.logger.Warn().
			Str("previous_container_id", rec.ContainerID).
			Msg("previously abandoned deployment found, removing and redeploying")
		a.previous = deployer.NewContainer(a.deployer, rec.ContainerID, "")
	default:
		a.logger.Debug().Str("previous_container_id", rec.ContainerID).Msg("previous deployment found")
		a.previous = deployer.NewContainer(a.deployer, rec.ContainerID, "")
	}

	if err := a.write(ctx, model.StatusDeploying); err != nil {
		a.state = stateFailed
		a.previous = nil
		return fmt.Errorf("lock: %w", err)
	}

	a.state = stateLocked
	return nil
}

// Deploy retires the previous container and hands the start of the new one to
// a detached task. A nil error means the deployment was accepted; the
// returned Completion reports whether it reached Running.
//
// Cancellation of ctx is ignored: once the record is cleared the previous
// container must be removed, or nothing would name it anymore.
func (a *Agent) Deploy(ctx context.Context) (*Completion, error) {
	if a.state != stateLocked {
		return nil, ErrNotLocked
	}
	// Whatever happens next, this agent is spent.
	a.state = stateFailed
	ctx = context.WithoutCancel(ctx)

	if err := a.verifyLocked(ctx); err != nil {
		return nil, err
	}

	if prev := a.previous; prev != nil {
		if err := a.store.Clear(ctx); err != nil {
			return nil, fmt.Errorf("deploy: clear record: %w", err)
		}
		metrics.SetRecordStatus(a.opts.Target, "")

		err := prev.Remove(ctx, deployer.RemoveOpts{Force: true, KeepVolumes: false})
		switch {
		case errors.Is(err, deployer.ErrContainerNotFound):
			metrics.ObserveRemoval(a.opts.Target, metrics.ResultAlreadyGone)
			a.logger.Debug().Str("previous_container_id", prev.ID).Msg("previous container already gone")
		case err != nil:
			return nil, fmt.Errorf("deploy: %w", err)
		default:
			metrics.ObserveRemoval(a.opts.Target, metrics.ResultRemoved)
			a.logger.Debug().Str("previous_container_id", prev.ID).Msg("removed previous container")
		}
	}

	a.state = stateDeployed
	c := newCompletion()
	go c.run(func() error {
		return a.start(ctx)
	})
	return c, nil
}

// Abort removes the new container after a failed Lock or Deploy so it is not
// leaked. It refuses while the agent is locked or deployed.
func (a *Agent) Abort(ctx context.Context) error {
	if a.state == stateLocked || a.state == stateDeployed {
		return fmt.Errorf("abort: agent is %s", a.state)
	}
	err := a.container.Remove(ctx, deployer.RemoveOpts{Force: true})
	if err != nil && !errors.Is(err, deployer.ErrContainerNotFound) {
		return fmt.Errorf("abort: %w", err)
	}
	a.state = stateFailed
	a.logger.Debug().Msg("removed unused container")
	return nil
}

// verifyLocked checks that the record still holds the claim Lock wrote.
func (a *Agent) verifyLocked(ctx context.Context) error {
	rec, err := a.store.Read(ctx)
	if errors.Is(err, record.ErrNotFound) {
		return fmt.Errorf("deploy: record for %s vanished: %w", a.container.ID, ErrInvariantViolation)
	}
	if err != nil {
		return fmt.Errorf("deploy: %w", err)
	}
	if rec.ContainerID != a.container.ID || rec.Status != model.StatusDeploying {
		return fmt.Errorf("deploy: record holds {%s, %s}, want {%s, %s}: %w",
			rec.ContainerID, rec.Status, a.container.ID, model.StatusDeploying, ErrInvariantViolation)
	}
	return nil
}

func (a *Agent) start(ctx context.Context) error {
	if err := a.container.Start(ctx); err != nil {
		return err
	}
	a.logger.Debug().Msg("started container")

	if err := a.write(ctx, model.StatusRunning); err != nil {
		return err
	}
	a.logger.Info().Msg("deployment running")
	return nil
}

func (a *Agent) write(ctx context.Context, status model.DeploymentStatus) error {
	a.logger.Debug().Str("status", string(status)).Msg("writing deployment record")
	err := a.store.Write(ctx, model.DeploymentRecord{
		ContainerID: a.container.ID,
		Status:      status,
	})
	if err != nil {
		return err
	}
	metrics.SetRecordStatus(a.opts.Target, status)
	return nil
}

// Completion is the detached start-and-mark-running task of a deployment.
type Completion struct {
	done chan struct{}
	err  error
}

func newCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

func (c *Completion) run(fn func() error) {
	c.err = fn()
	close(c.done)
}

// Done is closed once the task has finished.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Err returns the task's error. It is only meaningful after Done is closed.
func (c *Completion) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Wait blocks until the task finishes or ctx ends.
func (c *Completion) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
