package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/swapd/internal/deployer"
	"github.com/edvin/swapd/internal/metrics"
	"github.com/edvin/swapd/internal/model"
	"github.com/edvin/swapd/internal/platform"
	"github.com/edvin/swapd/internal/record"
)

// Service admits deploy requests for one target and runs each through a
// fresh Agent. It remembers the most recent attempt for status reporting.
type Service struct {
	root     zerolog.Logger
	logger   zerolog.Logger
	deployer deployer.Deployer
	store    record.Store
	opts     Options
	gate     *Gate

	mu   sync.Mutex
	last *model.Attempt

	wg sync.WaitGroup
}

func NewService(logger zerolog.Logger, d deployer.Deployer, store record.Store, opts Options) *Service {
	if opts.Policy == "" {
		opts.Policy = model.PolicyReclaim
	}
	return &Service{
		root:     logger,
		logger:   logger.With().Str("component", "deploy-service").Logger(),
		deployer: d,
		store:    store,
		opts:     opts,
		gate:     NewGate(),
	}
}

// imageRef is the reference the attempt deploys. An unparsable image is
// reported as given; New fails on it.
func (s *Service) imageRef() string {
	ref, err := deployer.ParseImageRef(s.opts.Image, s.opts.Tag)
	if err != nil {
		return s.opts.Image
	}
	return ref.String()
}

// Target returns the deployment target this service manages.
func (s *Service) Target() string {
	return s.opts.Target
}

// Deploy runs New, Lock and Deploy for a new container. It returns once the
// deployment is accepted; the container start continues in the background
// and its outcome lands in the last attempt.
func (s *Service) Deploy(ctx context.Context) (*model.Attempt, error) {
	release, err := s.gate.Acquire(s.opts.Target)
	if err != nil {
		metrics.ObserveAttempt(s.opts.Target, metrics.ResultBusy)
		s.logger.Warn().Msg("deploy rejected, another deployment is in progress")
		return nil, err
	}

	began := time.Now()
	attempt := &model.Attempt{
		ID:        platform.NewID(),
		Target:    s.opts.Target,
		Image:     s.imageRef(),
		State:     model.AttemptAccepted,
		StartedAt: began.UTC(),
	}
	logger := s.logger.With().Str("attempt_id", attempt.ID).Logger()
	logger.Info().Str("image", attempt.Image).Msg("deploy requested")

	completion, err := s.run(ctx, logger, attempt)
	if err != nil {
		release()
		s.fail(attempt, err)
		metrics.ObserveAttempt(s.opts.Target, metrics.ResultFailed)
		logger.Error().Err(err).Msg("deploy failed")
		return nil, err
	}

	metrics.ObserveAttempt(s.opts.Target, metrics.ResultAccepted)
	metrics.ObserveDuration(s.opts.Target, metrics.PhaseAccept, time.Since(began).Seconds())
	s.setLast(attempt)
	accepted := *attempt

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer release()
		<-completion.Done()
		s.finish(logger, attempt, completion.Err(), began)
	}()

	return &accepted, nil
}

func (s *Service) run(ctx context.Context, logger zerolog.Logger, attempt *model.Attempt) (*Completion, error) {
	a, err := New(ctx, s.root.With().Str("attempt_id", attempt.ID).Logger(), s.deployer, s.store, s.opts)
	if err != nil {
		return nil, err
	}
	attempt.ContainerID = a.Container().ID
	attempt.ContainerName = a.Container().Name

	// From Lock on the record is being rewritten; a client going away must
	// not stop the swap halfway.
	ctx = context.WithoutCancel(ctx)
	abort := func() {
		if err := a.Abort(ctx); err != nil {
			logger.Warn().Err(err).Str("container_id", attempt.ContainerID).Msg("failed to remove unused container")
		}
	}

	if err := a.Lock(ctx); err != nil {
		abort()
		return nil, err
	}
	if prev := a.Previous(); prev != nil {
		attempt.Previous = prev.ID
	}

	completion, err := a.Deploy(ctx)
	if err != nil {
		abort()
		return nil, err
	}
	return completion, nil
}

func (s *Service) finish(logger zerolog.Logger, attempt *model.Attempt, err error, began time.Time) {
	now := time.Now().UTC()

	s.mu.Lock()
	attempt.FinishedAt = &now
	if err != nil {
		attempt.State = model.AttemptFailed
		attempt.Error = err.Error()
	} else {
		attempt.State = model.AttemptRunning
	}
	s.mu.Unlock()

	metrics.ObserveDuration(s.opts.Target, metrics.PhaseComplete, time.Since(began).Seconds())
	if err != nil {
		metrics.ObserveCompletion(s.opts.Target, metrics.ResultFailed)
		logger.Error().Err(err).Str("container_id", attempt.ContainerID).Msg("deployment did not reach running")
		return
	}
	metrics.ObserveCompletion(s.opts.Target, metrics.ResultRunning)
	logger.Info().Str("container_id", attempt.ContainerID).Msg("deployment completed")
}

func (s *Service) fail(attempt *model.Attempt, err error) {
	now := time.Now().UTC()
	attempt.State = model.AttemptFailed
	attempt.Error = err.Error()
	attempt.FinishedAt = &now
	s.setLast(attempt)
}

func (s *Service) setLast(attempt *model.Attempt) {
	s.mu.Lock()
	s.last = attempt
	s.mu.Unlock()
}

// LastAttempt returns a copy of the most recent attempt, or nil.
func (s *Service) LastAttempt() *model.Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	cp := *s.last
	if s.last.FinishedAt != nil {
		t := *s.last.FinishedAt
		cp.FinishedAt = &t
	}
	return &cp
}

// Status reports the stored record and the last attempt. A missing record is
// not an error.
func (s *Service) Status(ctx context.Context) (*model.StatusReport, error) {
	rec, err := s.store.Read(ctx)
	if err != nil && !errors.Is(err, record.ErrNotFound) {
		return nil, fmt.Errorf("read record: %w", err)
	}
	return &model.StatusReport{Record: rec, LastAttempt: s.LastAttempt()}, nil
}

// pinger is implemented by stores backed by a database connection.
type pinger interface {
	Ping(ctx context.Context) error
}

// Ready checks that the container runtime answers and the record is readable.
func (s *Service) Ready(ctx context.Context) map[string]error {
	checks := map[string]error{
		"runtime": s.deployer.Ping(ctx),
		"record":  nil,
	}
	if p, ok := s.store.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			checks["record"] = fmt.Errorf("ping record store: %w", err)
			return checks
		}
	}
	if _, err := s.store.Read(ctx); err != nil && !errors.Is(err, record.ErrNotFound) {
		checks["record"] = err
	}
	return checks
}

// CheckRecord inspects the record at startup, warns about a deployment that
// never completed and compares the record with what the runtime reports.
func (s *Service) CheckRecord(ctx context.Context) error {
	rec, err := s.store.Read(ctx)
	if errors.Is(err, record.ErrNotFound) {
		metrics.SetRecordStatus(s.opts.Target, "")
		s.logger.Info().Msg("no deployment recorded yet")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read record: %w", err)
	}

	metrics.SetRecordStatus(s.opts.Target, rec.Status)
	logger := s.logger.With().Str("container_id", rec.ContainerID).Logger()

	st, err := deployer.NewContainer(s.deployer, rec.ContainerID, "").Inspect(ctx)
	switch {
	case errors.Is(err, deployer.ErrContainerNotFound):
		logger.Warn().Msg("recorded container no longer exists")
	case err != nil:
		logger.Warn().Err(err).Msg("failed to inspect recorded container")
	case rec.Status == model.StatusRunning && !st.Running:
		logger.Warn().Str("state", st.State).Msg("recorded container is not running")
	}

	if rec.Status == model.StatusDeploying {
		logger.Warn().
			Str("policy", s.opts.Policy).
			Msg("record shows an unfinished deployment, the next deploy will resolve it")
		return nil
	}
	logger.Info().Msg("current deployment recorded as running")
	return nil
}

// Wait blocks until all background start tasks have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}
