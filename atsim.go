package atsim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/atsim/internal/logging"
	"github.com/aretw0/atsim/pkg/adapters/memory"
	"github.com/aretw0/atsim/pkg/domain"
	"github.com/aretw0/atsim/pkg/engine"
	"github.com/aretw0/atsim/pkg/observability"
	"github.com/aretw0/atsim/pkg/ports"
	"github.com/aretw0/atsim/pkg/registry"
	"github.com/aretw0/atsim/pkg/runner"
	"github.com/aretw0/atsim/pkg/stream"
	"go.uber.org/multierr"
)

// Service is the high-level entry point of the library. It owns a registry,
// a run controller and a stream hub wired to each other.
type Service struct {
	registry   *registry.Registry
	controller *runner.Controller
	hub        *stream.Hub
	metrics    *observability.Metrics
	logger     *slog.Logger

	store         ports.ProcessStore
	locker        ports.DistributedLocker
	hooks         domain.LifecycleHooks
	maxRunning    int
	streamBuffer  int
	scriptTimeout time.Duration
}

// Option defines a functional option for configuring the Service.
type Option func(*Service)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithProcessStore sets where processes are persisted. Defaults to memory.
func WithProcessStore(store ports.ProcessStore) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithLocker guards registry writes with a distributed lock, for deployments
// where several replicas share one ProcessStore.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(s *Service) {
		s.locker = locker
	}
}

// WithHooks registers lifecycle callbacks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Service) {
		s.hooks = hooks
	}
}

// WithMetrics records lifecycle activity and stream drops into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithMaxRunning caps concurrently active run loops. Zero means unlimited.
func WithMaxRunning(n int) Option {
	return func(s *Service) {
		s.maxRunning = n
	}
}

// WithStreamBuffer sets how many snapshots may queue up per subscriber.
func WithStreamBuffer(n int) Option {
	return func(s *Service) {
		s.streamBuffer = n
	}
}

// WithScriptTimeout bounds the wall-clock time of a single tick.
func WithScriptTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.scriptTimeout = d
	}
}

// New wires a Service around the given model catalogue.
func New(models ports.ModelStore, opts ...Option) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.store == nil {
		s.store = memory.NewStore()
	}

	hooks := s.hooks
	if s.metrics != nil {
		hooks = domain.ComposeHooks(s.hooks, s.metrics.Hooks())
	}

	var engineOpts []engine.Option
	if s.scriptTimeout > 0 {
		engineOpts = append(engineOpts, engine.WithScriptTimeout(s.scriptTimeout))
	}
	eng := engine.New(engineOpts...)

	regOpts := []registry.Option{
		registry.WithLogger(s.logger),
		registry.WithHooks(hooks),
		registry.WithEngine(eng),
	}
	if s.locker != nil {
		regOpts = append(regOpts, registry.WithLocker(s.locker))
	}
	s.registry = registry.New(s.store, models, regOpts...)

	hubOpts := []stream.Option{
		stream.WithLogger(s.logger),
		stream.WithBuffer(s.streamBuffer),
	}
	if s.metrics != nil {
		hubOpts = append(hubOpts, stream.WithDropHandler(s.metrics.OnDrop))
	}
	s.hub = stream.NewHub(s.registry, hubOpts...)

	s.controller = runner.New(s.registry,
		runner.WithLogger(s.logger),
		runner.WithEngine(eng),
		runner.WithPublisher(s.hub),
		runner.WithHooks(hooks),
		runner.WithMaxRunning(s.maxRunning),
	)
	return s
}

// RunRequest describes one run call.
type RunRequest struct {
	Ticks int64
	Delay time.Duration
	// Wait blocks until the run completes, pauses or is killed.
	Wait bool
}

// Create registers a new process in the CREATED state.
func (s *Service) Create(ctx context.Context, ownerID, modelID int64, name string) (*domain.Process, error) {
	return s.registry.Create(ctx, ownerID, modelID, name)
}

// List returns the owner's processes ordered by creation time.
func (s *Service) List(ctx context.Context, ownerID int64) ([]*domain.Process, error) {
	return s.registry.List(ctx, ownerID)
}

// Get returns one process owned by ownerID.
func (s *Service) Get(ctx context.Context, ownerID int64, processID string) (*domain.Process, error) {
	return s.registry.Get(ctx, ownerID, processID)
}

// Run starts or resumes a process.
func (s *Service) Run(ctx context.Context, ownerID int64, processID string, req RunRequest) (*domain.Process, error) {
	if req.Wait {
		return s.controller.Run(ctx, ownerID, processID, req.Ticks, req.Delay)
	}
	return s.controller.Start(ctx, ownerID, processID, req.Ticks, req.Delay)
}

// Pause suspends a running process at the next tick boundary.
func (s *Service) Pause(ctx context.Context, ownerID int64, processID string) (*domain.Process, error) {
	return s.controller.Pause(ctx, ownerID, processID)
}

// Kill stops a process for good.
func (s *Service) Kill(ctx context.Context, ownerID int64, processID string) (*domain.Process, error) {
	return s.controller.Kill(ctx, ownerID, processID)
}

// Delete removes a process that is not running and disconnects its observer.
func (s *Service) Delete(ctx context.Context, ownerID int64, processID string) error {
	if err := s.registry.Delete(ctx, ownerID, processID); err != nil {
		return err
	}
	s.hub.Unsubscribe(processID, ownerID)
	return nil
}

// Subscribe attaches a live observer to a process.
func (s *Service) Subscribe(ctx context.Context, ownerID int64, processID string, t ports.Transport) (*stream.Channel, error) {
	return s.hub.Subscribe(ctx, processID, ownerID, t)
}

// Unsubscribe detaches the owner's observer from a process.
func (s *Service) Unsubscribe(ownerID int64, processID string) bool {
	return s.hub.Unsubscribe(processID, ownerID)
}

// Models returns the model catalogue.
func (s *Service) Models() ports.ModelStore {
	return s.registry.Models()
}

// Metrics returns the metrics the service records into, or nil.
func (s *Service) Metrics() *observability.Metrics {
	return s.metrics
}

// Active returns the number of live run loops.
func (s *Service) Active() int {
	return s.controller.Active()
}

// Shutdown pauses every running process and disconnects all observers.
func (s *Service) Shutdown(ctx context.Context) error {
	var errs error
	if err := s.controller.Shutdown(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("stopping runs: %w", err))
	}
	if err := s.hub.Close(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("closing streams: %w", err))
	}
	if errs != nil {
		s.logger.Warn("Service stopped with errors", "err", errs)
		return errs
	}
	s.logger.Info("Service stopped")
	return nil
}
