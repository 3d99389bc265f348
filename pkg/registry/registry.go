// Package registry owns the Process records of every owner.
//
// All lifecycle changes go through compare-and-swap updates serialized per
// process, so callers never observe a half-applied transition. The registry
// also hands out the execution slot that guarantees at most one run loop per
// process on this host.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/atsim/internal/logging"
	"github.com/aretw0/atsim/pkg/domain"
	"github.com/aretw0/atsim/pkg/engine"
	"github.com/aretw0/atsim/pkg/ports"
	"github.com/google/uuid"
)

// Registry manages processes on top of a ProcessStore.
type Registry struct {
	store  ports.ProcessStore
	models ports.ModelStore
	engine *engine.Engine

	locks  *keyedMutex
	locker ports.DistributedLocker

	slotsMu sync.Mutex
	slots   map[string]struct{}

	hooks  domain.LifecycleHooks
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures the Registry.
type Option func(*Registry)

// WithLocker enables distributed locking around every update.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(r *Registry) {
		r.locker = locker
	}
}

// WithLogger configures a logger for the Registry.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithHooks registers lifecycle callbacks fired after each committed transition.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Registry) {
		r.hooks = hooks
	}
}

// WithEngine sets the engine used to build initial snapshots.
func WithEngine(e *engine.Engine) Option {
	return func(r *Registry) {
		r.engine = e
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// WithIDGenerator overrides how process IDs are minted.
func WithIDGenerator(gen func() string) Option {
	return func(r *Registry) {
		r.newID = gen
	}
}

// New creates a Registry.
func New(store ports.ProcessStore, models ports.ModelStore, opts ...Option) *Registry {
	r := &Registry{
		store:  store,
		models: models,
		locks:  newKeyedMutex(),
		slots:  make(map[string]struct{}),
		logger: logging.NewNop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.engine == nil {
		r.engine = engine.New()
	}
	return r
}

// Models returns the model store processes are created from.
func (r *Registry) Models() ports.ModelStore {
	return r.models
}

// Create instantiates a model for an owner. The process starts CREATED at tick 0
// with the model's initial snapshot.
func (r *Registry) Create(ctx context.Context, ownerID, modelID int64, name string) (*domain.Process, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: process name is required", domain.ErrInvalidArgument)
	}

	model, err := r.models.GetModel(ctx, modelID)
	if err != nil {
		return nil, fmt.Errorf("model %d: %w", modelID, err)
	}
	if model.OwnerID != ownerID {
		return nil, fmt.Errorf("model %d: %w", modelID, domain.ErrForbidden)
	}

	snap, err := r.engine.Initial(model)
	if err != nil {
		return nil, fmt.Errorf("model %d: %w: %w", modelID, domain.ErrInvalidArgument, err)
	}

	p := domain.NewProcess(r.newID(), ownerID, modelID, name, r.now().UTC())
	p.Snapshot = snap

	err = r.withLock(ctx, p.ID, func(ctx context.Context) error {
		return r.store.Save(ctx, p)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save process: %w", err)
	}

	r.logger.Debug("Process created",
		"process_id", p.ID,
		"owner_id", ownerID,
		"model_id", modelID,
	)
	return p.Clone(), nil
}

// Load returns a process without checking ownership.
func (r *Registry) Load(ctx context.Context, processID string) (*domain.Process, error) {
	p, err := r.store.Load(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("process %s: %w", processID, err)
	}
	return p, nil
}

// Get returns the process if ownerID owns it.
func (r *Registry) Get(ctx context.Context, ownerID int64, processID string) (*domain.Process, error) {
	p, err := r.Load(ctx, processID)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != ownerID {
		return nil, fmt.Errorf("process %s: %w", processID, domain.ErrForbidden)
	}
	return p, nil
}

// List returns the owner's processes ordered by creation time.
func (r *Registry) List(ctx context.Context, ownerID int64) ([]*domain.Process, error) {
	list, err := r.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}
	return list, nil
}

// Transition moves a process from expected to next.
func (r *Registry) Transition(ctx context.Context, processID string, expected, next domain.ProcessState) (*domain.Process, error) {
	return r.Update(ctx, processID, expected, func(p *domain.Process) error {
		p.State = next
		return nil
	})
}

// Update is the compare-and-swap primitive behind every change to a process.
// mutate runs on a copy only if the stored state equals expected; a state change
// it makes must be a legal transition. Nothing is written when mutate fails.
func (r *Registry) Update(ctx context.Context, processID string, expected domain.ProcessState, mutate func(*domain.Process) error) (*domain.Process, error) {
	var (
		out  *domain.Process
		from domain.ProcessState
	)
	err := r.withLock(ctx, processID, func(ctx context.Context) error {
		cur, err := r.Load(ctx, processID)
		if err != nil {
			return err
		}
		if cur.State != expected {
			return fmt.Errorf("process %s is %s, expected %s: %w", processID, cur.State, expected, domain.ErrConflict)
		}
		from = cur.State

		next := cur.Clone()
		if err := mutate(next); err != nil {
			return err
		}
		if next.State != cur.State && !cur.State.CanTransition(next.State) {
			return fmt.Errorf("process %s cannot move from %s to %s: %w", processID, cur.State, next.State, domain.ErrConflict)
		}
		next.ID, next.OwnerID, next.CreatedAt = cur.ID, cur.OwnerID, cur.CreatedAt
		next.UpdatedAt = r.now().UTC()

		if err := r.store.Save(ctx, next); err != nil {
			return fmt.Errorf("failed to save process: %w", err)
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	if out.State != from {
		r.logger.Debug("Process transition",
			"process_id", processID,
			"from", from,
			"to", out.State,
			"tick", out.CurrentTick,
		)
		if r.hooks.OnTransition != nil {
			r.hooks.OnTransition(ctx, &domain.TransitionEvent{
				EventBase: domain.EventBase{
					Timestamp: out.UpdatedAt,
					Type:      domain.EventTransition,
					ProcessID: processID,
				},
				OwnerID: out.OwnerID,
				From:    from,
				To:      out.State,
				Tick:    out.CurrentTick,
			})
		}
	}
	return out.Clone(), nil
}

// AcquireSlot claims the execution slot of a process and marks it RUNNING in
// one step. The process must currently be in one of the from states. A slot
// that is already held fails with ErrConflict.
func (r *Registry) AcquireSlot(ctx context.Context, processID string, from ...domain.ProcessState) (*domain.Process, error) {
	r.slotsMu.Lock()
	if _, held := r.slots[processID]; held {
		r.slotsMu.Unlock()
		return nil, fmt.Errorf("process %s is already running: %w", processID, domain.ErrConflict)
	}
	r.slots[processID] = struct{}{}
	r.slotsMu.Unlock()

	cur, err := r.Load(ctx, processID)
	if err == nil && !slices.Contains(from, cur.State) {
		err = fmt.Errorf("process %s is %s: %w", processID, cur.State, domain.ErrConflict)
	}
	var p *domain.Process
	if err == nil {
		p, err = r.Transition(ctx, processID, cur.State, domain.ProcessRunning)
	}
	if err != nil {
		r.ReleaseSlot(processID)
		return nil, err
	}
	return p, nil
}

// ReleaseSlot frees the execution slot of a process.
func (r *Registry) ReleaseSlot(processID string) {
	r.slotsMu.Lock()
	defer r.slotsMu.Unlock()
	if _, held := r.slots[processID]; !held {
		r.logger.Warn("Released an execution slot that was not held", "process_id", processID)
		return
	}
	delete(r.slots, processID)
}

// HasSlot reports whether a run loop currently holds the process's slot.
func (r *Registry) HasSlot(processID string) bool {
	r.slotsMu.Lock()
	defer r.slotsMu.Unlock()
	_, held := r.slots[processID]
	return held
}

// Delete removes a process that is not running.
func (r *Registry) Delete(ctx context.Context, ownerID int64, processID string) error {
	return r.withLock(ctx, processID, func(ctx context.Context) error {
		p, err := r.Get(ctx, ownerID, processID)
		if err != nil {
			return err
		}
		if r.HasSlot(processID) || !(p.State == domain.ProcessCreated || p.State.Terminal()) {
			return fmt.Errorf("process %s is %s: %w", processID, p.State, domain.ErrConflict)
		}
		if err := r.store.Delete(ctx, processID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("failed to delete process: %w", err)
		}
		return nil
	})
}
