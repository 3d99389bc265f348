package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/atsim/internal/logging"
	"github.com/aretw0/atsim/pkg/domain"
	"github.com/aretw0/atsim/pkg/engine"
	"github.com/aretw0/atsim/pkg/registry"
	"golang.org/x/sync/semaphore"
)

// killRetries bounds how often Kill retries a direct transition that raced
// with another state change.
const killRetries = 5

// Controller runs, pauses and kills process loops.
type Controller struct {
	reg       *registry.Registry
	engine    *engine.Engine
	publisher Publisher
	hooks     domain.LifecycleHooks
	logger    *slog.Logger

	maxRunning int
	limiter    *semaphore.Weighted

	mu      sync.Mutex
	loops   map[string]*loop
	closing atomic.Bool
	wg      sync.WaitGroup
}

// New creates a Controller on top of a registry.
func New(reg *registry.Registry, opts ...Option) *Controller {
	c := &Controller{
		reg:       reg,
		publisher: PublisherFunc(func(string, *domain.TickSnapshot) {}),
		logger:    logging.NewNop(),
		loops:     make(map[string]*loop),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.engine == nil {
		c.engine = engine.New()
	}
	if c.maxRunning > 0 {
		c.limiter = semaphore.NewWeighted(int64(c.maxRunning))
	}
	return c
}

// Active returns the number of live loops, including suspended ones.
func (c *Controller) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.loops)
}

// Start begins or resumes a run of up to ticks ticks and returns as soon as
// the process is RUNNING.
func (c *Controller) Start(ctx context.Context, ownerID int64, processID string, ticks int64, delay time.Duration) (*domain.Process, error) {
	p, _, err := c.start(ctx, ownerID, processID, ticks, delay)
	return p, err
}

// Run is Start followed by waiting until the loop completes, pauses or is killed.
func (c *Controller) Run(ctx context.Context, ownerID int64, processID string, ticks int64, delay time.Duration) (*domain.Process, error) {
	_, seg, err := c.start(ctx, ownerID, processID, ticks, delay)
	if err != nil {
		return nil, err
	}
	select {
	case <-seg:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return c.reg.Load(ctx, processID)
}

func (c *Controller) start(ctx context.Context, ownerID int64, processID string, ticks int64, delay time.Duration) (*domain.Process, chan struct{}, error) {
	if ticks <= 0 {
		return nil, nil, fmt.Errorf("%w: ticks must be positive, got %d", domain.ErrInvalidArgument, ticks)
	}
	if delay < 0 {
		return nil, nil, fmt.Errorf("%w: delay must not be negative", domain.ErrInvalidArgument)
	}

	p, err := c.reg.Get(ctx, ownerID, processID)
	if err != nil {
		return nil, nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closing.Load() {
		return nil, nil, fmt.Errorf("controller is shutting down: %w", domain.ErrConflict)
	}

	req := runRequest{ticks: ticks, delay: delay, segment: make(chan struct{})}

	if l, ok := c.loops[processID]; ok {
		l.mu.Lock()
		defer l.mu.Unlock()

		resumed, err := c.reg.Transition(ctx, processID, domain.ProcessPaused, domain.ProcessRunning)
		if err != nil {
			return nil, nil, err
		}
		l.pause.Store(false)
		l.segment = req.segment
		l.resume <- req
		c.logger.Debug("Process resumed", "process_id", processID, "ticks", ticks, "tick", resumed.CurrentTick)
		return resumed, req.segment, nil
	}

	if p.State != domain.ProcessCreated && p.State != domain.ProcessPaused {
		return nil, nil, fmt.Errorf("process %s is %s: %w", processID, p.State, domain.ErrConflict)
	}

	model, err := c.reg.Models().GetModel(ctx, p.ModelID)
	if err != nil {
		return nil, nil, fmt.Errorf("model %d: %w", p.ModelID, err)
	}

	if c.limiter != nil && !c.limiter.TryAcquire(1) {
		return nil, nil, fmt.Errorf("too many running processes (max %d): %w", c.maxRunning, domain.ErrConflict)
	}

	running, err := c.reg.AcquireSlot(ctx, processID, domain.ProcessCreated, domain.ProcessPaused)
	if err != nil {
		if c.limiter != nil {
			c.limiter.Release(1)
		}
		return nil, nil, err
	}

	l := newLoop(running, model, req.segment)
	c.loops[processID] = l
	c.wg.Add(1)
	go c.run(l, req)

	c.logger.Debug("Process started",
		"process_id", processID,
		"owner_id", ownerID,
		"model_id", p.ModelID,
		"ticks", ticks,
		"delay", delay,
	)
	return running, req.segment, nil
}

func (c *Controller) lookup(processID string) *loop {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loops[processID]
}

// Pause asks a RUNNING process to stop at the next tick boundary and waits
// until it did.
func (c *Controller) Pause(ctx context.Context, ownerID int64, processID string) (*domain.Process, error) {
	if _, err := c.reg.Get(ctx, ownerID, processID); err != nil {
		return nil, err
	}

	l := c.lookup(processID)
	if l == nil {
		return nil, fmt.Errorf("process %s has no active run: %w", processID, domain.ErrConflict)
	}

	l.mu.Lock()
	p, err := c.reg.Load(ctx, processID)
	if err != nil {
		l.mu.Unlock()
		return nil, err
	}
	if p.State != domain.ProcessRunning {
		l.mu.Unlock()
		return nil, fmt.Errorf("process %s is %s: %w", processID, p.State, domain.ErrConflict)
	}
	seg := l.segment
	l.pause.Store(true)
	l.mu.Unlock()
	l.signal()

	select {
	case <-seg:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p, err = c.reg.Load(ctx, processID)
	if err != nil {
		return nil, err
	}
	if p.State != domain.ProcessPaused {
		return p, fmt.Errorf("process %s ended as %s before pausing: %w", processID, p.State, domain.ErrConflict)
	}
	return p, nil
}

// Kill stops a process for good. Killing a KILLED process is a no-op.
func (c *Controller) Kill(ctx context.Context, ownerID int64, processID string) (*domain.Process, error) {
	for attempt := 0; ; attempt++ {
		p, err := c.reg.Get(ctx, ownerID, processID)
		if err != nil {
			return nil, err
		}
		switch p.State {
		case domain.ProcessKilled:
			return p, nil
		case domain.ProcessCompleted:
			return p, fmt.Errorf("process %s already completed: %w", processID, domain.ErrConflict)
		}

		if l := c.lookup(processID); l != nil {
			return c.killLoop(ctx, l)
		}

		killed, err := c.reg.Transition(ctx, processID, p.State, domain.ProcessKilled)
		if err == nil {
			c.logger.Info("Process killed", "process_id", processID, "from", p.State)
			return killed, nil
		}
		if !errors.Is(err, domain.ErrConflict) || attempt >= killRetries {
			return nil, err
		}
		// The state moved under us, typically a concurrent run; look again.
	}
}

func (c *Controller) killLoop(ctx context.Context, l *loop) (*domain.Process, error) {
	l.kill.Store(true)
	l.signal()

	select {
	case <-l.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p, err := c.reg.Load(ctx, l.id)
	if err != nil {
		return nil, err
	}
	if p.State != domain.ProcessKilled {
		return p, fmt.Errorf("process %s ended as %s: %w", l.id, p.State, domain.ErrConflict)
	}
	c.logger.Info("Process killed", "process_id", l.id, "tick", p.CurrentTick)
	return p, nil
}

// Shutdown pauses every loop and waits for all of them to exit. Processes
// that were running are left PAUSED so they can be resumed later.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.closing.Store(true)
	loops := make([]*loop, 0, len(c.loops))
	for _, l := range c.loops {
		loops = append(loops, l)
	}
	c.mu.Unlock()

	for _, l := range loops {
		l.pause.Store(true)
		l.signal()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Run controller stopped", "loops", len(loops))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown: %w", ctx.Err())
	}
}
