package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/atsim/pkg/domain"
)

// runRequest is one run segment: a tick budget, the pacing between ticks and
// a channel closed when the segment ends.
type runRequest struct {
	ticks   int64
	delay   time.Duration
	segment chan struct{}
}

// loop is the control block shared between a loop goroutine and the controller.
type loop struct {
	id    string
	model *domain.Model

	pause atomic.Bool
	kill  atomic.Bool
	wake  chan struct{}

	// mu orders segment hand-over between Start and Pause.
	mu      sync.Mutex
	segment chan struct{}
	resume  chan runRequest

	done chan struct{}

	// proc is only touched by the loop goroutine.
	proc *domain.Process
}

func newLoop(p *domain.Process, model *domain.Model, segment chan struct{}) *loop {
	return &loop{
		id:      p.ID,
		model:   model,
		wake:    make(chan struct{}, 1),
		segment: segment,
		resume:  make(chan runRequest, 1),
		done:    make(chan struct{}),
		proc:    p,
	}
}

// signal wakes the loop without blocking.
func (l *loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (c *Controller) run(l *loop, req runRequest) {
	ctx := context.Background()
	seg := req.segment
	endSegment := func() {
		if seg != nil {
			close(seg)
			seg = nil
		}
	}
	defer func() {
		c.release(l)
		endSegment()
		close(l.done)
		c.wg.Done()
	}()

	budget, delay := req.ticks, req.delay
	for {
		if l.kill.Load() {
			c.transition(ctx, l, domain.ProcessRunning, domain.ProcessKilled)
			return
		}
		if budget == 0 {
			c.transition(ctx, l, domain.ProcessRunning, domain.ProcessCompleted)
			return
		}
		if l.pause.Load() {
			if !c.transition(ctx, l, domain.ProcessRunning, domain.ProcessPaused) {
				return
			}
			endSegment()

			next, ok := c.suspend(ctx, l)
			if !ok {
				return
			}
			seg, budget, delay = next.segment, next.ticks, next.delay
			continue
		}

		if !c.tick(ctx, l) {
			return
		}
		budget--

		if delay > 0 && budget > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-l.wake:
				timer.Stop()
			}
		}
	}
}

// suspend parks a paused loop until it is resumed. It reports false when the
// loop must exit instead: killed, or the controller is shutting down.
func (c *Controller) suspend(ctx context.Context, l *loop) (runRequest, bool) {
	for {
		if c.closing.Load() && !l.kill.Load() {
			return runRequest{}, false
		}
		select {
		case req := <-l.resume:
			return req, true
		case <-l.wake:
			if !l.kill.Load() {
				continue
			}
			_, err := c.reg.Transition(ctx, l.id, domain.ProcessPaused, domain.ProcessKilled)
			if err != nil && !errors.Is(err, domain.ErrConflict) {
				c.logger.Error("Failed to kill suspended loop", "process_id", l.id, "err", err)
				return runRequest{}, false
			}
			if err != nil {
				// A concurrent run already moved the process to RUNNING. Its resume
				// request is on the way and the kill is honored at the next boundary.
				c.logger.Debug("Kill of suspended loop deferred", "process_id", l.id, "err", err)
				return <-l.resume, true
			}
			c.logger.Debug("Suspended process killed", "process_id", l.id)
			return runRequest{}, false
		}
	}
}

// transition applies a loop-driven state change and reports whether it stuck.
func (c *Controller) transition(ctx context.Context, l *loop, from, to domain.ProcessState) bool {
	p, err := c.reg.Transition(ctx, l.id, from, to)
	if err != nil {
		c.logger.Error("Loop transition failed",
			"process_id", l.id,
			"from", from,
			"to", to,
			"err", err,
		)
		return false
	}
	l.proc = p
	return true
}

// tick computes, records and publishes one tick. It reports false when the
// loop faulted and was killed.
func (c *Controller) tick(ctx context.Context, l *loop) bool {
	started := time.Now()

	snap, triggered, err := c.engine.Advance(ctx, l.model, l.proc.Snapshot)
	if err == nil {
		var p *domain.Process
		p, err = c.reg.Update(ctx, l.id, domain.ProcessRunning, func(p *domain.Process) error {
			p.CurrentTick = snap.Tick
			p.Snapshot = snap
			return nil
		})
		if err == nil {
			l.proc = p
		}
	}
	if err != nil {
		c.fault(ctx, l, err)
		return false
	}

	c.publisher.Publish(l.id, snap)

	if c.hooks.OnTick != nil {
		c.hooks.OnTick(ctx, &domain.TickEvent{
			EventBase: domain.EventBase{
				Timestamp: time.Now(),
				Type:      domain.EventTick,
				ProcessID: l.id,
			},
			ModelID:   l.model.ID,
			Tick:      snap.Tick,
			Duration:  time.Since(started),
			Triggered: len(triggered),
		})
	}
	return true
}

// fault kills the process after a failed tick. The host keeps running.
func (c *Controller) fault(ctx context.Context, l *loop, cause error) {
	tick := l.proc.CurrentTick + 1
	c.logger.Error("Tick failed, killing process",
		"process_id", l.id,
		"model_id", l.model.ID,
		"tick", tick,
		"err", cause,
	)

	p, err := c.reg.Update(ctx, l.id, domain.ProcessRunning, func(p *domain.Process) error {
		p.State = domain.ProcessKilled
		p.FaultReason = cause.Error()
		return nil
	})
	if err != nil {
		c.logger.Error("Failed to record fault",
			"process_id", l.id,
			"err", err,
		)
	} else {
		l.proc = p
	}

	if c.hooks.OnFault != nil {
		c.hooks.OnFault(ctx, &domain.FaultEvent{
			EventBase: domain.EventBase{
				Timestamp: time.Now(),
				Type:      domain.EventFault,
				ProcessID: l.id,
			},
			ModelID: l.model.ID,
			Tick:    tick,
			Reason:  cause.Error(),
		})
	}
}

// release frees the slot, the map entry and the capacity the loop held.
func (c *Controller) release(l *loop) {
	c.reg.ReleaseSlot(l.id)

	c.mu.Lock()
	delete(c.loops, l.id)
	c.mu.Unlock()

	if c.limiter != nil {
		c.limiter.Release(1)
	}
}
