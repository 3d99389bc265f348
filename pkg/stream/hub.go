package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/atsim/internal/logging"
	"github.com/aretw0/atsim/pkg/domain"
	"github.com/aretw0/atsim/pkg/ports"
	"go.uber.org/multierr"
)

// DefaultBuffer is the per-channel queue length.
const DefaultBuffer = 16

// Close reasons sent to transports.
const (
	ReasonReplaced     = "replaced"
	ReasonUnsubscribed = "unsubscribed"
	ReasonShutdown     = "shutdown"
)

// ErrClosed is returned by Subscribe once the hub has been closed.
var ErrClosed = fmt.Errorf("stream hub is closed: %w", domain.ErrConflict)

// ProcessLookup resolves processes for ownership checks.
type ProcessLookup interface {
	Load(ctx context.Context, processID string) (*domain.Process, error)
}

// Hub routes snapshots from run loops to subscribed transports.
type Hub struct {
	lookup ProcessLookup
	buffer int
	logger *slog.Logger
	onDrop func(processID string)

	mu     sync.RWMutex
	subs   map[string]map[int64]*Channel
	closed bool
}

// Option configures the Hub.
type Option func(*Hub)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = logger
	}
}

// WithBuffer sets how many snapshots may wait for a slow observer.
func WithBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithDropHandler is called every time a snapshot is dropped for an observer.
func WithDropHandler(fn func(processID string)) Option {
	return func(h *Hub) {
		h.onDrop = fn
	}
}

// NewHub creates a Hub.
func NewHub(lookup ProcessLookup, opts ...Option) *Hub {
	h := &Hub{
		lookup: lookup,
		buffer: DefaultBuffer,
		logger: logging.NewNop(),
		subs:   make(map[string]map[int64]*Channel),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe attaches a transport to a process. Ownership is checked once,
// here. A previous channel for the same owner and process is closed with
// ReasonReplaced. The process's latest snapshot is delivered first.
func (h *Hub) Subscribe(ctx context.Context, processID string, ownerID int64, t ports.Transport) (*Channel, error) {
	p, err := h.lookup.Load(ctx, processID)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != ownerID {
		return nil, fmt.Errorf("process %s: %w", processID, domain.ErrForbidden)
	}

	ch := newChannel(processID, ownerID, t, h.buffer)
	if p.Snapshot != nil {
		ch.queue <- p.Snapshot
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = t.Close(ReasonShutdown)
		return nil, ErrClosed
	}
	perProcess, ok := h.subs[processID]
	if !ok {
		perProcess = make(map[int64]*Channel)
		h.subs[processID] = perProcess
	}
	old := perProcess[ownerID]
	perProcess[ownerID] = ch
	h.mu.Unlock()

	if old != nil {
		h.logger.Debug("Replacing stream subscriber", "process_id", processID, "owner_id", ownerID)
		_ = old.shutdown(ReasonReplaced)
	}

	go ch.pump(h)

	h.logger.Debug("Stream subscribed", "process_id", processID, "owner_id", ownerID)
	return ch, nil
}

// Publish offers snap to every channel of the process without blocking.
func (h *Hub) Publish(processID string, snap *domain.TickSnapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for owner, ch := range h.subs[processID] {
		select {
		case ch.queue <- snap:
		default:
			h.logger.Debug("Dropped snapshot for slow subscriber",
				"process_id", processID,
				"owner_id", owner,
				"tick", snap.Tick,
			)
			if h.onDrop != nil {
				h.onDrop(processID)
			}
		}
	}
}

// Unsubscribe detaches the owner's channel from the process, if any.
func (h *Hub) Unsubscribe(processID string, ownerID int64) bool {
	h.mu.Lock()
	ch := h.subs[processID][ownerID]
	if ch != nil {
		h.detach(ch)
	}
	h.mu.Unlock()

	if ch == nil {
		return false
	}
	_ = ch.shutdown(ReasonUnsubscribed)
	h.logger.Debug("Stream unsubscribed", "process_id", processID, "owner_id", ownerID)
	return true
}

// remove drops ch after its transport went away. A newer channel that
// replaced ch under the same key is left alone.
func (h *Hub) remove(ch *Channel) {
	h.mu.Lock()
	if h.subs[ch.processID][ch.ownerID] == ch {
		h.detach(ch)
	}
	h.mu.Unlock()
}

// detach must be called with h.mu held.
func (h *Hub) detach(ch *Channel) {
	perProcess := h.subs[ch.processID]
	delete(perProcess, ch.ownerID)
	if len(perProcess) == 0 {
		delete(h.subs, ch.processID)
	}
}

// Subscribers returns the number of live channels for a process.
func (h *Hub) Subscribers(processID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[processID])
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	var all []*Channel
	for _, perProcess := range h.subs {
		for _, ch := range perProcess {
			all = append(all, ch)
		}
	}
	h.subs = make(map[string]map[int64]*Channel)
	h.mu.Unlock()

	var errs error
	for _, ch := range all {
		errs = multierr.Append(errs, ch.shutdown(ReasonShutdown))
	}
	return errs
}
