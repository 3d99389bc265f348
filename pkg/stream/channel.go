package stream

import (
	"sync"

	"github.com/aretw0/atsim/pkg/domain"
	"github.com/aretw0/atsim/pkg/ports"
)

// Channel is one live subscription of an owner to a process.
type Channel struct {
	processID string
	ownerID   int64
	transport ports.Transport

	queue    chan *domain.TickSnapshot
	stop     chan struct{}
	stopOnce sync.Once
	closeErr error
	done     chan struct{}
}

func newChannel(processID string, ownerID int64, t ports.Transport, buffer int) *Channel {
	return &Channel{
		processID: processID,
		ownerID:   ownerID,
		transport: t,
		queue:     make(chan *domain.TickSnapshot, buffer),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// ProcessID returns the observed process.
func (c *Channel) ProcessID() string { return c.processID }

// OwnerID returns the observing owner.
func (c *Channel) OwnerID() int64 { return c.ownerID }

// Done is closed once the channel stopped delivering.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// shutdown stops the pump and closes the transport with reason. Only the first
// call has an effect.
func (c *Channel) shutdown(reason string) error {
	c.stopOnce.Do(func() {
		close(c.stop)
		c.closeErr = c.transport.Close(reason)
	})
	return c.closeErr
}

// pump writes queued snapshots to the transport in tick order until the
// channel is stopped or the transport disconnects.
func (c *Channel) pump(h *Hub) {
	defer close(c.done)

	last := int64(-1)
	for {
		select {
		case <-c.stop:
			return
		case <-c.transport.Done():
			h.remove(c)
			return
		case snap := <-c.queue:
			if snap.Tick <= last {
				continue
			}
			if err := c.transport.Send(snap); err != nil {
				h.logger.Debug("Stream subscriber disconnected",
					"process_id", c.processID,
					"owner_id", c.ownerID,
					"err", err,
				)
				h.remove(c)
				_ = c.shutdown(ReasonShutdown)
				return
			}
			last = snap.Tick
		}
	}
}
