package runner

import (
	"log/slog"

	"github.com/aretw0/atsim/pkg/domain"
	"github.com/aretw0/atsim/pkg/engine"
)

// Publisher receives every snapshot a loop produces.
type Publisher interface {
	Publish(processID string, snap *domain.TickSnapshot)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(processID string, snap *domain.TickSnapshot)

// Publish calls f.
func (f PublisherFunc) Publish(processID string, snap *domain.TickSnapshot) {
	f(processID, snap)
}

// Option defines a functional option for configuring the Controller.
type Option func(*Controller)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithEngine sets the tick engine.
func WithEngine(e *engine.Engine) Option {
	return func(c *Controller) {
		c.engine = e
	}
}

// WithPublisher sets where snapshots are published.
func WithPublisher(p Publisher) Option {
	return func(c *Controller) {
		c.publisher = p
	}
}

// WithHooks registers tick and fault callbacks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithMaxRunning caps the number of concurrently active loops.
// Zero or less means unlimited.
func WithMaxRunning(n int) Option {
	return func(c *Controller) {
		c.maxRunning = n
	}
}
