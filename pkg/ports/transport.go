package ports

import "github.com/aretw0/atsim/pkg/domain"

// Transport delivers snapshots to one live subscriber (a WebSocket, an SSE
// response, a test recorder). Send is only called from a single goroutine;
// Close may be called concurrently with Send.
type Transport interface {
	// Send writes one snapshot. An error means the subscriber is gone.
	Send(snapshot *domain.TickSnapshot) error

	// Close ends the channel, telling the peer why when the transport supports it.
	Close(reason string) error

	// Done is closed when the peer disconnects.
	Done() <-chan struct{}
}
