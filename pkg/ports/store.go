package ports

import (
	"context"

	"github.com/aretw0/atsim/pkg/domain"
)

// ProcessStore defines the interface for persisting Process records.
// This allows processes to survive host restarts and to be shared between replicas.
type ProcessStore interface {
	// Save persists the process, replacing any previous version.
	Save(ctx context.Context, p *domain.Process) error

	// Load retrieves a process by ID.
	// Returns domain.ErrNotFound if the process does not exist.
	Load(ctx context.Context, processID string) (*domain.Process, error)

	// Delete removes a process. Deleting a missing process is not an error.
	Delete(ctx context.Context, processID string) error

	// ListByOwner returns the owner's processes ordered by creation time.
	ListByOwner(ctx context.Context, ownerID int64) ([]*domain.Process, error)
}
