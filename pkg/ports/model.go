package ports

import (
	"context"

	"github.com/aretw0/atsim/pkg/domain"
)

// ModelStore supplies model definitions. Models are read-only during a run.
type ModelStore interface {
	// GetModel returns the validated model.
	// Returns domain.ErrNotFound if the model does not exist.
	GetModel(ctx context.Context, modelID int64) (*domain.Model, error)
}

// IdentityVerifier maps an opaque token to an owner identity.
type IdentityVerifier interface {
	// Verify returns domain.ErrInvalidToken when the token is unknown.
	Verify(ctx context.Context, token string) (int64, error)
}
