package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/atsim/pkg/domain"
)

// Models implements ports.ModelStore using an in-memory map.
type Models struct {
	mu     sync.RWMutex
	models map[int64]*domain.Model
}

// NewModels creates a model store pre-populated with the given models.
// Every model is validated; the first invalid one aborts construction.
func NewModels(models ...*domain.Model) (*Models, error) {
	m := &Models{models: make(map[int64]*domain.Model, len(models))}
	for _, model := range models {
		if err := m.Put(model); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Put validates and registers a model, replacing any model with the same ID.
func (m *Models) Put(model *domain.Model) error {
	if model == nil {
		return fmt.Errorf("%w: nil model", domain.ErrInvalidArgument)
	}
	if err := model.Validate(); err != nil {
		return fmt.Errorf("model %d: %w", model.ID, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.models[model.ID] = model
	return nil
}

// GetModel returns the model with the given ID.
// Models are read-only once registered, so the stored pointer is shared.
func (m *Models) GetModel(ctx context.Context, modelID int64) (*domain.Model, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	model, ok := m.models[modelID]
	if !ok {
		return nil, fmt.Errorf("model %d: %w", modelID, domain.ErrNotFound)
	}
	return model, nil
}

// All returns every registered model ordered by ID.
func (m *Models) All() []*domain.Model {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Model, 0, len(m.models))
	for _, model := range m.models {
		out = append(out, model)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Tokens implements ports.IdentityVerifier from a static token table.
type Tokens struct {
	owners map[string]int64
}

// NewTokens creates a verifier mapping opaque tokens to owner IDs.
func NewTokens(owners map[string]int64) *Tokens {
	copied := make(map[string]int64, len(owners))
	for k, v := range owners {
		copied[k] = v
	}
	return &Tokens{owners: copied}
}

// Verify resolves a token to its owner.
func (t *Tokens) Verify(ctx context.Context, token string) (int64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, domain.ErrInvalidToken
	}
	owner, ok := t.owners[token]
	if !ok {
		return 0, domain.ErrInvalidToken
	}
	return owner, nil
}
