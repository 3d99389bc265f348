package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/atsim/pkg/domain"
)

// Store implements ports.ProcessStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Process
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Process),
	}
}

// Save persists the process in memory.
func (s *Store) Save(ctx context.Context, p *domain.Process) error {
	// Copy on write so later mutations by the caller do not leak into the store
	copied := p.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[p.ID] = copied
	return nil
}

// Load retrieves the process from memory.
func (s *Store) Load(ctx context.Context, id string) (*domain.Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

// Delete removes the process.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// ListByOwner returns the owner's processes ordered by creation time.
func (s *Store) ListByOwner(ctx context.Context, ownerID int64) ([]*domain.Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Process, 0)
	for _, p := range s.data {
		if p.OwnerID == ownerID {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
