package middleware

import (
	"context"
	"time"

	"github.com/aretw0/atsim/pkg/domain"
	"github.com/aretw0/atsim/pkg/ports"
)

// Observer receives the outcome of one store call.
type Observer func(op string, d time.Duration, err error)

type instrumentMiddleware struct {
	next    ports.ProcessStore
	observe Observer
}

// NewInstrumented reports the duration and result of every store call.
func NewInstrumented(observe Observer) Middleware {
	return func(next ports.ProcessStore) ports.ProcessStore {
		return &instrumentMiddleware{next: next, observe: observe}
	}
}

func (m *instrumentMiddleware) Save(ctx context.Context, p *domain.Process) error {
	start := time.Now()
	err := m.next.Save(ctx, p)
	m.observe("save", time.Since(start), err)
	return err
}

func (m *instrumentMiddleware) Load(ctx context.Context, processID string) (*domain.Process, error) {
	start := time.Now()
	p, err := m.next.Load(ctx, processID)
	m.observe("load", time.Since(start), err)
	return p, err
}

func (m *instrumentMiddleware) Delete(ctx context.Context, processID string) error {
	start := time.Now()
	err := m.next.Delete(ctx, processID)
	m.observe("delete", time.Since(start), err)
	return err
}

func (m *instrumentMiddleware) ListByOwner(ctx context.Context, ownerID int64) ([]*domain.Process, error) {
	start := time.Now()
	list, err := m.next.ListByOwner(ctx, ownerID)
	m.observe("list", time.Since(start), err)
	return list, err
}
