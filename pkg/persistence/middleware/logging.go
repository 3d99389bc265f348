package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/atsim/pkg/domain"
	"github.com/aretw0/atsim/pkg/ports"
)

type loggingMiddleware struct {
	next   ports.ProcessStore
	logger *slog.Logger
}

// NewLogging logs every store call at debug level and failures at error
// level. A missing process is not a failure.
func NewLogging(logger *slog.Logger) Middleware {
	return func(next ports.ProcessStore) ports.ProcessStore {
		return &loggingMiddleware{next: next, logger: logger}
	}
}

func (m *loggingMiddleware) log(ctx context.Context, op, id string, start time.Time, err error) {
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		m.logger.ErrorContext(ctx, "Process store call failed", "op", op, "process_id", id, "err", err)
		return
	}
	m.logger.DebugContext(ctx, "Process store call", "op", op, "process_id", id, "duration", time.Since(start))
}

func (m *loggingMiddleware) Save(ctx context.Context, p *domain.Process) error {
	start := time.Now()
	err := m.next.Save(ctx, p)
	m.log(ctx, "save", p.ID, start, err)
	return err
}

func (m *loggingMiddleware) Load(ctx context.Context, processID string) (*domain.Process, error) {
	start := time.Now()
	p, err := m.next.Load(ctx, processID)
	m.log(ctx, "load", processID, start, err)
	return p, err
}

func (m *loggingMiddleware) Delete(ctx context.Context, processID string) error {
	start := time.Now()
	err := m.next.Delete(ctx, processID)
	m.log(ctx, "delete", processID, start, err)
	return err
}

func (m *loggingMiddleware) ListByOwner(ctx context.Context, ownerID int64) ([]*domain.Process, error) {
	start := time.Now()
	list, err := m.next.ListByOwner(ctx, ownerID)
	if err != nil {
		m.logger.ErrorContext(ctx, "Process store call failed", "op", "list", "owner_id", ownerID, "err", err)
	} else {
		m.logger.DebugContext(ctx, "Process store call", "op", "list", "owner_id", ownerID, "count", len(list), "duration", time.Since(start))
	}
	return list, err
}
