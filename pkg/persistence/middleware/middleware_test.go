package middleware_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/atsim/internal/logging"
	"github.com/aretw0/atsim/pkg/adapters/memory"
	"github.com/aretw0/atsim/pkg/domain"
	"github.com/aretw0/atsim/pkg/persistence/middleware"
	"github.com/aretw0/atsim/pkg/ports"
	"github.com/aretw0/atsim/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	op  string
	err error
}

type recorder struct {
	mu    sync.Mutex
	calls []call
}

func (r *recorder) observe(op string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{op, err})
}

func TestChain_SatisfiesStoreContract(t *testing.T) {
	rec := &recorder{}
	store := middleware.Chain(memory.NewStore(),
		middleware.NewLogging(logging.NewNop()),
		middleware.NewInstrumented(rec.observe),
	)
	tests.RunProcessStoreContract(t, store)
	assert.NotEmpty(t, rec.calls)
}

func TestChain_Order(t *testing.T) {
	var order []string
	tag := func(name string) middleware.Middleware {
		return func(next ports.ProcessStore) ports.ProcessStore {
			return middleware.NewInstrumented(func(string, time.Duration, error) {
				order = append(order, name)
			})(next)
		}
	}

	store := middleware.Chain(memory.NewStore(), tag("outer"), tag("inner"))
	_, _ = store.Load(context.Background(), "missing")

	// Observers fire on the way out, innermost first.
	assert.Equal(t, []string{"inner", "outer"}, order)
}

func TestInstrumented_ReportsErrors(t *testing.T) {
	rec := &recorder{}
	store := middleware.NewInstrumented(rec.observe)(memory.NewStore())
	ctx := context.Background()

	p := domain.NewProcess("p1", 1, 5, "demo", time.Now())
	require.NoError(t, store.Save(ctx, p))
	_, err := store.Load(ctx, "missing")
	require.Error(t, err)

	require.Len(t, rec.calls, 2)
	assert.Equal(t, "save", rec.calls[0].op)
	assert.NoError(t, rec.calls[0].err)
	assert.Equal(t, "load", rec.calls[1].op)
	assert.True(t, errors.Is(rec.calls[1].err, domain.ErrNotFound))
}

func TestLogging_NotFoundIsNotAnError(t *testing.T) {
	var buf bytes.Buffer
	store := middleware.NewLogging(logging.NewJSONWriter(&buf, slog.LevelDebug))(memory.NewStore())

	_, err := store.Load(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	assert.Contains(t, buf.String(), `"op":"load"`)
	assert.NotContains(t, buf.String(), `"level":"ERROR"`)
}
