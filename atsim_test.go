package atsim_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/atsim"
	"github.com/aretw0/atsim/internal/testutils"
	"github.com/aretw0/atsim/pkg/domain"
	"github.com/aretw0/atsim/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, opts ...atsim.Option) *atsim.Service {
	t.Helper()
	models := testutils.Models(t, testutils.CounterModel(5, 1), testutils.FaultyModel(6, 1, 2))
	svc := atsim.New(models, opts...)
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })
	return svc
}

func TestService_Lifecycle(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, 1, 5, "first")
	require.NoError(t, err)
	assert.Equal(t, domain.ProcessCreated, p.State)

	_, err = svc.Get(ctx, 2, p.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	done, err := svc.Run(ctx, 1, p.ID, atsim.RunRequest{Ticks: 4, Wait: true})
	require.NoError(t, err)
	assert.Equal(t, domain.ProcessCompleted, done.State)
	assert.Equal(t, int64(4), done.CurrentTick)

	list, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)

	require.NoError(t, svc.Delete(ctx, 1, p.ID))
	_, err = svc.Get(ctx, 1, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_PauseResumeKill(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, 1, 5, "slow")
	require.NoError(t, err)

	_, err = svc.Run(ctx, 1, p.ID, atsim.RunRequest{Ticks: 1000, Delay: 5 * time.Millisecond})
	require.NoError(t, err)

	paused, err := svc.Pause(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProcessPaused, paused.State)

	err = svc.Delete(ctx, 1, p.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.Run(ctx, 1, p.ID, atsim.RunRequest{Ticks: 1000, Delay: 5 * time.Millisecond})
	require.NoError(t, err)

	killed, err := svc.Kill(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProcessKilled, killed.State)

	require.Eventually(t, func() bool { return svc.Active() == 0 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, svc.Delete(ctx, 1, p.ID))
}

func TestService_MetricsAndHooks(t *testing.T) {
	m := observability.NewMetrics()
	var faults int
	svc := newService(t,
		atsim.WithMetrics(m),
		atsim.WithHooks(domain.LifecycleHooks{
			OnFault: func(context.Context, *domain.FaultEvent) { faults++ },
		}),
	)
	ctx := context.Background()

	p, err := svc.Create(ctx, 1, 6, "faulty")
	require.NoError(t, err)

	done, err := svc.Run(ctx, 1, p.ID, atsim.RunRequest{Ticks: 10, Wait: true})
	require.NoError(t, err)
	assert.Equal(t, domain.ProcessKilled, done.State)
	assert.NotEmpty(t, done.FaultReason)
	assert.Equal(t, 1, faults)

	series, err := testutil.GatherAndCount(m.Registry(), "atsim_engine_faults_total", "atsim_ticks_total")
	require.NoError(t, err)
	assert.Equal(t, 2, series)
	assert.Same(t, m, svc.Metrics())
}
