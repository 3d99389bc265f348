package runner_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/atsim/internal/testutils"
	"github.com/aretw0/atsim/pkg/adapters/memory"
	"github.com/aretw0/atsim/pkg/domain"
	"github.com/aretw0/atsim/pkg/registry"
	"github.com/aretw0/atsim/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a Publisher that remembers every published tick.
type recorder struct {
	mu    sync.Mutex
	ticks map[string][]int64
	ch    chan int64
}

func newRecorder() *recorder {
	return &recorder{ticks: make(map[string][]int64), ch: make(chan int64, 4096)}
}

func (r *recorder) Publish(id string, snap *domain.TickSnapshot) {
	r.mu.Lock()
	r.ticks[id] = append(r.ticks[id], snap.Tick)
	r.mu.Unlock()
	select {
	case r.ch <- snap.Tick:
	default:
	}
}

func (r *recorder) published(id string) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.ticks[id]...)
}

// waitTick blocks until a snapshot with the given tick was published.
func (r *recorder) waitTick(t *testing.T, tick int64) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case got := <-r.ch:
			if got >= tick {
				return
			}
		case <-timeout:
			t.Fatalf("tick %d was never published", tick)
		}
	}
}

type fixture struct {
	reg  *registry.Registry
	ctrl *runner.Controller
	pub  *recorder
}

func newFixture(t *testing.T, opts ...runner.Option) *fixture {
	t.Helper()
	models := testutils.Models(t,
		testutils.CounterModel(5, 1),
		testutils.FaultyModel(7, 1, 3),
	)
	reg := registry.New(memory.NewStore(), models)
	pub := newRecorder()
	ctrl := runner.New(reg, append([]runner.Option{runner.WithPublisher(pub)}, opts...)...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = ctrl.Shutdown(ctx)
	})
	return &fixture{reg: reg, ctrl: ctrl, pub: pub}
}

func (f *fixture) create(t *testing.T, modelID int64) *domain.Process {
	t.Helper()
	p, err := f.reg.Create(context.Background(), 1, modelID, "demo")
	require.NoError(t, err)
	return p
}

func TestScenarioA_RunToCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, 5)
	assert.Equal(t, domain.ProcessCreated, p.State)
	assert.Equal(t, int64(0), p.CurrentTick)

	done, err := f.ctrl.Run(ctx, 1, p.ID, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.ProcessCompleted, done.State)
	assert.Equal(t, int64(3), done.CurrentTick)
	assert.Equal(t, []int64{1, 2, 3}, f.pub.published(p.ID))
	assert.EqualValues(t, 3, done.Snapshot.Resources[0].Attributes["n"])
	assert.Equal(t, 0, f.ctrl.Active())

	_, err = f.ctrl.Run(ctx, 1, p.ID, 1, 0)
	assert.ErrorIs(t, err, domain.ErrConflict, "completed processes cannot run again")
}

func TestScenarioB_PauseAndResume(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, 5)

	_, err := f.ctrl.Start(ctx, 1, p.ID, 10, 100*time.Millisecond)
	require.NoError(t, err)
	f.pub.waitTick(t, 2)

	paused, err := f.ctrl.Pause(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProcessPaused, paused.State)
	assert.Equal(t, int64(2), paused.CurrentTick)

	done, err := f.ctrl.Run(ctx, 1, p.ID, 8, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.ProcessCompleted, done.State)
	assert.Equal(t, int64(10), done.CurrentTick)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, f.pub.published(p.ID), "ticks are gap-free")
}

func TestScenarioC_KillBeforeRun(t *testing.T) {
	var transitions []domain.ProcessState
	models := testutils.Models(t, testutils.CounterModel(5, 1))
	reg := registry.New(memory.NewStore(), models, registry.WithHooks(domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			transitions = append(transitions, e.To)
		},
	}))
	pub := newRecorder()
	ctrl := runner.New(reg, runner.WithPublisher(pub))
	ctx := context.Background()

	p, err := reg.Create(ctx, 1, 5, "demo")
	require.NoError(t, err)

	killed, err := ctrl.Kill(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProcessKilled, killed.State)
	assert.Equal(t, []domain.ProcessState{domain.ProcessKilled}, transitions, "never entered RUNNING")
	assert.Empty(t, pub.published(p.ID))

	again, err := ctrl.Kill(ctx, 1, p.ID)
	require.NoError(t, err, "kill is idempotent")
	assert.Equal(t, domain.ProcessKilled, again.State)

	_, err = ctrl.Run(ctx, 1, p.ID, 1, 0)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestKill_RunningProcess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, 5)

	// The loop publishes tick 1 and then sits in a delay far longer than the
	// test is allowed to wait.
	_, err := f.ctrl.Start(ctx, 1, p.ID, 1000, 30*time.Second)
	require.NoError(t, err)
	f.pub.waitTick(t, 1)

	start := time.Now()
	killed, err := f.ctrl.Kill(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProcessKilled, killed.State)
	assert.Less(t, time.Since(start), time.Second, "kill cancels the inter-tick delay")
	assert.Equal(t, int64(1), killed.CurrentTick)
	assert.Equal(t, 0, f.ctrl.Active())

	again, err := f.ctrl.Kill(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, killed.CurrentTick, again.CurrentTick)

	ticks := f.pub.published(p.ID)
	require.NotEmpty(t, ticks)
	assert.Equal(t, killed.CurrentTick, ticks[len(ticks)-1])
}

func TestKill_SuspendedProcess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, 5)

	_, err := f.ctrl.Start(ctx, 1, p.ID, 1000, 10*time.Millisecond)
	require.NoError(t, err)
	f.pub.waitTick(t, 1)
	_, err = f.ctrl.Pause(ctx, 1, p.ID)
	require.NoError(t, err)
	require.Equal(t, 1, f.ctrl.Active(), "paused loops stay parked")

	killed, err := f.ctrl.Kill(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProcessKilled, killed.State)
	assert.Equal(t, 0, f.ctrl.Active())
	assert.False(t, f.reg.HasSlot(p.ID))
}

func TestRun_ConcurrentCallsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, 5)

	var (
		wg       sync.WaitGroup
		wins     atomic.Int32
		conflict atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ctrl.Start(ctx, 1, p.ID, 1000, 10*time.Millisecond)
			if err == nil {
				wins.Add(1)
				return
			}
			if assert.ErrorIs(t, err, domain.ErrConflict) {
				conflict.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(9), conflict.Load())
	assert.Equal(t, 1, f.ctrl.Active())

	_, err := f.ctrl.Kill(ctx, 1, p.ID)
	require.NoError(t, err)
}

func TestPause_FreezesState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, 5)

	_, err := f.ctrl.Start(ctx, 1, p.ID, 1000, 5*time.Millisecond)
	require.NoError(t, err)
	f.pub.waitTick(t, 3)

	paused, err := f.ctrl.Pause(ctx, 1, p.ID)
	require.NoError(t, err)
	published := len(f.pub.published(p.ID))

	time.Sleep(100 * time.Millisecond)

	assert.Len(t, f.pub.published(p.ID), published, "no snapshots while paused")
	now, err := f.reg.Get(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProcessPaused, now.State)
	assert.Equal(t, paused.CurrentTick, now.CurrentTick)
	assert.Equal(t, paused.Snapshot.Resources[0].Attributes["n"], now.Snapshot.Resources[0].Attributes["n"])

	_, err = f.ctrl.Pause(ctx, 1, p.ID)
	assert.ErrorIs(t, err, domain.ErrConflict, "pause is only valid while RUNNING")
}

func TestPause_CancelsDelay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, 5)

	_, err := f.ctrl.Start(ctx, 1, p.ID, 1000, 30*time.Second)
	require.NoError(t, err)
	f.pub.waitTick(t, 1)

	start := time.Now()
	paused, err := f.ctrl.Pause(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, domain.ProcessPaused, paused.State)
	assert.Equal(t, int64(1), paused.CurrentTick)

	_, err = f.ctrl.Kill(ctx, 1, p.ID)
	require.NoError(t, err)
}

func TestPause_RequiresRunning(t *testing.T) {
	f := newFixture(t)
	p := f.create(t, 5)

	_, err := f.ctrl.Pause(context.Background(), 1, p.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestRun_RejectsInvalidArguments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, 5)

	_, err := f.ctrl.Run(ctx, 1, p.ID, 0, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.ctrl.Run(ctx, 1, p.ID, 3, -time.Millisecond)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.ctrl.Run(ctx, 2, p.ID, 3, 0)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.ctrl.Run(ctx, 1, "missing", 3, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := f.reg.Get(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProcessCreated, got.State, "rejected runs change nothing")
	assert.False(t, f.reg.HasSlot(p.ID))
}

func TestRun_EngineFaultKillsProcess(t *testing.T) {
	var faults []*domain.FaultEvent
	var mu sync.Mutex
	f := newFixture(t, runner.WithHooks(domain.LifecycleHooks{
		OnFault: func(_ context.Context, e *domain.FaultEvent) {
			mu.Lock()
			defer mu.Unlock()
			faults = append(faults, e)
		},
	}))
	ctx := context.Background()
	p := f.create(t, 7)

	done, err := f.ctrl.Run(ctx, 1, p.ID, 10, 0)
	require.NoError(t, err, "faults are not returned to the caller")
	assert.Equal(t, domain.ProcessKilled, done.State)
	assert.Equal(t, int64(2), done.CurrentTick)
	assert.Contains(t, done.FaultReason, "boom")
	assert.Equal(t, []int64{1, 2}, f.pub.published(p.ID))
	assert.False(t, f.reg.HasSlot(p.ID))

	mu.Lock()
	require.Len(t, faults, 1)
	assert.Equal(t, int64(3), faults[0].Tick)
	assert.Equal(t, int64(7), faults[0].ModelID)
	mu.Unlock()

	// The host keeps serving other processes.
	healthy := f.create(t, 5)
	out, err := f.ctrl.Run(ctx, 1, healthy.ID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.ProcessCompleted, out.State)
}

func TestRun_MaxRunning(t *testing.T) {
	f := newFixture(t, runner.WithMaxRunning(1))
	ctx := context.Background()
	first := f.create(t, 5)
	second := f.create(t, 5)

	_, err := f.ctrl.Start(ctx, 1, first.ID, 1000, 10*time.Millisecond)
	require.NoError(t, err)

	_, err = f.ctrl.Start(ctx, 1, second.ID, 1, 0)
	assert.ErrorIs(t, err, domain.ErrConflict)
	got, err := f.reg.Get(ctx, 1, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProcessCreated, got.State)

	_, err = f.ctrl.Kill(ctx, 1, first.ID)
	require.NoError(t, err)

	out, err := f.ctrl.Run(ctx, 1, second.ID, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.ProcessCompleted, out.State)
}

func TestShutdown_LeavesProcessesResumable(t *testing.T) {
	models := testutils.Models(t, testutils.CounterModel(5, 1))
	reg := registry.New(memory.NewStore(), models)
	ctx := context.Background()

	first := runner.New(reg)
	p, err := reg.Create(ctx, 1, 5, "demo")
	require.NoError(t, err)
	_, err = first.Start(ctx, 1, p.ID, 1000, 5*time.Millisecond)
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, first.Shutdown(shutdownCtx))
	assert.Equal(t, 0, first.Active())

	_, err = first.Start(ctx, 1, p.ID, 1, 0)
	assert.ErrorIs(t, err, domain.ErrConflict, "closed controllers refuse new runs")

	parked, err := reg.Get(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProcessPaused, parked.State)
	assert.False(t, reg.HasSlot(p.ID))

	// A fresh controller picks the paused process up where it stopped.
	second := runner.New(reg)
	done, err := second.Run(ctx, 1, p.ID, 5, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.ProcessCompleted, done.State)
	assert.Equal(t, parked.CurrentTick+5, done.CurrentTick)
}
