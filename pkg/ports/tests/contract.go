package tests

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/atsim/pkg/domain"
	"github.com/aretw0/atsim/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunProcessStoreContract is a reusable test suite that verifies if an adapter complies with ports.ProcessStore.
// The store must be empty when the suite starts.
func RunProcessStoreContract(t *testing.T, store ports.ProcessStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Load_NotFound", func(t *testing.T) {
		_, err := store.Load(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Save_Load_RoundTrip", func(t *testing.T) {
		p := domain.NewProcess("p-roundtrip", 7, 3, "roundtrip", base)
		p.State = domain.ProcessPaused
		p.CurrentTick = 4
		p.FaultReason = "none"
		p.Snapshot = &domain.TickSnapshot{
			Tick: 4,
			Resources: []*domain.ResourceState{
				{ResourceID: 1, Name: "car", TypeID: 1, Traced: true, Attributes: map[string]any{"speed": int64(3)}},
				nil,
			},
			Usages: []domain.UsageState{
				&domain.IrregularEventState{ID: 1, Name: "arrival", HasTriggered: true, NextTick: 9},
				&domain.OperationState{ID: 2, Name: "move", HasTriggeredBefore: true, InProgress: true, Remaining: 2},
				&domain.RuleState{ID: 3, Name: "stop"},
			},
		}
		require.NoError(t, store.Save(ctx, p))

		loaded, err := store.Load(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.ID, loaded.ID)
		assert.Equal(t, p.OwnerID, loaded.OwnerID)
		assert.Equal(t, p.ModelID, loaded.ModelID)
		assert.Equal(t, domain.ProcessPaused, loaded.State)
		assert.Equal(t, int64(4), loaded.CurrentTick)
		assert.True(t, p.CreatedAt.Equal(loaded.CreatedAt))

		require.NotNil(t, loaded.Snapshot)
		require.Len(t, loaded.Snapshot.Resources, 2)
		assert.Nil(t, loaded.Snapshot.Resources[1])
		assert.EqualValues(t, 3, loaded.Snapshot.Resources[0].Attributes["speed"])
		require.Len(t, loaded.Snapshot.Usages, 3)
		op, ok := loaded.Snapshot.Usages[1].(*domain.OperationState)
		require.True(t, ok, "usage 1 should decode as an operation")
		assert.Equal(t, int64(2), op.Remaining)
		assert.True(t, op.InProgress)

		require.NoError(t, store.Delete(ctx, p.ID))
	})

	t.Run("Save_Overwrites", func(t *testing.T) {
		p := domain.NewProcess("p-overwrite", 7, 3, "overwrite", base)
		require.NoError(t, store.Save(ctx, p))
		p.State = domain.ProcessRunning
		p.CurrentTick = 1
		require.NoError(t, store.Save(ctx, p))

		loaded, err := store.Load(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ProcessRunning, loaded.State)
		assert.Equal(t, int64(1), loaded.CurrentTick)

		list, err := store.ListByOwner(ctx, 7)
		require.NoError(t, err)
		assert.Len(t, list, 1)
		require.NoError(t, store.Delete(ctx, p.ID))
	})

	t.Run("Load_ReturnsCopy", func(t *testing.T) {
		p := domain.NewProcess("p-copy", 7, 3, "copy", base)
		require.NoError(t, store.Save(ctx, p))
		p.Name = "mutated after save"

		loaded, err := store.Load(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "copy", loaded.Name)
		loaded.Name = "mutated after load"

		again, err := store.Load(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "copy", again.Name)
		require.NoError(t, store.Delete(ctx, p.ID))
	})

	t.Run("ListByOwner_OrderedAndIsolated", func(t *testing.T) {
		ids := []string{"p-c", "p-a", "p-b"}
		for i, id := range ids {
			p := domain.NewProcess(id, 11, 3, id, base.Add(time.Duration(i)*time.Minute))
			require.NoError(t, store.Save(ctx, p))
		}
		require.NoError(t, store.Save(ctx, domain.NewProcess("p-other", 12, 3, "other", base)))

		list, err := store.ListByOwner(ctx, 11)
		require.NoError(t, err)
		require.Len(t, list, 3)
		for i, p := range list {
			assert.Equal(t, ids[i], p.ID, "processes must be ordered by creation time")
		}

		empty, err := store.ListByOwner(ctx, 99)
		require.NoError(t, err)
		assert.Empty(t, empty)

		for _, id := range append(ids, "p-other") {
			require.NoError(t, store.Delete(ctx, id))
		}
	})

	t.Run("Delete_Missing", func(t *testing.T) {
		assert.NoError(t, store.Delete(ctx, "never-saved"))
		list, err := store.ListByOwner(ctx, 7)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}
