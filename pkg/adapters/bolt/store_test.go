package bolt_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/atsim/pkg/adapters/bolt"
	"github.com/aretw0/atsim/pkg/domain"
	contract "github.com/aretw0/atsim/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, path string) *bolt.Store {
	t.Helper()
	store, err := bolt.Open(path)
	require.NoError(t, err)
	return store
}

func TestBoltStore_Contract(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "atsim.db"))
	defer store.Close()
	contract.RunProcessStoreContract(t, store)
}

func TestBoltStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "atsim.db")
	ctx := context.Background()

	store := openStore(t, path)
	p := domain.NewProcess("durable", 2, 1, "durable", time.Now())
	p.State = domain.ProcessPaused
	p.CurrentTick = 12
	require.NoError(t, store.Save(ctx, p))
	require.NoError(t, store.Close())

	store = openStore(t, path)
	defer store.Close()

	loaded, err := store.Load(ctx, "durable")
	require.NoError(t, err)
	assert.Equal(t, domain.ProcessPaused, loaded.State)
	assert.Equal(t, int64(12), loaded.CurrentTick)

	list, err := store.ListByOwner(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
