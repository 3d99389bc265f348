package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/atsim/pkg/adapters/memory"
	"github.com/aretw0/atsim/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModels_GetModel(t *testing.T) {
	model := &domain.Model{
		ID:      1,
		OwnerID: 5,
		Name:    "empty",
	}
	models, err := memory.NewModels(model)
	require.NoError(t, err)

	got, err := models.GetModel(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "empty", got.Name)

	_, err = models.GetModel(context.Background(), 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestModels_All(t *testing.T) {
	models, err := memory.NewModels(
		&domain.Model{ID: 3, OwnerID: 1, Name: "c"},
		&domain.Model{ID: 1, OwnerID: 1, Name: "a"},
	)
	require.NoError(t, err)

	all := models.All()
	require.Len(t, all, 2)
	assert.Equal(t, int64(1), all[0].ID)
	assert.Equal(t, int64(3), all[1].ID)
}

func TestModels_RejectsInvalid(t *testing.T) {
	bad := &domain.Model{
		ID: 1,
		Usages: []domain.Usage{
			{ID: 1, Name: "orphan", TemplateID: 42},
		},
	}
	_, err := memory.NewModels(bad)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestTokens_Verify(t *testing.T) {
	tokens := memory.NewTokens(map[string]int64{"secret": 9})

	owner, err := tokens.Verify(context.Background(), " secret ")
	require.NoError(t, err)
	assert.Equal(t, int64(9), owner)

	_, err = tokens.Verify(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = tokens.Verify(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
