// Package testutils holds fixtures shared by package tests.
package testutils

import (
	"fmt"
	"testing"

	"github.com/aretw0/atsim/pkg/adapters/memory"
	"github.com/aretw0/atsim/pkg/domain"
	"github.com/stretchr/testify/require"
)

// CounterModel returns a model with one TEMPORAL counter resource whose
// attribute n grows by one every tick, and a CONSTANT resource that is not
// traced.
func CounterModel(id, ownerID int64) *domain.Model {
	return &domain.Model{
		ID:      id,
		OwnerID: ownerID,
		Name:    "counter",
		ResourceTypes: []domain.ResourceType{
			{
				ID:   1,
				Name: "counter",
				Kind: domain.ResourceTemporal,
				Attributes: []domain.Attribute{
					{Name: "n", Type: domain.AttributeInt},
				},
			},
			{
				ID:   2,
				Name: "settings",
				Kind: domain.ResourceConstant,
				Attributes: []domain.Attribute{
					{Name: "step", Type: domain.AttributeInt, Default: 1},
				},
			},
		},
		Resources: []domain.Resource{
			{ID: 1, Name: "counter", ResourceTypeID: 1, ToBeTraced: true},
			{ID: 2, Name: "settings", ResourceTypeID: 2},
		},
		Templates: []domain.Template{
			{
				ID:   1,
				Name: "grow",
				Kind: domain.KindRule,
				Params: []domain.TemplateParam{
					{Name: "c", ResourceTypeID: 1},
					{Name: "s", ResourceTypeID: 2},
				},
				Body: "c.n = c.n + s.step",
			},
		},
		Usages: []domain.Usage{
			{ID: 1, Name: "grow_counter", TemplateID: 1, Arguments: map[string]int64{"c": 1, "s": 2}},
		},
	}
}

// FaultyModel returns a model whose rule fails at the given tick.
func FaultyModel(id, ownerID, failAt int64) *domain.Model {
	m := CounterModel(id, ownerID)
	m.Name = "faulty"
	m.Templates[0].Body = fmt.Sprintf("if tick >= %d then error(\"boom\") end\nc.n = c.n + s.step", failAt)
	return m
}

// Models builds a validated in-memory model store.
func Models(t *testing.T, models ...*domain.Model) *memory.Models {
	t.Helper()
	store, err := memory.NewModels(models...)
	require.NoError(t, err)
	return store
}
