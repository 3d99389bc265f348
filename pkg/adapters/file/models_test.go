package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/atsim/pkg/adapters/file"
	"github.com/aretw0/atsim/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadModels(t *testing.T) {
	models, err := file.LoadModels(filepath.Join("testdata", "models"))
	require.NoError(t, err)
	ctx := context.Background()

	traffic, err := models.GetModel(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "traffic", traffic.Name)
	assert.Equal(t, int64(1), traffic.OwnerID)
	require.Len(t, traffic.Templates, 2)
	require.NotNil(t, traffic.Templates[0].Generator)
	assert.Equal(t, domain.GeneratorPrecise, traffic.Templates[0].Generator.Type)
	assert.Equal(t, 2.0, traffic.Templates[0].Generator.Value)
	assert.Equal(t, int64(10), traffic.Usages[0].Arguments["l"])

	queue, err := models.GetModel(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, "queue", queue.Name)

	_, err = models.GetModel(ctx, 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDecodeModel_UnknownKey(t *testing.T) {
	_, err := file.DecodeModel([]byte("id: 1\nname: typo\nresourses: []\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "resourses")
}

func TestDecodeModel_Invalid(t *testing.T) {
	doc := `
id: 1
name: broken
usages:
  - id: 1
    name: dangling
    template_id: 9
`
	_, err := file.DecodeModel([]byte(doc))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "unknown template 9")
}

func TestLoadModels_DuplicateID(t *testing.T) {
	dir := t.TempDir()
	doc := []byte("id: 1\nname: same\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), doc, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), doc, 0o644))

	_, err := file.LoadModels(dir)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestLoadTokens(t *testing.T) {
	tokens, err := file.LoadTokens(filepath.Join("testdata", "tokens.yaml"))
	require.NoError(t, err)

	owner, err := tokens.Verify(context.Background(), "bob-token")
	require.NoError(t, err)
	assert.Equal(t, int64(2), owner)

	_, err = tokens.Verify(context.Background(), "mallory")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
