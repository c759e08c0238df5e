package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/models"
	"cart-enricher/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleUsers() []models.EnrichedUser {
	return []models.EnrichedUser{
		{ID: 7, FirstName: "A", LastName: "B", Age: 30, Gender: "male", Country: "Germany", FavoriteCategory: "mobile"},
		{ID: 8, FirstName: "C", LastName: "D", Age: 41, Gender: "female", Country: models.Unknown, FavoriteCategory: "beauty"},
	}
}

func TestAdapter_WriteAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "users.db")
	adapter, err := NewAdapter(&Config{Path: path}, logging.NewNopLogger())
	require.NoError(t, err)
	defer adapter.Close()

	ctx := context.Background()
	require.NoError(t, adapter.Write(ctx, sampleUsers()))
	require.NoError(t, adapter.Write(ctx, sampleUsers()[:1]))

	got, err := adapter.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, sampleUsers()[0], got[0])
	assert.Equal(t, sampleUsers()[1], got[1])
	assert.Equal(t, sampleUsers()[0], got[2])
}

func TestAdapter_EmptyWriteIsNoop(t *testing.T) {
	adapter, err := NewAdapter(&Config{Path: filepath.Join(t.TempDir(), "users.db")}, logging.NewNopLogger())
	require.NoError(t, err)
	defer adapter.Close()

	require.NoError(t, adapter.Write(context.Background(), nil))

	got, err := adapter.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAdapter_ReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.db")

	first, err := NewAdapter(&Config{Path: path}, logging.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, first.Write(context.Background(), sampleUsers()))
	require.NoError(t, first.Close())

	second, err := NewAdapter(&Config{Path: path}, logging.NewNopLogger())
	require.NoError(t, err)
	defer second.Close()

	got, err := second.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFactory_RegisteredInDefaultRegistry(t *testing.T) {
	assert.True(t, storage.DefaultRegistry.IsRegistered("sqlite"))

	sink, err := storage.Create(&Config{Path: filepath.Join(t.TempDir(), "users.db")}, logging.NewNopLogger())
	require.NoError(t, err)
	defer sink.Close()
	assert.Equal(t, "sqlite", sink.Name())

	_, err = storage.Create(&Config{}, logging.NewNopLogger())
	assert.Error(t, err)
}
