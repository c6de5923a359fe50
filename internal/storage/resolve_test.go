package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(v int64) *int64 { return &v }

func TestLoadOrCreate_EmptyRepoCreatesRandomWorld(t *testing.T) {
	repo := NewMemoryWorldRepo()
	ctx := context.Background()

	meta, created, err := LoadOrCreate(ctx, repo, WorldRequest{Settings: Settings{FOV: 75, RenderDistance: 4}})
	require.NoError(t, err)
	assert.True(t, created)
	assert.GreaterOrEqual(t, meta.Seed, int64(0))
	assert.Less(t, meta.Seed, int64(MaxRandomSeed))
	assert.Equal(t, 1, repo.Count())

	again, created, err := LoadOrCreate(ctx, repo, WorldRequest{})
	require.NoError(t, err)
	assert.False(t, created, "второй запуск продолжает последний мир")
	assert.Equal(t, meta.ID, again.ID)
	assert.Equal(t, meta.Seed, again.Seed)
}

func TestLoadOrCreate_ExplicitSeed(t *testing.T) {
	repo := NewMemoryWorldRepo()
	ctx := context.Background()

	first, created, err := LoadOrCreate(ctx, repo, WorldRequest{Seed: seed(0)})
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, int64(0), first.Seed, "сид 0 допустим")

	same, created, err := LoadOrCreate(ctx, repo, WorldRequest{Seed: seed(0)})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, same.ID)

	other, created, err := LoadOrCreate(ctx, repo, WorldRequest{Seed: seed(99)})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, other.ID)
	assert.Equal(t, 2, repo.Count())
}

func TestLoadOrCreate_ByID(t *testing.T) {
	repo := NewMemoryWorldRepo()
	ctx := context.Background()
	id := uuid.New()

	meta, created, err := LoadOrCreate(ctx, repo, WorldRequest{ID: id.String(), Seed: seed(7)})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, id, meta.ID)

	loaded, created, err := LoadOrCreate(ctx, repo, WorldRequest{ID: id.String()})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(7), loaded.Seed)

	_, _, err = LoadOrCreate(ctx, repo, WorldRequest{ID: id.String(), Seed: seed(8)})
	assert.ErrorIs(t, err, ErrInvalidWorld, "сид существующего мира не меняется")

	_, _, err = LoadOrCreate(ctx, repo, WorldRequest{ID: "not-a-uuid"})
	assert.ErrorIs(t, err, ErrInvalidWorld)
}
