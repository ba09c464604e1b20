package snapshot

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matita/storefront/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := New(filepath.Join(t.TempDir(), "snapshot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.RunMigrations("./migrations"))
	return store
}

func TestIdentity_AbsentReadsAsNil(t *testing.T) {
	store := newTestStore(t)

	user, err := store.LoadIdentity(context.Background())
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestIdentity_SaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	saved := &domain.User{ID: "u1", Name: "Ana", Email: "ana@example.com", Points: 40, IsMember: true}
	require.NoError(t, store.SaveIdentity(ctx, saved))

	loaded, err := store.LoadIdentity(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, saved, loaded)
}

func TestIdentity_SaveReplacesPreviousBlob(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveIdentity(ctx, &domain.User{ID: "u1", Points: 10}))
	require.NoError(t, store.SaveIdentity(ctx, &domain.User{ID: "u1", Points: 99}))

	loaded, err := store.LoadIdentity(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 99, loaded.Points)
}

func TestIdentity_ClearIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveIdentity(ctx, &domain.User{ID: "u1"}))
	require.NoError(t, store.ClearIdentity(ctx))
	require.NoError(t, store.ClearIdentity(ctx)) // clearing nothing is fine

	user, err := store.LoadIdentity(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestFavorites_AbsentReadsAsEmpty(t *testing.T) {
	store := newTestStore(t)

	ids, err := store.LoadFavorites(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFavorites_SaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveFavorites(ctx, []string{"p1", "p2"}))

	ids, err := store.LoadFavorites(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, ids)
}

func TestFavorites_IndependentFromIdentity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveIdentity(ctx, &domain.User{ID: "u1"}))
	require.NoError(t, store.SaveFavorites(ctx, []string{"p1"}))

	// Clearing the identity blob must not disturb the favorites blob.
	require.NoError(t, store.ClearIdentity(ctx))

	ids, err := store.LoadFavorites(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, ids)
}
