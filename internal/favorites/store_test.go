package favorites

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPersister struct {
	m       sync.Mutex
	ids     []string
	loadErr error
	saveErr error
	saves   int
}

func (p *mockPersister) LoadFavorites(context.Context) ([]string, error) {
	p.m.Lock()
	defer p.m.Unlock()
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	return append([]string(nil), p.ids...), nil
}

func (p *mockPersister) SaveFavorites(_ context.Context, ids []string) error {
	p.m.Lock()
	defer p.m.Unlock()
	p.saves++
	if p.saveErr != nil {
		return p.saveErr
	}
	p.ids = append([]string(nil), ids...)
	return nil
}

func (p *mockPersister) saved() []string {
	p.m.Lock()
	defer p.m.Unlock()
	return append([]string(nil), p.ids...)
}

func TestLoad_AbsentSnapshotYieldsEmptySet(t *testing.T) {
	store, err := Load(context.Background(), &mockPersister{})
	require.NoError(t, err)
	assert.Equal(t, 0, store.Count())
}

func TestLoad_RestoresPersistedSet(t *testing.T) {
	persist := &mockPersister{ids: []string{"p1", "p3"}}

	store, err := Load(context.Background(), persist)
	require.NoError(t, err)

	assert.True(t, store.Has("p1"))
	assert.True(t, store.Has("p3"))
	assert.False(t, store.Has("p2"))
}

func TestLoad_PropagatesReadError(t *testing.T) {
	persist := &mockPersister{loadErr: errors.New("database is locked")}
	_, err := Load(context.Background(), persist)
	require.Error(t, err)
}

func TestToggle_FlipsMembershipAndPersists(t *testing.T) {
	persist := &mockPersister{}
	store, err := Load(context.Background(), persist)
	require.NoError(t, err)

	assert.True(t, store.Toggle(context.Background(), "p1"))
	assert.True(t, store.Has("p1"))
	assert.Equal(t, []string{"p1"}, persist.saved())

	assert.False(t, store.Toggle(context.Background(), "p1"))
	assert.False(t, store.Has("p1"))
	assert.Empty(t, persist.saved())
}

func TestToggle_IsItsOwnInverse(t *testing.T) {
	store, err := Load(context.Background(), &mockPersister{})
	require.NoError(t, err)

	store.Toggle(context.Background(), "p1")
	store.Toggle(context.Background(), "p1")

	assert.Equal(t, 0, store.Count())
	assert.False(t, store.Has("p1"))
}

func TestToggle_PersistFailureKeepsInMemoryFlip(t *testing.T) {
	persist := &mockPersister{saveErr: errors.New("disk full")}
	store, err := Load(context.Background(), persist)
	require.NoError(t, err)

	assert.True(t, store.Toggle(context.Background(), "p1"))
	assert.True(t, store.Has("p1"))
}

func TestToggle_ConcurrentFlipsAllReachTheSnapshot(t *testing.T) {
	persist := &mockPersister{}
	store, err := Load(context.Background(), persist)
	require.NoError(t, err)

	ids := []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8"}
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			store.Toggle(context.Background(), id)
		}(id)
	}
	wg.Wait()

	// The last persisted set must match memory exactly; a flip must never
	// be present in memory but missing from the snapshot.
	assert.Equal(t, store.IDs(), persist.saved())
	assert.Equal(t, ids, persist.saved())
}

func TestIDs_SortedForStablePersistence(t *testing.T) {
	store, err := Load(context.Background(), &mockPersister{ids: []string{"p9", "p2", "p5"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"p2", "p5", "p9"}, store.IDs())
}
