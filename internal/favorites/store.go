package favorites

import (
	"context"
	"log"
	"sort"
	"sync"
)

// Persister is the slice of the local snapshot the favorites store writes
// through. Consumers define this interface, not the snapshot implementation.
type Persister interface {
	LoadFavorites(ctx context.Context) ([]string, error)
	SaveFavorites(ctx context.Context, ids []string) error
}

// Store is the favorites set. Every mutation is persisted synchronously so
// favorites survive a reload without waiting on the network.
type Store struct {
	persist Persister

	mu  sync.RWMutex
	set map[string]struct{}
}

// Load builds the store from the persisted snapshot. An absent snapshot
// yields an empty set.
func Load(ctx context.Context, persist Persister) (*Store, error) {
	ids, err := persist.LoadFavorites(ctx)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return &Store{persist: persist, set: set}, nil
}

// Toggle flips membership of the given product id and persists the
// resulting set. The lock is held across the persist so overlapping toggles
// reach the snapshot in flip order; the snapshot's last write always matches
// the in-memory set. A persistence failure is logged but does not undo the
// in-memory flip.
func (s *Store) Toggle(ctx context.Context, productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, present := s.set[productID]
	if present {
		delete(s.set, productID)
	} else {
		s.set[productID] = struct{}{}
	}

	if err := s.persist.SaveFavorites(ctx, s.idsLocked()); err != nil {
		log.Printf("favorites persist error: %v", err)
	}
	return !present
}

// Has is the O(1) membership test used by the catalog filter.
func (s *Store) Has(productID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.set[productID]
	return ok
}

// IDs returns the favorite product ids, sorted for stable persistence.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idsLocked()
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.set)
}

func (s *Store) idsLocked() []string {
	ids := make([]string, 0, len(s.set))
	for id := range s.set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
