package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu       sync.RWMutex
	entities map[string]map[string][]byte
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entities: make(map[string]map[string][]byte),
	}
}

func (s *MemoryStore) Get(_ context.Context, kind, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.entities[kind][id]
	if !ok {
		return nil, ErrNotFound
	}
	// Return a copy to avoid external mutation.
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Put(_ context.Context, kind, id string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.entities[kind]
	if !ok {
		byID = make(map[string][]byte)
		s.entities[kind] = byID
	}
	byID[id] = append([]byte(nil), data...)
	return nil
}

// PutBatch stores writes under a single lock.
func (s *MemoryStore) PutBatch(_ context.Context, writes []Write) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range writes {
		byID, ok := s.entities[w.Kind]
		if !ok {
			byID = make(map[string][]byte)
			s.entities[w.Kind] = byID
		}
		byID[w.ID] = append([]byte(nil), w.Data...)
	}
	return nil
}

// IDs returns the sorted ids stored for a kind.
func (s *MemoryStore) IDs(kind string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.entities[kind]))
	for id := range s.entities[kind] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of entities stored for a kind.
func (s *MemoryStore) Count(kind string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entities[kind])
}

// List returns up to limit ids of a kind in sorted order.
func (s *MemoryStore) List(_ context.Context, kind string, limit int) ([]string, error) {
	ids := s.IDs(kind)
	if limit >= 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}
