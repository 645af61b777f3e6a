// Package memory provides an in-memory metadata store implementation.
package memory

import (
	"context"
	"sync"
	"time"
)

// entry is one stored value with write metadata.
type entry struct {
	value     string
	updatedAt time.Time
}

// MetadataStore implements repositories.MetadataStore using in-memory storage.
// Entity-scoped keys are flattened to "{entityID}:{key}".
type MetadataStore struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewMetadataStore creates an empty in-memory metadata store.
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{
		entries: make(map[string]entry),
	}
}

func flatten(entityID, key string) string {
	return entityID + ":" + key
}

// Get returns the stored value and whether the key was present.
func (s *MetadataStore) Get(ctx context.Context, entityID, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.entries[flatten(entityID, key)]; ok {
		return e.value, true, nil
	}
	return "", false, nil
}

// Set stores the value under the entity-scoped key.
func (s *MetadataStore) Set(ctx context.Context, entityID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[flatten(entityID, key)] = entry{value: value, updatedAt: time.Now()}
	return nil
}

// Delete removes the entity-scoped key if present.
func (s *MetadataStore) Delete(ctx context.Context, entityID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, flatten(entityID, key))
	return nil
}

// Len returns the number of stored entries.
func (s *MetadataStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
