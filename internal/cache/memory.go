package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is an in-process Store backed by go-cache. Entries are
// last-writer-wins; concurrent scans of the same hostname may race on
// reachability writes and either value is acceptable within the TTL.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates a memory store. defaultTTL applies when a Set
// passes ttl <= 0.
func NewMemoryStore(defaultTTL, cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a value.
func (s *MemoryStore) Get(ns Namespace, key string) ([]byte, bool) {
	if val, found := s.cache.Get(Key(ns, key)); found {
		return val.([]byte), true
	}
	return nil, false
}

// Set stores a value with the given TTL.
func (s *MemoryStore) Set(ns Namespace, key string, value []byte, ttl time.Duration) error {
	s.cache.Set(Key(ns, key), value, ttl)
	return nil
}

// Delete removes a value.
func (s *MemoryStore) Delete(ns Namespace, key string) error {
	s.cache.Delete(Key(ns, key))
	return nil
}

// Clear removes all values.
func (s *MemoryStore) Clear() error {
	s.cache.Flush()
	return nil
}
