package cache

import "time"

// LayeredStore checks memory first, then disk, promoting disk hits into
// memory. Writes go to both layers.
type LayeredStore struct {
	memory Store
	disk   Store
}

// NewLayeredStore creates a layered store over a fresh memory layer and
// a disk layer rooted at diskDir.
func NewLayeredStore(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredStore {
	return &LayeredStore{
		memory: NewMemoryStore(memoryTTL, 10*time.Minute),
		disk:   NewDiskStore(diskDir, diskTTL),
	}
}

// Get retrieves a value, promoting disk hits to memory with the memory
// layer's default TTL.
func (s *LayeredStore) Get(ns Namespace, key string) ([]byte, bool) {
	if val, found := s.memory.Get(ns, key); found {
		return val, true
	}

	if val, found := s.disk.Get(ns, key); found {
		_ = s.memory.Set(ns, key, val, 0)
		return val, true
	}

	return nil, false
}

// Set stores a value in both layers.
func (s *LayeredStore) Set(ns Namespace, key string, value []byte, ttl time.Duration) error {
	if err := s.memory.Set(ns, key, value, ttl); err != nil {
		return err
	}
	return s.disk.Set(ns, key, value, ttl)
}

// Delete removes a value from both layers.
func (s *LayeredStore) Delete(ns Namespace, key string) error {
	_ = s.memory.Delete(ns, key)
	_ = s.disk.Delete(ns, key)
	return nil
}

// Clear removes all values from both layers.
func (s *LayeredStore) Clear() error {
	_ = s.memory.Clear()
	return s.disk.Clear()
}
