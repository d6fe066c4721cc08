// Package prefs persists small string-valued preferences. Every backend
// absorbs its own failures: reads fall back to the caller's default and
// writes are fire-and-forget.
package prefs

import (
	"fmt"
	"sync"
)

// Store is a synchronous key-value preference store.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

// StorageError describes a failed or corrupt access to the persistence
// medium. It is only ever logged.
type StorageError struct {
	Op    string
	Key   string
	Cause error
}

func (e StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("preference storage %s failed: %v.", e.Op, e.Cause)
	}
	return fmt.Sprintf("preference storage %s %q failed: %v.", e.Op, e.Key, e.Cause)
}

func (e StorageError) Unwrap() error {
	return e.Cause
}

// MemoryStore keeps preferences for the lifetime of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *MemoryStore) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

func (s *MemoryStore) snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
