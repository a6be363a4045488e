package cache

import (
	"context"
	"sync"
	"time"
)

// Memory implements Cache with an in-process map.
// Entries expire lazily on access.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

// Get returns the value stored under namespace/key.
func (m *Memory) Get(_ context.Context, namespace, key string) ([]byte, error) {
	k := cacheKey(namespace, key)

	m.mu.RLock()
	entry, ok := m.entries[k]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, k)
		m.mu.Unlock()
		return nil, ErrNotFound
	}

	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, nil
}

// Set stores value under namespace/key with the given TTL.
func (m *Memory) Set(_ context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	entry := memoryEntry{value: stored}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[cacheKey(namespace, key)] = entry
	m.mu.Unlock()
	return nil
}

// Delete removes the value stored under namespace/key.
func (m *Memory) Delete(_ context.Context, namespace, key string) error {
	m.mu.Lock()
	delete(m.entries, cacheKey(namespace, key))
	m.mu.Unlock()
	return nil
}

// Available always reports true for the in-process cache.
func (m *Memory) Available() bool {
	return true
}

// Close clears all entries.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}

// Len returns the number of live entries, counting expired ones
// that have not been collected yet.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Verify Memory implements Cache at compile time.
var _ Cache = (*Memory)(nil)
