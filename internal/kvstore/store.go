// internal/kvstore/store.go
//
// Abstract key-value blob store for game progress, namespaced per owner
// (account id or anonymous cookie id). The session layer only ever sees
// this interface; implementations may be backed by memory (tests, dev) or
// SQLite (production).

package kvstore

import (
	"context"
	"strings"
	"sync"
)

// Store is the persistence surface for per-player blobs.
type Store interface {
	// Get returns the blob for (owner, key); ok=false when absent.
	Get(ctx context.Context, owner, key string) (value []byte, ok bool, err error)

	// Set writes or replaces the blob for (owner, key).
	Set(ctx context.Context, owner, key string, value []byte) error

	// Delete removes (owner, key); deleting an absent key is not an error.
	Delete(ctx context.Context, owner, key string) error

	// Keys lists an owner's keys with the given prefix, in no particular
	// order.
	Keys(ctx context.Context, owner, prefix string) ([]string, error)
}

// memory is a map-based Store for tests and durability-free development.
type memory struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte // owner -> key -> blob
}

// NewMemory constructs an in-memory Store.
func NewMemory() Store {
	return &memory{data: make(map[string]map[string][]byte)}
}

func (m *memory) Get(ctx context.Context, owner, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[owner][key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *memory) Set(ctx context.Context, owner, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.data[owner]
	if !ok {
		bucket = make(map[string][]byte)
		m.data[owner] = bucket
	}
	bucket[key] = append([]byte(nil), value...)
	return nil
}

func (m *memory) Delete(ctx context.Context, owner, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[owner], key)
	return nil
}

func (m *memory) Keys(ctx context.Context, owner, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for k := range m.data[owner] {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}
