// Package localstore provides the synchronous key-value stores used as a
// best-effort fallback when the remote document store is unreachable.
package localstore

import (
	"sync"
)

// IStore encompasses all interactions with a local key-value store.
type IStore interface {
	Get(string) ([]byte, bool)
	Set(string, []byte) error
}

// NewMemory creates a new Memory instance.
func NewMemory() *Memory {
	return &Memory{
		mutex:  new(sync.RWMutex),
		values: make(map[string][]byte),
	}
}

// Memory is a process scoped IStore.
type Memory struct {
	mutex  *sync.RWMutex
	values map[string][]byte
}

// Get retrieves the value of key. The second return value is false if key
// does not exist.
func (m Memory) Get(key string) ([]byte, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	val, ok := m.values[key]
	if !ok {
		return nil, false
	}
	return clone(val), true
}

// Set replaces the value of key.
func (m Memory) Set(key string, val []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.values[key] = clone(val)
	return nil
}

// NewPrefixed creates a Prefixed instance that namespaces every key of store
// with prefix.
func NewPrefixed(store IStore, prefix string) *Prefixed {
	return &Prefixed{store: store, prefix: prefix}
}

// Prefixed scopes an IStore to a single browser or process.
type Prefixed struct {
	store  IStore
	prefix string
}

// Get wraps IStore.Get.
func (p Prefixed) Get(key string) ([]byte, bool) {
	return p.store.Get(p.prefix + key)
}

// Set wraps IStore.Set.
func (p Prefixed) Set(key string, val []byte) error {
	return p.store.Set(p.prefix+key, val)
}

// --- helpers ---

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
