// Package keyed implements the insertion-ordered associative container shared
// by the provider and action collections.
package keyed

import (
	"fmt"
	"sync"
)

// DuplicateKeyError is returned by Insert when the key is already present.
type DuplicateKeyError struct {
	Kind string
	Key  string
}

func (e *DuplicateKeyError) Error() string {
	kind := e.Kind
	if kind == "" {
		kind = "entry"
	}
	return fmt.Sprintf("duplicate %s key: %q", kind, e.Key)
}

// Entry is a stored value together with its key.
type Entry[T any] struct {
	Key   string
	Value T
}

// Map is a string-keyed map that remembers insertion order. Overwriting a key
// keeps its original position. Safe for concurrent use.
type Map[T any] struct {
	kind  string
	mu    sync.RWMutex
	items map[string]T
	order []string
}

// New creates an empty Map. kind names the stored values in error messages.
func New[T any](kind string) *Map[T] {
	return &Map[T]{
		kind:  kind,
		items: make(map[string]T),
	}
}

// Insert adds v under key, failing with *DuplicateKeyError if key exists.
func (m *Map[T]) Insert(key string, v T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.items[key]; exists {
		return &DuplicateKeyError{Kind: m.kind, Key: key}
	}
	m.items[key] = v
	m.order = append(m.order, key)
	return nil
}

// Set stores v under key, replacing any existing value.
func (m *Map[T]) Set(key string, v T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.items[key]; !exists {
		m.order = append(m.order, key)
	}
	m.items[key] = v
}

// Delete removes key. Missing keys are ignored.
func (m *Map[T]) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.items[key]; !exists {
		return
	}
	delete(m.items, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *Map[T]) Get(key string) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok
}

func (m *Map[T]) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

func (m *Map[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Keys returns the keys in insertion order.
func (m *Map[T]) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, len(m.order))
	copy(keys, m.order)
	return keys
}

// Entries returns a snapshot of all entries in insertion order.
func (m *Map[T]) Entries() []Entry[T] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]Entry[T], 0, len(m.order))
	for _, k := range m.order {
		entries = append(entries, Entry[T]{Key: k, Value: m.items[k]})
	}
	return entries
}
