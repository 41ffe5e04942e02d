package cachestore

import (
	"context"
	"slices"
	"sync"
)

// Memory is a concurrent in-memory Backend.
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool

	// FailSet, when non-nil, is returned by Set. Tests use it to simulate an
	// unwritable store.
	FailSet error
}

var _ Backend = (*Memory)(nil)

// NewMemory returns an empty Memory backend.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get implements Backend.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	v, ok := m.data[key]
	return slices.Clone(v), ok, nil
}

// Set implements Backend.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.FailSet != nil {
		return m.FailSet
	}
	m.data[key] = slices.Clone(value)
	return nil
}

// Keys implements Backend.
func (m *Memory) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

// Close implements Backend.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
