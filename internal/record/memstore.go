package record

import (
	"context"
	"slices"
	"sync"

	"github.com/lensapp/lens/internal/schema"
)

// MemStore is an in-memory Store.
type MemStore struct {
	mu      sync.RWMutex
	records map[schema.RecordPath]Record
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{records: make(map[schema.RecordPath]Record)}
}

// Put stores rec at path unconditionally.
func (m *MemStore) Put(path schema.RecordPath, rec Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[path] = Record{Protocol: rec.Protocol, Payload: slices.Clone(rec.Payload)}
}

// Discover implements Discoverer.
func (m *MemStore) Discover(_ context.Context, parent schema.RecordPath, cursor uint32, protocols []schema.Protocol) (Discovery, error) {
	path := ChildPath(parent, cursor)

	m.mu.RLock()
	rec, ok := m.records[path]
	m.mu.RUnlock()

	if !ok {
		return Discovery{}, nil
	}
	if !Accepts(protocols, rec.Protocol) {
		return Discovery{Exists: true}, nil
	}
	return Discovery{Path: path, HasPath: true, Exists: true}, nil
}

// Read implements Reader.
func (m *MemStore) Read(_ context.Context, path schema.RecordPath) (Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[path]
	if !ok {
		return Record{}, false, nil
	}
	return Record{Protocol: rec.Protocol, Payload: slices.Clone(rec.Payload)}, true, nil
}

// Create implements Creator.
func (m *MemStore) Create(_ context.Context, parent schema.RecordPath, protocol schema.Protocol, index uint32, payload []byte) (schema.RecordPath, bool, error) {
	path := ChildPath(parent, index)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[path]; ok {
		return path, true, nil
	}
	m.records[path] = Record{Protocol: protocol, Payload: slices.Clone(payload)}
	return path, false, nil
}

// Len returns the number of stored records.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Close implements Store.
func (m *MemStore) Close() error {
	return nil
}
