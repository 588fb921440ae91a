package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps records in a map. It is used for tests and the
// in-process simulation.
type MemoryStore struct {
	mu      sync.Mutex
	records map[Key]*Record
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[Key]*Record{}}
}

func (m *MemoryStore) Get(ctx context.Context, key Key) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &Record{Key: key, Version: rec.Version, Data: copyBytes(rec.Data)}, nil
}

func (m *MemoryStore) CompareAndSwap(ctx context.Context, key Key, expected int, data []byte) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := 0
	if rec, ok := m.records[key]; ok {
		current = rec.Version
	}
	if current != expected {
		return nil, ErrVersionConflict
	}
	rec := &Record{Key: key, Version: current + 1, Data: copyBytes(data)}
	m.records[key] = rec
	return &Record{Key: key, Version: rec.Version, Data: copyBytes(data)}, nil
}

// Len is the number of stored records
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *MemoryStore) Close() error {
	return nil
}
