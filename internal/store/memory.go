package store

import (
	"context"
	"sync"
)

// MemoryStore is a non-durable Store for demo mode and tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]Entry{}}
}

func (m *MemoryStore) Load(_ context.Context) LoadResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return empty(LoadEmpty, nil)
	}
	out := make(map[string]Entry, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return LoadResult{Entries: out, Status: LoadOK}
}

func (m *MemoryStore) Put(_ context.Context, symbol string, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[symbol] = e
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, symbols ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range symbols {
		delete(m.entries, s)
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }
