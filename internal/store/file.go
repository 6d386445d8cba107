package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps the whole mapping in one JSON file, rewritten on every change.
type FileStore struct {
	mu       sync.Mutex
	filePath string
	entries  map[string]Entry
}

// NewFileStore prepares a store at filePath. The file is read lazily by Load.
func NewFileStore(filePath string) *FileStore {
	return &FileStore{filePath: filePath, entries: map[string]Entry{}}
}

// Load reads the file. A missing file is LoadEmpty; unreadable or malformed
// JSON is LoadCorrupt and the in-memory mapping restarts empty.
func (s *FileStore) Load(_ context.Context) LoadResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		s.entries = map[string]Entry{}
		if os.IsNotExist(err) {
			return empty(LoadEmpty, nil)
		}
		return empty(LoadCorrupt, err)
	}
	if len(data) == 0 {
		s.entries = map[string]Entry{}
		return empty(LoadEmpty, nil)
	}
	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.entries = map[string]Entry{}
		return empty(LoadCorrupt, fmt.Errorf("decode %s: %w", s.filePath, err))
	}
	if entries == nil {
		entries = map[string]Entry{}
	}
	s.entries = entries

	out := make(map[string]Entry, len(entries))
	for k, v := range entries {
		out[k] = v
	}
	return LoadResult{Entries: out, Status: LoadOK}
}

func (s *FileStore) Put(_ context.Context, symbol string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[symbol] = e
	return s.save()
}

func (s *FileStore) Delete(_ context.Context, symbols ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sym := range symbols {
		delete(s.entries, sym)
	}
	return s.save()
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) save() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.filePath, data, 0644)
}
