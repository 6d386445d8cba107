package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MomentumWatch/internal/model"
)

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "cache.json"))
	res := s.Load(context.Background())
	assert.Equal(t, LoadEmpty, res.Status)
	assert.NotNil(t, res.Entries)
	assert.NoError(t, res.Err)
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.json")
	ctx := context.Background()
	ts := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	entry := Entry{Data: model.Fundamentals{Symbol: "ABCD", FloatShares: 4_200_000, Sector: "Energy"}, Timestamp: ts}

	s := NewFileStore(path)
	s.Load(ctx)
	require.NoError(t, s.Put(ctx, "ABCD", entry))
	require.NoError(t, s.Put(ctx, "WXYZ", Entry{Data: model.Fundamentals{Symbol: "WXYZ"}, Timestamp: ts}))
	require.NoError(t, s.Delete(ctx, "WXYZ"))

	res := NewFileStore(path).Load(ctx)
	require.Equal(t, LoadOK, res.Status)
	require.Len(t, res.Entries, 1)
	got := res.Entries["ABCD"]
	assert.Equal(t, entry.Data, got.Data)
	assert.True(t, ts.Equal(got.Timestamp))
}

func TestFileStore_CorruptFailsOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s := NewFileStore(path)
	res := s.Load(context.Background())
	assert.Equal(t, LoadCorrupt, res.Status)
	assert.Error(t, res.Err)
	assert.Empty(t, res.Entries)

	// The next write replaces the corrupt file.
	require.NoError(t, s.Put(context.Background(), "ABCD", Entry{Timestamp: time.Now()}))
	assert.Equal(t, LoadOK, NewFileStore(path).Load(context.Background()).Status)
}

func TestEntry_Fresh(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	assert.True(t, Entry{Timestamp: now.Add(-23 * time.Hour)}.Fresh(now, 24*time.Hour))
	assert.False(t, Entry{Timestamp: now.Add(-24 * time.Hour)}.Fresh(now, 24*time.Hour))
	assert.False(t, Entry{}.Fresh(now, 24*time.Hour))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	assert.Equal(t, LoadEmpty, m.Load(ctx).Status)
	require.NoError(t, m.Put(ctx, "ABCD", Entry{}))
	assert.Len(t, m.Load(ctx).Entries, 1)
	require.NoError(t, m.Delete(ctx, "ABCD"))
	assert.Equal(t, LoadEmpty, m.Load(ctx).Status)
}
