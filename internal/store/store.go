// Package store persists the fundamentals cache as a flat symbol-keyed mapping.
package store

import (
	"context"
	"time"

	"MomentumWatch/internal/model"
)

// Entry is one cached fundamentals record and the time it was fetched.
type Entry struct {
	Data      model.Fundamentals `json:"data"`
	Timestamp time.Time          `json:"timestamp"`
}

// Fresh reports whether the entry is younger than maxAge at now.
func (e Entry) Fresh(now time.Time, maxAge time.Duration) bool {
	return !e.Timestamp.IsZero() && now.Sub(e.Timestamp) < maxAge
}

// LoadStatus tells the caller how a Load went without forcing an error path.
type LoadStatus int

const (
	// LoadOK means stored data was read and decoded.
	LoadOK LoadStatus = iota
	// LoadEmpty means nothing was stored yet.
	LoadEmpty
	// LoadCorrupt means stored data could not be read or decoded; it is treated as empty.
	LoadCorrupt
)

func (s LoadStatus) String() string {
	switch s {
	case LoadOK:
		return "ok"
	case LoadEmpty:
		return "empty"
	case LoadCorrupt:
		return "corrupt"
	default:
		return "unknown"
	}
}

// LoadResult is the outcome of reading the whole mapping. Entries is never nil.
// Err carries the cause when Status is LoadCorrupt.
type LoadResult struct {
	Entries map[string]Entry
	Status  LoadStatus
	Err     error
}

func empty(status LoadStatus, err error) LoadResult {
	return LoadResult{Entries: map[string]Entry{}, Status: status, Err: err}
}

// Store is a durable key-value backend. Writes are last-writer-wins.
type Store interface {
	Load(ctx context.Context) LoadResult
	Put(ctx context.Context, symbol string, e Entry) error
	Delete(ctx context.Context, symbols ...string) error
	Close() error
}
