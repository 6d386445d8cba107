// Package fundamentals serves per-symbol fundamentals from a durable cache,
// fetching what is missing or stale in small rate-limited groups.
package fundamentals

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"MomentumWatch/internal/collector"
	"MomentumWatch/internal/metrics"
	"MomentumWatch/internal/model"
	"MomentumWatch/internal/store"
)

const (
	// DefaultMaxAge is how long a fetched record stays fresh.
	DefaultMaxAge = 24 * time.Hour
	// DefaultGroupDelay separates consecutive fetch groups.
	DefaultGroupDelay = 200 * time.Millisecond
	// DefaultConcurrency is used when a caller passes a non-positive group size.
	DefaultConcurrency = 3
)

// Client is the fundamentals cache. It is safe for concurrent use.
type Client struct {
	fetcher collector.ProfileFetcher
	store   store.Store
	maxAge  time.Duration
	delay   time.Duration
	now     func() time.Time
	metrics *metrics.Metrics

	mu      sync.Mutex
	entries map[string]store.Entry
}

// Option configures a Client.
type Option func(*Client)

// WithMaxAge sets how long a fetched record stays fresh.
func WithMaxAge(d time.Duration) Option { return func(c *Client) { c.maxAge = d } }

// WithGroupDelay sets the pause between fetch groups. Zero disables it.
func WithGroupDelay(d time.Duration) Option { return func(c *Client) { c.delay = d } }

// WithClock replaces time.Now for freshness checks.
func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

// WithMetrics records cache hits and misses on m.
func WithMetrics(m *metrics.Metrics) Option { return func(c *Client) { c.metrics = m } }

// New creates a Client and loads whatever the store holds. An unreadable
// store is logged and the cache starts empty.
func New(ctx context.Context, fetcher collector.ProfileFetcher, st store.Store, opts ...Option) *Client {
	c := &Client{
		fetcher: fetcher,
		store:   st,
		maxAge:  DefaultMaxAge,
		delay:   DefaultGroupDelay,
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}

	res := st.Load(ctx)
	switch res.Status {
	case store.LoadCorrupt:
		log.Warn().Err(res.Err).Msg("fundamentals cache unreadable, starting empty")
	case store.LoadOK:
		log.Info().Int("entries", len(res.Entries)).Msg("fundamentals cache loaded")
	}
	c.entries = res.Entries
	return c
}

// Lookup returns the cached record for symbol if it is still fresh.
// A stale row is a miss even though it remains stored until overwritten.
func (c *Client) Lookup(symbol string) (model.Fundamentals, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[symbol]
	if !ok || !e.Fresh(c.now(), c.maxAge) {
		return model.Fundamentals{}, false
	}
	return e.Data, true
}

// Get returns fundamentals for as many of symbols as possible. Fresh cache
// entries are used as-is; the rest are fetched concurrency at a time with a
// fixed pause between groups. Symbols whose fetch fails or comes back empty
// are simply absent from the result.
func (c *Client) Get(ctx context.Context, symbols []string, concurrency int) map[string]model.Fundamentals {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	result := make(map[string]model.Fundamentals, len(symbols))
	var missing []string
	seen := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		if f, ok := c.Lookup(sym); ok {
			c.metrics.CacheHit()
			result[sym] = f
			continue
		}
		c.metrics.CacheMiss()
		missing = append(missing, sym)
	}

	var resMu sync.Mutex
	for start := 0; start < len(missing); start += concurrency {
		if start > 0 && !sleep(ctx, c.delay) {
			break
		}
		end := start + concurrency
		if end > len(missing) {
			end = len(missing)
		}

		var wg sync.WaitGroup
		for _, sym := range missing[start:end] {
			wg.Add(1)
			go func(sym string) {
				defer wg.Done()
				f, ok := c.fetch(ctx, sym)
				if !ok {
					return
				}
				resMu.Lock()
				result[sym] = f
				resMu.Unlock()
			}(sym)
		}
		wg.Wait()
	}
	return result
}

func (c *Client) fetch(ctx context.Context, symbol string) (model.Fundamentals, bool) {
	f, found, err := c.fetcher.FetchProfile(ctx, symbol)
	if err != nil {
		log.Debug().Err(err).Str("symbol", symbol).Msg("fundamentals fetch failed")
		return model.Fundamentals{}, false
	}
	if !found {
		return model.Fundamentals{}, false
	}
	c.put(ctx, symbol, f)
	return f, true
}

func (c *Client) put(ctx context.Context, symbol string, f model.Fundamentals) {
	e := store.Entry{Data: f, Timestamp: c.now()}
	c.mu.Lock()
	c.entries[symbol] = e
	c.mu.Unlock()

	if err := c.store.Put(ctx, symbol, e); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("persist fundamentals cache")
	}
}

// Purge drops stale entries from memory and from the store and returns how
// many were removed.
func (c *Client) Purge(ctx context.Context) int {
	now := c.now()
	c.mu.Lock()
	var stale []string
	for sym, e := range c.entries {
		if !e.Fresh(now, c.maxAge) {
			stale = append(stale, sym)
			delete(c.entries, sym)
		}
	}
	c.mu.Unlock()

	if len(stale) == 0 {
		return 0
	}
	if err := c.store.Delete(ctx, stale...); err != nil {
		log.Warn().Err(err).Int("count", len(stale)).Msg("purge fundamentals cache")
	}
	return len(stale)
}

// Len is the number of cached rows, fresh or not.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// sleep waits d or until ctx is done; it reports whether to continue.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
