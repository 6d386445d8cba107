package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DefaultRedisKey is the hash holding one field per symbol.
const DefaultRedisKey = "fundamentals:cache"

// RedisStore keeps the mapping in a single Redis hash. Freshness is judged
// by the entry timestamp, not a Redis TTL, so stale rows stay until overwritten.
type RedisStore struct {
	rdb *redis.Client
	key string
}

// NewRedisStore connects and pings Redis. An empty key uses DefaultRedisKey.
func NewRedisStore(ctx context.Context, addr, password string, db int, key string) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if key == "" {
		key = DefaultRedisKey
	}
	return NewRedisStoreFromClient(rdb, key), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(rdb *redis.Client, key string) *RedisStore {
	return &RedisStore{rdb: rdb, key: key}
}

// Load reads the hash. Fields that fail to decode are skipped; a read error
// yields LoadCorrupt.
func (r *RedisStore) Load(ctx context.Context) LoadResult {
	raw, err := r.rdb.HGetAll(ctx, r.key).Result()
	if err != nil {
		return empty(LoadCorrupt, fmt.Errorf("hgetall %s: %w", r.key, err))
	}
	if len(raw) == 0 {
		return empty(LoadEmpty, nil)
	}
	out := make(map[string]Entry, len(raw))
	for sym, v := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			log.Debug().Str("symbol", sym).Err(err).Msg("skipping malformed cache row")
			continue
		}
		out[sym] = e
	}
	return LoadResult{Entries: out, Status: LoadOK}
}

func (r *RedisStore) Put(ctx context.Context, symbol string, e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := r.rdb.HSet(ctx, r.key, symbol, string(b)).Err(); err != nil {
		return fmt.Errorf("hset %s: %w", symbol, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, symbols ...string) error {
	if len(symbols) == 0 {
		return nil
	}
	return r.rdb.HDel(ctx, r.key, symbols...).Err()
}

func (r *RedisStore) Close() error { return r.rdb.Close() }
