package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryStore keeps entries in process.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[Key]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[Key]Entry)}
}

func (m *MemoryStore) Get(_ context.Context, key Key) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.items[key]
	return e, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key Key, e Entry, _ time.Duration) error {
	m.mu.Lock()
	m.items[key] = e
	m.mu.Unlock()
	return nil
}

const redisKeyPrefix = "optionflow:snapshot:"

// RedisStore shares entries between server replicas. Entries are JSON and
// expire in Redis after the TTL they were written with.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects using a redis:// URL.
func NewRedisStore(url string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisStore{client: redis.NewClient(opt)}, nil
}

func redisKey(k Key) string {
	return redisKeyPrefix + string(k.Exchange) + ":" + string(k.Currency)
}

func (r *RedisStore) Get(ctx context.Context, key Key) (Entry, bool, error) {
	b, err := r.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("redis get %s: %w", redisKey(key), err)
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode cached snapshot: %w", err)
	}
	return e, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key Key, e Entry, ttl time.Duration) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return r.client.Set(ctx, redisKey(key), b, ttl).Err()
}

// Ping checks connectivity.
func (r *RedisStore) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }

func (r *RedisStore) Close() error { return r.client.Close() }
