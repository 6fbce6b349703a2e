// Package cache memoizes normalized snapshots per (exchange, currency) for a TTL.
package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"optionflow/internal/logger"
	"optionflow/internal/market"
	"optionflow/internal/metrics"
)

// DefaultTTL applies when GetOrFetch is called with ttl <= 0.
const DefaultTTL = 300 * time.Second

// Key identifies one cached snapshot.
type Key struct {
	Exchange market.ExchangeID
	Currency market.Currency
}

func (k Key) String() string { return string(k.Exchange) + ":" + string(k.Currency) }

// Entry is what a Store keeps per key.
type Entry struct {
	Snapshot  market.Snapshot `json:"snapshot"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Store persists entries. Freshness is decided by SnapshotCache, not the store.
type Store interface {
	Get(ctx context.Context, key Key) (Entry, bool, error)
	Set(ctx context.Context, key Key, e Entry, ttl time.Duration) error
}

// FetchFunc produces a fresh snapshot for key, typically adapter + normalizer.
type FetchFunc func(ctx context.Context, key Key) (market.Snapshot, error)

// SnapshotCache serves a stored snapshot while it is younger than the TTL and
// fetches otherwise. A failed fetch is returned as is: an expired entry is
// never served in its place.
type SnapshotCache struct {
	fetch   FetchFunc
	store   Store
	now     func() time.Time
	log     *logger.Entry
	metrics *metrics.Metrics

	// coalesce concurrent misses per key
	sf singleflight.Group
}

type Option func(*SnapshotCache)

// WithStore replaces the default in-process store.
func WithStore(s Store) Option {
	return func(c *SnapshotCache) {
		if s != nil {
			c.store = s
		}
	}
}

// WithClock injects the time source used for freshness checks.
func WithClock(now func() time.Time) Option {
	return func(c *SnapshotCache) {
		if now != nil {
			c.now = now
		}
	}
}

func WithLogger(l *logger.Log) Option {
	return func(c *SnapshotCache) {
		if l != nil {
			c.log = l.WithComponent("cache")
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *SnapshotCache) { c.metrics = m }
}

func New(fetch FetchFunc, opts ...Option) *SnapshotCache {
	c := &SnapshotCache{
		fetch: fetch,
		store: NewMemoryStore(),
		now:   time.Now,
		log:   logger.GetLogger().WithComponent("cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrFetch returns the snapshot for key, fetching it when the stored entry
// is missing or at least ttl old.
func (c *SnapshotCache) GetOrFetch(ctx context.Context, key Key, ttl time.Duration) (market.Snapshot, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	log := c.log.WithFields(logger.Fields{"exchange": key.Exchange, "currency": key.Currency})

	if e, ok := c.fresh(ctx, key, ttl, log); ok {
		c.metrics.CacheLookup(string(key.Exchange), true)
		return e.Snapshot, nil
	}
	c.metrics.CacheLookup(string(key.Exchange), false)

	// the flight outlives any single caller
	flightCtx := context.WithoutCancel(ctx)
	ch := c.sf.DoChan(key.String(), func() (any, error) {
		// a flight that finished after our read may already have stored it
		if e, ok := c.fresh(flightCtx, key, ttl, log); ok {
			return e.Snapshot, nil
		}
		snap, err := c.fetch(flightCtx, key)
		if err != nil {
			return nil, err
		}
		entry := Entry{Snapshot: snap, FetchedAt: c.now()}
		if err := c.store.Set(flightCtx, key, entry, ttl); err != nil {
			log.WithError(err).Warn("cache write failed")
		}
		log.WithFields(logger.Fields{"snapshot": snap.ID, "quotes": len(snap.Quotes)}).Debug("snapshot refreshed")
		return snap, nil
	})

	select {
	case <-ctx.Done():
		return market.Snapshot{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return market.Snapshot{}, res.Err
		}
		return res.Val.(market.Snapshot), nil
	}
}

// fresh returns the stored entry when it is younger than ttl. Read errors count as a miss.
func (c *SnapshotCache) fresh(ctx context.Context, key Key, ttl time.Duration, log *logger.Entry) (Entry, bool) {
	e, ok, err := c.store.Get(ctx, key)
	if err != nil {
		log.WithError(err).Warn("cache read failed, treating as miss")
		return Entry{}, false
	}
	if !ok || c.now().Sub(e.FetchedAt) >= ttl {
		return Entry{}, false
	}
	return e, true
}
