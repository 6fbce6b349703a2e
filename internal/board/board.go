// Package board answers presentation requests: it reads snapshots through the
// cache, aggregates them and reports failures as descriptors.
package board

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"optionflow/internal/aggregate"
	"optionflow/internal/logger"
	"optionflow/internal/market"
	"optionflow/internal/metrics"
	"optionflow/internal/normalize"
	"optionflow/internal/provider"
	"optionflow/internal/provider/cache"
)

// Result is the outbound contract of every board call. Exactly one of View,
// Quotes or Expirations is the payload; Error and Notice describe problems.
type Result struct {
	Exchange    market.ExchangeID    `json:"exchange"`
	Currency    market.Currency      `json:"currency"`
	SnapshotID  string               `json:"snapshot_id,omitempty"`
	FetchedAt   *time.Time           `json:"fetched_at,omitempty"`
	IndexPrice  decimal.NullDecimal  `json:"index_price"`
	Dropped     int                  `json:"dropped,omitempty"`
	Expiration  string               `json:"expiration,omitempty"`
	Expirations []string             `json:"expirations,omitempty"`
	View        *aggregate.View      `json:"view,omitempty"`
	Quotes      []market.OptionQuote `json:"quotes,omitempty"`
	Error       *ErrorDescriptor     `json:"error,omitempty"`
	Notice      *ErrorDescriptor     `json:"notice,omitempty"`
}

// Board wires adapters, normalizer, snapshot cache and aggregator.
type Board struct {
	adapters   map[market.ExchangeID]provider.Adapter
	normalizer *normalize.Normalizer
	cache      *cache.SnapshotCache
	ttl        time.Duration

	cacheOpts []cache.Option
	metrics   *metrics.Metrics
	logRoot   *logger.Log
	log       *logger.Entry
}

type Option func(*Board)

// WithTTL sets the snapshot freshness window.
func WithTTL(ttl time.Duration) Option {
	return func(b *Board) { b.ttl = ttl }
}

// WithStore selects the snapshot store (memory by default).
func WithStore(s cache.Store) Option {
	return func(b *Board) { b.cacheOpts = append(b.cacheOpts, cache.WithStore(s)) }
}

// WithClock injects the cache clock.
func WithClock(now func() time.Time) Option {
	return func(b *Board) { b.cacheOpts = append(b.cacheOpts, cache.WithClock(now)) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Board) { b.metrics = m }
}

func WithLogger(l *logger.Log) Option {
	return func(b *Board) {
		if l != nil {
			b.logRoot = l
			b.log = l.WithComponent("board")
		}
	}
}

// New builds a board serving the given adapters, one per exchange.
func New(adapters []provider.Adapter, opts ...Option) *Board {
	b := &Board{
		adapters: make(map[market.ExchangeID]provider.Adapter, len(adapters)),
		ttl:      cache.DefaultTTL,
		log:      logger.GetLogger().WithComponent("board"),
	}
	for _, a := range adapters {
		b.adapters[a.Exchange()] = a
	}
	for _, opt := range opts {
		opt(b)
	}

	b.normalizer = normalize.New(normalize.WithMetrics(b.metrics), normalize.WithLogger(b.logRoot))
	cacheOpts := append([]cache.Option{cache.WithMetrics(b.metrics), cache.WithLogger(b.logRoot)}, b.cacheOpts...)
	b.cache = cache.New(b.fetch, cacheOpts...)
	return b
}

// Exchanges lists the enabled exchanges in name order.
func (b *Board) Exchanges() []market.ExchangeID {
	out := make([]market.ExchangeID, 0, len(b.adapters))
	for id := range b.adapters {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Snapshot returns the cached snapshot, fetching it when stale.
func (b *Board) Snapshot(ctx context.Context, exchange market.ExchangeID, currency market.Currency) (market.Snapshot, error) {
	if _, ok := b.adapters[exchange]; !ok {
		return market.Snapshot{}, &UnsupportedError{Field: "exchange", Value: string(exchange)}
	}
	return b.cache.GetOrFetch(ctx, cache.Key{Exchange: exchange, Currency: currency}, b.ttl)
}

// Expirations lists the expiration dates available for exchange and currency.
func (b *Board) Expirations(ctx context.Context, exchange, currency string) Result {
	snap, res, ok := b.load(ctx, exchange, currency)
	if !ok {
		return res
	}
	exps := aggregate.Expirations(snap)
	res.Expirations = make([]string, len(exps))
	for i, e := range exps {
		res.Expirations[i] = e.Format(market.DateLayout)
	}
	res.Notice = snapshotNotice(snap)
	return res
}

// View aggregates one expiration. An empty expiration selects the earliest one.
func (b *Board) View(ctx context.Context, exchange, currency, expiration string) Result {
	snap, res, exp, ok := b.loadExpiration(ctx, exchange, currency, expiration)
	if !ok {
		return res
	}
	v := aggregate.BuildView(snap, exp)
	res.View = &v
	res.Notice = viewNotice(snap, v.Empty())
	return res
}

// Quotes returns the raw rows of one expiration, ordered like the view.
func (b *Board) Quotes(ctx context.Context, exchange, currency, expiration string) Result {
	snap, res, exp, ok := b.loadExpiration(ctx, exchange, currency, expiration)
	if !ok {
		return res
	}
	res.Quotes = aggregate.Filter(snap, exp)
	res.Notice = viewNotice(snap, len(res.Quotes) == 0)
	return res
}

func (b *Board) loadExpiration(ctx context.Context, exchange, currency, expiration string) (market.Snapshot, Result, time.Time, bool) {
	res, ok := parseNames(exchange, currency)
	if !ok {
		return market.Snapshot{}, res, time.Time{}, false
	}
	var exp time.Time
	if expiration != "" {
		var err error
		if exp, err = market.ParseDate(expiration); err != nil {
			res.Error = Describe(&UnsupportedError{Field: "expiration", Value: expiration})
			return market.Snapshot{}, res, exp, false
		}
	}
	snap, res, ok := b.read(ctx, res)
	if !ok {
		return snap, res, exp, false
	}
	if exp.IsZero() {
		if exps := aggregate.Expirations(snap); len(exps) > 0 {
			exp = exps[0]
		}
	}
	if !exp.IsZero() {
		res.Expiration = exp.Format(market.DateLayout)
	}
	return snap, res, exp, true
}

// load validates inbound names and reads the snapshot. On failure the
// returned Result carries the descriptor and ok is false.
func (b *Board) load(ctx context.Context, exchange, currency string) (market.Snapshot, Result, bool) {
	res, ok := parseNames(exchange, currency)
	if !ok {
		return market.Snapshot{}, res, false
	}
	return b.read(ctx, res)
}

// parseNames fills Exchange and Currency, or sets an unsupported descriptor.
func parseNames(exchange, currency string) (Result, bool) {
	ex, err := market.ParseExchange(exchange)
	if err != nil {
		return Result{Error: Describe(&UnsupportedError{Field: "exchange", Value: exchange})}, false
	}
	cur, err := market.ParseCurrency(currency)
	if err != nil {
		return Result{Exchange: ex, Error: Describe(&UnsupportedError{Field: "currency", Value: currency})}, false
	}
	return Result{Exchange: ex, Currency: cur}, true
}

// read fills res from the cached snapshot of its exchange and currency.
func (b *Board) read(ctx context.Context, res Result) (market.Snapshot, Result, bool) {
	ex, cur := res.Exchange, res.Currency
	snap, err := b.Snapshot(ctx, ex, cur)
	if err != nil {
		res.Error = Describe(err)
		b.log.WithError(err).WithFields(logger.Fields{
			"exchange": ex,
			"currency": cur,
			"kind":     res.Error.Kind,
		}).Warn("snapshot unavailable")
		return snap, res, false
	}

	fetched := snap.FetchedAt
	res.SnapshotID = snap.ID
	res.FetchedAt = &fetched
	res.IndexPrice = snap.IndexPrice
	res.Dropped = snap.Dropped
	return snap, res, true
}

func snapshotNotice(snap market.Snapshot) *ErrorDescriptor {
	if snap.Empty() {
		return Describe(&provider.EmptyResultError{Exchange: snap.Exchange, Currency: snap.Currency})
	}
	if !snap.HasIndex() {
		return &ErrorDescriptor{Kind: KindIndexMissing, Message: "index price unavailable; quotes shown without reference line"}
	}
	return nil
}

func viewNotice(snap market.Snapshot, empty bool) *ErrorDescriptor {
	if n := snapshotNotice(snap); n != nil && n.Kind == KindEmpty {
		return n
	}
	if empty {
		return &ErrorDescriptor{Kind: KindNoQuotes, Message: "no quotes for the selected expiration"}
	}
	return snapshotNotice(snap)
}

// fetch is the cache's miss path: adapter, then normalizer.
func (b *Board) fetch(ctx context.Context, key cache.Key) (market.Snapshot, error) {
	a, ok := b.adapters[key.Exchange]
	if !ok {
		return market.Snapshot{}, &UnsupportedError{Field: "exchange", Value: string(key.Exchange)}
	}
	log := b.log.WithFields(logger.Fields{"exchange": key.Exchange, "currency": key.Currency})

	start := time.Now()
	payload, err := a.Fetch(ctx, key.Currency)
	b.metrics.ObserveFetch(string(key.Exchange), outcome(err), time.Since(start))
	if err != nil {
		return market.Snapshot{}, err
	}
	if payload.IndexErr != nil {
		b.metrics.IndexFailed(string(key.Exchange))
	}

	snap, rep, err := b.normalizer.Normalize(payload)
	if err != nil {
		return market.Snapshot{}, err
	}
	log.WithFields(logger.Fields{
		"snapshot": snap.ID,
		"records":  rep.Total,
		"kept":     rep.Kept,
		"dropped":  rep.Dropped,
		"index":    snap.HasIndex(),
		"took_ms":  time.Since(start).Milliseconds(),
	}).Info("snapshot fetched")
	return snap, nil
}

func outcome(err error) string {
	if err == nil {
		return metrics.OutcomeOK
	}
	var (
		timeout  *provider.TimeoutError
		httpErr  *provider.HTTPError
		netErr   *provider.NetworkError
		parseErr *provider.ParseError
	)
	switch {
	case errors.As(err, &timeout):
		return metrics.OutcomeTimeout
	case errors.As(err, &httpErr):
		return metrics.OutcomeHTTP
	case errors.As(err, &netErr):
		return metrics.OutcomeNetwork
	case errors.As(err, &parseErr):
		return metrics.OutcomeParse
	}
	return metrics.OutcomeOther
}
