// Package app assembles a board from configuration for the binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"optionflow/internal/board"
	"optionflow/internal/config"
	"optionflow/internal/httpx"
	"optionflow/internal/logger"
	"optionflow/internal/metrics"
	"optionflow/internal/provider"
	"optionflow/internal/provider/cache"
	"optionflow/internal/provider/deribit"
	"optionflow/internal/provider/okx"
	"optionflow/internal/provider/ratelimit"
)

// App owns the board and whatever it needs closed on shutdown.
type App struct {
	Board   *board.Board
	Metrics *metrics.Metrics

	closers []func() error
}

// Adapters builds the enabled exchange adapters, each behind its request budget.
func Adapters(cfg config.Config, hc provider.HTTPClient, log *logger.Log) []provider.Adapter {
	var out []provider.Adapter
	if cfg.Deribit.Enabled {
		var a provider.Adapter = deribit.New(
			deribit.WithBaseURL(cfg.Deribit.BaseURL),
			deribit.WithPaths(cfg.Deribit.ListingPath, cfg.Deribit.IndexPath),
			deribit.WithHTTPClient(hc),
			deribit.WithTimeout(cfg.Deribit.Timeout()),
			deribit.WithLogger(log),
		)
		out = append(out, limit(a, cfg.Deribit))
	}
	if cfg.OKX.Enabled {
		var a provider.Adapter = okx.New(
			okx.WithBaseURL(cfg.OKX.BaseURL),
			okx.WithPaths(cfg.OKX.ListingPath, cfg.OKX.IndexPath),
			okx.WithFamilyParam(cfg.OKX.FamilyParam),
			okx.WithQuote(cfg.OKX.Quote),
			okx.WithHTTPClient(hc),
			okx.WithTimeout(cfg.OKX.Timeout()),
			okx.WithLogger(log),
		)
		out = append(out, limit(a, cfg.OKX))
	}
	return out
}

// limit prefers a per-minute budget with burst, otherwise a minimum interval.
func limit(a provider.Adapter, e config.Exchange) provider.Adapter {
	switch {
	case e.MaxRequestsPerMinute > 0:
		return ratelimit.New(a, e.MaxRequestsPerMinute, e.Burst)
	case e.MinRequestIntervalSec > 0:
		return ratelimit.MinInterval(a, e.MinInterval())
	}
	return a
}

// New wires adapters, store and board according to cfg.
func New(ctx context.Context, cfg config.Config, log *logger.Log) (*App, error) {
	m := metrics.New()
	a := &App{Metrics: m}

	hc := httpx.New(2 * maxTimeout(cfg))
	opts := []board.Option{
		board.WithTTL(cfg.Cache.TTL()),
		board.WithMetrics(m),
		board.WithLogger(log),
	}

	if cfg.Cache.Backend == "redis" {
		store, err := cache.NewRedisStore(cfg.Cache.RedisURL)
		if err != nil {
			return nil, err
		}
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		opts = append(opts, board.WithStore(store))
		log.WithComponent("app").Info("using redis snapshot store")
	}

	a.Board = board.New(Adapters(cfg, hc, log), opts...)
	return a, nil
}

func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func maxTimeout(cfg config.Config) time.Duration {
	d := provider.DefaultTimeout
	for _, t := range []time.Duration{cfg.Deribit.Timeout(), cfg.OKX.Timeout()} {
		if t > d {
			d = t
		}
	}
	return d
}
