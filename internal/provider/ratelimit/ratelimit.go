// Package ratelimit gates exchange adapters with a request budget.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"optionflow/internal/market"
	"optionflow/internal/provider"
)

// Adapter wraps a provider.Adapter and waits for a token before each Fetch.
// One Fetch issues two exchange calls and spends one token. Waiting may delay
// a call; it never repeats one.
type Adapter struct {
	next    provider.Adapter
	limiter *rate.Limiter
}

// New allows perMinute fetches with the given burst. perMinute <= 0 disables gating.
func New(next provider.Adapter, perMinute, burst int) *Adapter {
	if perMinute <= 0 {
		return &Adapter{next: next}
	}
	if burst <= 0 {
		burst = 1
	}
	return &Adapter{next: next, limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60), burst)}
}

// MinInterval allows one fetch per interval.
func MinInterval(next provider.Adapter, interval time.Duration) *Adapter {
	if interval <= 0 {
		return &Adapter{next: next}
	}
	return &Adapter{next: next, limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (a *Adapter) Exchange() market.ExchangeID { return a.next.Exchange() }

func (a *Adapter) Fetch(ctx context.Context, currency market.Currency) (provider.RawPayload, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return provider.RawPayload{}, err
		}
	}
	return a.next.Fetch(ctx, currency)
}
