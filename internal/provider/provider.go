package provider

import (
	"context"
	"net/http"
	"time"

	"optionflow/internal/market"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -destination=mocks/mock_http_client.go -package=mocks . HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RawRecord is one instrument as an exchange reported it, before normalization.
// Every field is the exchange's text verbatim; empty means the exchange omitted it.
type RawRecord struct {
	InstrumentID string
	// Strike is the dedicated strike field, when the exchange has one.
	Strike string
	// Side is an explicit option type field (C/P, call/put).
	Side string
	// Expiration is an explicit expiry field (epoch milliseconds).
	Expiration string
	Volume     string
	MarkPrice  string
}

// RawPayload is what one Fetch returns: the listing plus the index price.
// IndexPrice is empty when the index call failed; IndexErr then says why.
type RawPayload struct {
	Exchange   market.ExchangeID
	Currency   market.Currency
	Records    []RawRecord
	IndexPrice string
	IndexErr   error
	FetchedAt  time.Time
}

// Adapter fetches raw option listings and the index price from one exchange.
type Adapter interface {
	Exchange() market.ExchangeID
	Fetch(ctx context.Context, currency market.Currency) (RawPayload, error)
}
