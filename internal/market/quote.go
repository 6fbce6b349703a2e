package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// OptionQuote is the canonical shape every exchange record is normalized into.
// Strike is always positive, Volume24h never negative, Expiration is midnight UTC.
type OptionQuote struct {
	InstrumentID string              `json:"instrument_id"`
	Strike       decimal.Decimal     `json:"strike"`
	Side         Side                `json:"side"`
	Expiration   time.Time           `json:"expiration"`
	Volume24h    decimal.Decimal     `json:"volume_24h"`
	MarkPrice    decimal.NullDecimal `json:"mark_price"`
}

// Snapshot is the normalized result of one fetch for one (exchange, currency).
// Treat it as read-only: a newer fetch replaces it instead of mutating it.
type Snapshot struct {
	ID         string              `json:"id"`
	Exchange   ExchangeID          `json:"exchange"`
	Currency   Currency            `json:"currency"`
	Quotes     []OptionQuote       `json:"quotes"`
	IndexPrice decimal.NullDecimal `json:"index_price"`
	FetchedAt  time.Time           `json:"fetched_at"`
	// Dropped counts records rejected during normalization.
	Dropped int `json:"dropped"`
}

func (s Snapshot) Empty() bool { return len(s.Quotes) == 0 }

func (s Snapshot) HasIndex() bool { return s.IndexPrice.Valid }
