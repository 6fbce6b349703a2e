package market

import (
	"fmt"
	"strings"
	"time"
)

// ExchangeID names an options venue.
type ExchangeID string

const (
	Deribit ExchangeID = "deribit"
	OKX     ExchangeID = "okx"
)

// ParseExchange accepts any casing of a known exchange id.
func ParseExchange(s string) (ExchangeID, error) {
	switch ExchangeID(strings.ToLower(strings.TrimSpace(s))) {
	case Deribit:
		return Deribit, nil
	case OKX:
		return OKX, nil
	}
	return "", fmt.Errorf("unsupported exchange %q", s)
}

// Currency is the underlying asset symbol.
type Currency string

const (
	BTC Currency = "BTC"
	ETH Currency = "ETH"
)

// Currencies lists the underlyings a user can select.
var Currencies = []Currency{BTC, ETH}

// ParseCurrency accepts any casing of a supported underlying.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Currencies {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unsupported currency %q", s)
}

// Side is the option right. Only CALL and PUT exist.
type Side string

const (
	Call Side = "CALL"
	Put  Side = "PUT"
)

// ParseSide maps the encodings exchanges use (C/P, call/put) onto Side.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c", "call":
		return Call, nil
	case "p", "put":
		return Put, nil
	}
	return "", fmt.Errorf("unrecognized option side %q", s)
}

// DateLayout is the inbound/outbound textual form of an expiration date.
const DateLayout = "2006-01-02"

// Day truncates t to its calendar date at midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD expiration.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return Day(t), nil
}
