package provider

import (
	"fmt"
	"time"

	"optionflow/internal/market"
)

// TimeoutError reports a call that did not complete within its deadline.
type TimeoutError struct {
	URL   string
	After time.Duration
	Err   error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request to %s timed out after %s", e.URL, e.After)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// HTTPError reports a non-2xx response. Body is truncated.
type HTTPError struct {
	URL    string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s -> %d", e.URL, e.Status)
	}
	return fmt.Sprintf("GET %s -> %d: %s", e.URL, e.Status, e.Body)
}

// NetworkError reports DNS, connection or transport failures.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error calling %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError reports a response whose shape is not what the exchange documents,
// including exchange-level error envelopes delivered with a 2xx status.
type ParseError struct {
	URL    string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	switch {
	case e.Reason != "" && e.Err != nil:
		return fmt.Sprintf("malformed response from %s: %s: %v", e.URL, e.Reason, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("malformed response from %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("malformed response from %s: %s", e.URL, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// EmptyResultError describes a well-formed listing with zero instruments.
// It is informational: callers show "no data" instead of a failure.
type EmptyResultError struct {
	Exchange market.ExchangeID
	Currency market.Currency
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("%s returned no %s options", e.Exchange, e.Currency)
}
