package board

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"optionflow/internal/provider"
)

// Descriptor kinds.
const (
	KindTimeout     = "timeout"
	KindHTTP        = "http"
	KindNetwork     = "network"
	KindParse       = "parse"
	KindUnsupported = "unsupported"
	KindInternal    = "internal"

	KindEmpty        = "empty"
	KindNoQuotes     = "no_quotes_for_expiration"
	KindIndexMissing = "index_unavailable"
)

// ErrorDescriptor is the presentation-facing form of a failure or notice.
type ErrorDescriptor struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	// Status is the upstream HTTP status for kind "http".
	Status         int     `json:"status,omitempty"`
	TimeoutSeconds float64 `json:"timeout_seconds,omitempty"`
}

// HTTPStatus maps the descriptor onto the status an API should answer with.
func (d *ErrorDescriptor) HTTPStatus() int {
	if d == nil {
		return http.StatusOK
	}
	switch d.Kind {
	case KindUnsupported:
		return http.StatusBadRequest
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindHTTP, KindNetwork, KindParse:
		return http.StatusBadGateway
	case KindEmpty, KindNoQuotes, KindIndexMissing:
		return http.StatusOK
	}
	return http.StatusInternalServerError
}

// UnsupportedError rejects an exchange, currency or date the board cannot serve.
type UnsupportedError struct {
	Field string
	Value string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported %s %q", e.Field, e.Value)
}

// Describe classifies err. It returns nil for a nil error.
func Describe(err error) *ErrorDescriptor {
	if err == nil {
		return nil
	}
	var (
		unsupported *UnsupportedError
		timeout     *provider.TimeoutError
		httpErr     *provider.HTTPError
		netErr      *provider.NetworkError
		parseErr    *provider.ParseError
		empty       *provider.EmptyResultError
	)
	switch {
	case errors.As(err, &unsupported):
		return &ErrorDescriptor{Kind: KindUnsupported, Message: unsupported.Error()}
	case errors.As(err, &timeout):
		return &ErrorDescriptor{
			Kind:           KindTimeout,
			Message:        fmt.Sprintf("exchange did not respond within %s", timeout.After),
			TimeoutSeconds: timeout.After.Seconds(),
		}
	case errors.As(err, &httpErr):
		return &ErrorDescriptor{
			Kind:    KindHTTP,
			Message: fmt.Sprintf("exchange returned HTTP %d", httpErr.Status),
			Status:  httpErr.Status,
		}
	case errors.As(err, &netErr):
		return &ErrorDescriptor{Kind: KindNetwork, Message: "could not reach exchange: " + netErr.Err.Error()}
	case errors.As(err, &parseErr):
		return &ErrorDescriptor{Kind: KindParse, Message: "exchange response was malformed: " + parseErr.Error()}
	case errors.As(err, &empty):
		return &ErrorDescriptor{Kind: KindEmpty, Message: "no data: " + empty.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return &ErrorDescriptor{Kind: KindTimeout, Message: "request deadline exceeded"}
	}
	return &ErrorDescriptor{Kind: KindInternal, Message: err.Error()}
}
