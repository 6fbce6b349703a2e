package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds each exchange call.
const DefaultTimeout = 15 * time.Second

const maxErrorBody = 2 << 10

// GetJSON performs one GET bounded by timeout and decodes a 2xx JSON body into out.
// Failures come back as *TimeoutError, *HTTPError, *NetworkError or *ParseError.
func GetJSON(ctx context.Context, c HTTPClient, endpoint string, query url.Values, header http.Header, timeout time.Duration, out any) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	u := endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	res, err := c.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return &TimeoutError{URL: u, After: timeout, Err: err}
		}
		return &NetworkError{URL: u, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return &HTTPError{URL: u, Status: res.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		// the deadline also covers reading the body
		if isTimeout(ctx, err) {
			return &TimeoutError{URL: u, After: timeout, Err: err}
		}
		return &ParseError{URL: u, Reason: "decoding body", Err: err}
	}
	return nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// Text keeps a JSON scalar verbatim: strings unquoted, numbers as written,
// null as "". Exchanges disagree on whether numbers are quoted, so parsing
// is left to the normalizer. Non-scalars are kept raw and never fail decoding.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(strings.TrimSpace(s))
		return nil
	}
	*t = Text(b)
	return nil
}

func (t Text) String() string { return string(t) }
