package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"optionflow/internal/provider"
)

var _ provider.HTTPClient = (*Client)(nil)

func TestDo_SetsDefaultHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		require.Equal(t, "1", r.Header.Get("X-Trace"))
		require.Equal(t, "keep", r.Header.Get("X-Caller"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(time.Second)
	c.Headers = map[string]string{"X-Trace": "1", "X-Caller": "override"}

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL, http.NoBody)
	require.NoError(t, err)
	req.Header.Set("X-Caller", "keep")

	res, err := c.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusNoContent, res.StatusCode)
}
