package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveFetch(t *testing.T) {
	m := New()

	m.ObserveFetch("deribit", OutcomeOK, 120*time.Millisecond)
	m.ObserveFetch("deribit", OutcomeOK, 80*time.Millisecond)
	m.ObserveFetch("okx", OutcomeTimeout, 15*time.Second)

	require.Equal(t, 2.0, testutil.ToFloat64(m.FetchTotal.WithLabelValues("deribit", OutcomeOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.FetchTotal.WithLabelValues("okx", OutcomeTimeout)))
	require.Equal(t, 2, testutil.CollectAndCount(m.FetchDuration))
}

func TestCacheLookupAndDrops(t *testing.T) {
	m := New()

	m.CacheLookup("okx", true)
	m.CacheLookup("okx", false)
	m.CacheLookup("okx", false)
	m.IndexFailed("okx")
	m.Dropped("okx", "bad_strike", 3)
	m.Dropped("okx", "bad_side", 0)

	require.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("okx", "hit")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("okx", "miss")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.IndexFailures.WithLabelValues("okx")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.RecordsDropped.WithLabelValues("okx", "bad_strike")))
	require.Equal(t, 1, testutil.CollectAndCount(m.RecordsDropped))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ObserveFetch("deribit", OutcomeOK, time.Second)
		m.IndexFailed("deribit")
		m.CacheLookup("deribit", true)
		m.Dropped("deribit", "bad_date", 1)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.CacheLookup("deribit", true)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	res, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), `optionflow_cache_lookups_total{exchange="deribit",result="hit"} 1`)
}
