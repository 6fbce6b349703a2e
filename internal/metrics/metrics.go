// Package metrics exposes Prometheus collectors for exchange fetches,
// snapshot cache lookups and normalization drops.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeTimeout = "timeout"
	OutcomeHTTP    = "http"
	OutcomeNetwork = "network"
	OutcomeParse   = "parse"
	OutcomeOther   = "other"
)

// Metrics holds the collectors of one process. A nil *Metrics is valid and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	FetchTotal     *prometheus.CounterVec
	FetchDuration  *prometheus.HistogramVec
	IndexFailures  *prometheus.CounterVec
	CacheLookups   *prometheus.CounterVec
	RecordsDropped *prometheus.CounterVec
}

// New registers every collector on a fresh registry, plus Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		FetchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "optionflow_fetch_total",
			Help: "Exchange fetches by outcome",
		}, []string{"exchange", "outcome"}),
		FetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "optionflow_fetch_duration_seconds",
			Help:    "Wall time of one exchange fetch (listing and index)",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30},
		}, []string{"exchange"}),
		IndexFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "optionflow_index_failures_total",
			Help: "Fetches that returned listings without an index price",
		}, []string{"exchange"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "optionflow_cache_lookups_total",
			Help: "Snapshot cache lookups by result (hit, miss)",
		}, []string{"exchange", "result"}),
		RecordsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "optionflow_records_dropped_total",
			Help: "Raw records rejected during normalization by reason",
		}, []string{"exchange", "reason"}),
	}
}

func (m *Metrics) ObserveFetch(exchange, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchTotal.WithLabelValues(exchange, outcome).Inc()
	m.FetchDuration.WithLabelValues(exchange).Observe(d.Seconds())
}

func (m *Metrics) IndexFailed(exchange string) {
	if m == nil {
		return
	}
	m.IndexFailures.WithLabelValues(exchange).Inc()
}

func (m *Metrics) CacheLookup(exchange string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(exchange, result).Inc()
}

func (m *Metrics) Dropped(exchange, reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RecordsDropped.WithLabelValues(exchange, reason).Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
// Compression is left to the server's middleware.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg, DisableCompression: true})
}
