// Package metrics provides Prometheus instrumentation for kpiboard.
//
// Metrics exposed:
//   - kpiboard_fetch_duration_seconds: Histogram of metrics API request latency
//   - kpiboard_fetch_errors_total: Counter of failed metrics API requests
//   - kpiboard_cache_hits_total: Counter of refreshes served from the response cache
//   - kpiboard_refresh_total: Counter of refreshes by result (fetched, cached, error)
//   - kpiboard_history_samples: Gauge of retained MRR history samples
//   - kpiboard_kpi_value: Gauge of the latest KPI values by name
//   - kpiboard_errors_total: Counter of recoverable errors by component and reason
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh results.
const (
	ResultFetched = "fetched"
	ResultCached  = "cached"
	ResultError   = "error"
)

type Metrics struct {
	FetchDuration  prometheus.Histogram
	FetchErrors    prometheus.Counter
	CacheHits      prometheus.Counter
	RefreshTotal   *prometheus.CounterVec
	HistorySamples prometheus.Gauge
	KPIValue       *prometheus.GaugeVec
	ErrorsTotal    *prometheus.CounterVec
}

// New registers the kpiboard metrics with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		FetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "kpiboard_fetch_duration_seconds",
			Help:    "Duration of metrics API requests",
			Buckets: prometheus.DefBuckets,
		}),

		FetchErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "kpiboard_fetch_errors_total",
			Help: "Total number of failed metrics API requests",
		}),

		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "kpiboard_cache_hits_total",
			Help: "Total number of refreshes served from the response cache",
		}),

		RefreshTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kpiboard_refresh_total",
			Help: "Total number of refreshes by result",
		}, []string{"result"}),

		HistorySamples: f.NewGauge(prometheus.GaugeOpts{
			Name: "kpiboard_history_samples",
			Help: "Number of hourly MRR samples currently retained",
		}),

		KPIValue: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kpiboard_kpi_value",
			Help: "Latest KPI value reported by the metrics API",
		}, []string{"name"}),

		ErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kpiboard_errors_total",
			Help: "Total number of recoverable errors by component and reason",
		}, []string{"component", "reason"}),
	}
}

func (m *Metrics) ObserveFetch(seconds float64) {
	m.FetchDuration.Observe(seconds)
}

func (m *Metrics) RecordFetchError() {
	m.FetchErrors.Inc()
}

func (m *Metrics) RecordCacheHit() {
	m.CacheHits.Inc()
}

func (m *Metrics) RecordRefresh(result string) {
	m.RefreshTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) SetHistorySamples(n int) {
	m.HistorySamples.Set(float64(n))
}

// SetKPIs sets one gauge per named value.
func (m *Metrics) SetKPIs(values map[string]float64) {
	for name, v := range values {
		m.KPIValue.WithLabelValues(name).Set(v)
	}
}

func (m *Metrics) RecordError(component, reason string) {
	m.ErrorsTotal.WithLabelValues(component, reason).Inc()
}
