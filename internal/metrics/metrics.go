// Package metrics holds the Prometheus collectors for the scan loop.
// All methods are safe on a nil *Metrics so components can run unmetered.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	CyclesTotal   *prometheus.CounterVec
	CycleDuration prometheus.Histogram
	ViewSize      *prometheus.GaugeVec
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	FetchErrors   *prometheus.CounterVec
	AlertsTotal   *prometheus.CounterVec
	DemoMode      prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momentumwatch_scan_cycles_total",
				Help: "Scan cycles by resulting status",
			},
			[]string{"status"},
		),
		CycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "momentumwatch_scan_cycle_duration_seconds",
				Help:    "Wall time of a scan cycle",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
			},
		),
		ViewSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "momentumwatch_view_records",
				Help: "Records in each ranked view after the last cycle",
			},
			[]string{"view"},
		),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "momentumwatch_fundamentals_cache_hits_total",
			Help: "Fundamentals served from a fresh cache entry",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "momentumwatch_fundamentals_cache_misses_total",
			Help: "Fundamentals that required a provider call",
		}),
		FetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momentumwatch_fetch_errors_total",
				Help: "Provider call failures by provider and kind",
			},
			[]string{"provider", "kind"},
		),
		AlertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momentumwatch_alerts_total",
				Help: "Alerts raised by type",
			},
			[]string{"type"},
		),
		DemoMode: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "momentumwatch_demo_mode",
			Help: "1 while synthetic data is being served",
		}),
	}
	reg.MustRegister(m.CyclesTotal, m.CycleDuration, m.ViewSize, m.CacheHits,
		m.CacheMisses, m.FetchErrors, m.AlertsTotal, m.DemoMode)
	return m
}

func (m *Metrics) ObserveCycle(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(status).Inc()
	m.CycleDuration.Observe(d.Seconds())
}

func (m *Metrics) SetViewSize(view string, n int) {
	if m == nil {
		return
	}
	m.ViewSize.WithLabelValues(view).Set(float64(n))
}

func (m *Metrics) CacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

func (m *Metrics) CacheMiss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}

func (m *Metrics) FetchError(provider, kind string) {
	if m != nil {
		m.FetchErrors.WithLabelValues(provider, kind).Inc()
	}
}

func (m *Metrics) Alert(kind string) {
	if m != nil {
		m.AlertsTotal.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) SetDemoMode(on bool) {
	if m == nil {
		return
	}
	if on {
		m.DemoMode.Set(1)
	} else {
		m.DemoMode.Set(0)
	}
}
