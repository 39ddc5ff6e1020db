// Package metrics exposes Prometheus collectors for the dashboard pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "price_oracle_dashboard"

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ReadCycles      *prometheus.CounterVec
	CycleDuration   *prometheus.HistogramVec
	PairReadErrors  *prometheus.CounterVec
	MarketFetches   *prometheus.CounterVec
	ViewsPublished  prometheus.Counter
	Actions         *prometheus.CounterVec
	ThresholdEvents *prometheus.CounterVec
	StreamClients   prometheus.Gauge
	LastRefresh     *prometheus.GaugeVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ReadCycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "cycles_total",
			Help:      "Completed read cycles by reader and outcome",
		}, []string{"reader", "outcome"}),
		CycleDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "cycle_duration_seconds",
			Help:      "Read cycle latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"reader"}),
		PairReadErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "pair_read_errors_total",
			Help:      "Failed oracle price reads by pair",
		}, []string{"pair"}),
		MarketFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "fetches_total",
			Help:      "Market API fetches by outcome",
		}, []string{"outcome"}),
		ViewsPublished: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "view",
			Name:      "published_total",
			Help:      "Dashboard views rebuilt",
		}),
		Actions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "action",
			Name:      "submissions_total",
			Help:      "Write actions by kind and outcome",
		}, []string{"kind", "outcome"}),
		ThresholdEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "threshold_crossed_total",
			Help:      "ThresholdCrossed events observed by symbol",
		}, []string{"symbol"}),
		StreamClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Connected websocket clients",
		}),
		LastRefresh: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "last_refresh_timestamp_seconds",
			Help:      "Unix time of the last completed cycle",
		}, []string{"reader"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func outcome(degraded bool) string {
	if degraded {
		return "degraded"
	}
	return "ok"
}

// ObserveCycle records a finished reader cycle.
func (m *Metrics) ObserveCycle(reader string, degraded bool, took time.Duration) {
	if m == nil {
		return
	}
	m.ReadCycles.WithLabelValues(reader, outcome(degraded)).Inc()
	m.CycleDuration.WithLabelValues(reader).Observe(took.Seconds())
	m.LastRefresh.WithLabelValues(reader).SetToCurrentTime()
}

func (m *Metrics) PairReadFailed(pair string) {
	if m == nil {
		return
	}
	m.PairReadErrors.WithLabelValues(pair).Inc()
}

func (m *Metrics) MarketFetched(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.MarketFetches.WithLabelValues("error").Inc()
		return
	}
	m.MarketFetches.WithLabelValues("ok").Inc()
}

func (m *Metrics) ViewPublished() {
	if m == nil {
		return
	}
	m.ViewsPublished.Inc()
}

// ActionFinished records a write outcome; outcome is "confirmed", "pending"
// or a failure kind.
func (m *Metrics) ActionFinished(kind, outcome string) {
	if m == nil {
		return
	}
	m.Actions.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ThresholdEvent(symbol string) {
	if m == nil {
		return
	}
	m.ThresholdEvents.WithLabelValues(symbol).Inc()
}

func (m *Metrics) StreamConnected() {
	if m == nil {
		return
	}
	m.StreamClients.Inc()
}

func (m *Metrics) StreamDisconnected() {
	if m == nil {
		return
	}
	m.StreamClients.Dec()
}
