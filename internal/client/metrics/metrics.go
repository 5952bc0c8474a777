// Package metrics exposes the sync engine's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a nil-safe set of collectors registered on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	// Drains by outcome: succeeded, partially_failed
	Drains *prometheus.CounterVec

	// Entries acknowledged by the server, by entity type
	EntriesSynced *prometheus.CounterVec

	// Failed attempts by entity type and error class
	EntryFailures *prometheus.CounterVec

	// Dependent entries skipped because the parent had no server id yet
	EntriesSkipped prometheus.Counter

	PendingEntries prometheus.Gauge
	Online         prometheus.Gauge

	DrainDuration prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Drains: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "healthsync_drains_total",
			Help: "Total queue drains by result",
		}, []string{"result"}),

		EntriesSynced: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "healthsync_entries_synced_total",
			Help: "Queue entries acknowledged by the server",
		}, []string{"entity"}),

		EntryFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "healthsync_entry_failures_total",
			Help: "Failed sync attempts by entity and error class",
		}, []string{"entity", "class"}),

		EntriesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "healthsync_entries_skipped_total",
			Help: "Dependent entries deferred until their parent syncs",
		}),

		PendingEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "healthsync_pending_entries",
			Help: "Queue entries not yet acknowledged, including parked failures",
		}),

		Online: factory.NewGauge(prometheus.GaugeOpts{
			Name: "healthsync_online",
			Help: "1 when the remote service is reachable",
		}),

		DrainDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "healthsync_drain_duration_seconds",
			Help:    "Duration of a full queue drain",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveDrain(result string, d time.Duration) {
	if m != nil {
		m.Drains.WithLabelValues(result).Inc()
		m.DrainDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) IncSynced(entity string) {
	if m != nil {
		m.EntriesSynced.WithLabelValues(entity).Inc()
	}
}

func (m *Metrics) IncFailure(entity, class string) {
	if m != nil {
		m.EntryFailures.WithLabelValues(entity, class).Inc()
	}
}

func (m *Metrics) IncSkipped() {
	if m != nil {
		m.EntriesSkipped.Inc()
	}
}

func (m *Metrics) SetPending(n int) {
	if m != nil {
		m.PendingEntries.Set(float64(n))
	}
}

func (m *Metrics) SetOnline(online bool) {
	if m == nil {
		return
	}
	if online {
		m.Online.Set(1)
	} else {
		m.Online.Set(0)
	}
}
