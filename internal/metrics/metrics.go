// Package metrics exposes Prometheus instrumentation for the ledger.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors shared by the HTTP server and the engine.
type Metrics struct {
	registry *prometheus.Registry

	OperationsTotal  *prometheus.CounterVec
	OperationErrors  *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	EventsPublished  prometheus.Counter
	ExportedRows     prometheus.Counter
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	ActiveUsersGauge prometheus.Gauge
}

// New builds a Metrics with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Ledger operations by kind.",
		}, []string{"operation"}),
		OperationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_operation_errors_total",
			Help: "Failed ledger operations by kind.",
		}, []string{"operation"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		EventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_events_published_total",
			Help: "Ledger events published to the broker.",
		}),
		ExportedRows: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_exported_rows_total",
			Help: "Transactions exported to the spreadsheet.",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_summary_cache_hits_total",
			Help: "Month summary cache hits.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_summary_cache_misses_total",
			Help: "Month summary cache misses.",
		}),
		ActiveUsersGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_known_users",
			Help: "Users with at least one mutation this process lifetime.",
		}),
	}
}

// Handler returns the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
