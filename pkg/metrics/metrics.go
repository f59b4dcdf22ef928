// Package metrics exposes Prometheus instrumentation for the view server.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ViewMetrics counts view-layer request activity.
type ViewMetrics struct {
	RequestsTotal  *prometheus.CounterVec
	RequestErrors  *prometheus.CounterVec
	DetectionWaits prometheus.Gauge
	RecordEvents   *prometheus.CounterVec
	Broadcasts     prometheus.Counter
}

var (
	viewMetricsOnce sync.Once
	viewRegistry    *ViewMetrics
)

// Default returns the process-wide view metrics, registering them on first
// use.
func Default() *ViewMetrics {
	viewMetricsOnce.Do(func() {
		viewRegistry = &ViewMetrics{
			RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "walletx",
				Subsystem: "view",
				Name:      "requests_total",
				Help:      "Total view requests served, by operation.",
			}, []string{"operation"}),
			RequestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "walletx",
				Subsystem: "view",
				Name:      "request_errors_total",
				Help:      "Total view requests that failed, by operation.",
			}, []string{"operation"}),
			DetectionWaits: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "walletx",
				Subsystem: "view",
				Name:      "detection_waits",
				Help:      "Point-in-time number of requests blocked awaiting detection.",
			}),
			RecordEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "walletx",
				Subsystem: "store",
				Name:      "record_events_total",
				Help:      "Total record events published by the local store, by category.",
			}, []string{"category"}),
			Broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "walletx",
				Subsystem: "view",
				Name:      "broadcasts_total",
				Help:      "Total transactions broadcast to the network.",
			}),
		}
		prometheus.MustRegister(
			viewRegistry.RequestsTotal,
			viewRegistry.RequestErrors,
			viewRegistry.DetectionWaits,
			viewRegistry.RecordEvents,
			viewRegistry.Broadcasts,
		)
	})
	return viewRegistry
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
