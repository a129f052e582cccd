package obs

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	IsochroneFetches   *prometheus.CounterVec
	PersistFailures    prometheus.Counter
	CommuteAreas       prometheus.Gauge
	SearchStaleDropped prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		IsochroneFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "isochrone_fetches_total",
			Help:      "Isochrone requests issued by the area manager, by operation and outcome",
		}, []string{"op", "outcome"}),
		PersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Failed writes or deletes of the persisted area record",
		}),
		CommuteAreas: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "commute_areas",
			Help:      "Number of commute areas currently held",
		}),
		SearchStaleDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_stale_results_dropped_total",
			Help:      "Debounced search results discarded because a newer query superseded them",
		}),
	}

	m.registry.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.IsochroneFetches,
		m.PersistFailures,
		m.CommuteAreas,
		m.SearchStaleDropped,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(dur.Seconds())
}

// ObserveIsochrone records the outcome of an isochrone fetch.
func (m *Metrics) ObserveIsochrone(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.IsochroneFetches.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) PersistFailed() {
	if m == nil {
		return
	}
	m.PersistFailures.Inc()
}

func (m *Metrics) SetAreas(n int) {
	if m == nil {
		return
	}
	m.CommuteAreas.Set(float64(n))
}

func (m *Metrics) StaleDropped() {
	if m == nil {
		return
	}
	m.SearchStaleDropped.Inc()
}
