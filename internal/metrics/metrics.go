package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	apiRequests         *prometheus.CounterVec
	apiRequestDuration  *prometheus.HistogramVec
	renderedOverlays    prometheus.Gauge
	renderSkipped       prometheus.Counter
	refreshTicks        prometheus.Counter
}

// New creates a fresh Metrics registry with view service and map pipeline metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "findme",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by the map view service",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "findme",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by the map view service",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	apiRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "findme",
		Name:      "api_requests_total",
		Help:      "Requests issued to the FindMe REST API by outcome",
	}, []string{"endpoint", "outcome"})

	apiRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "findme",
		Name:      "api_request_duration_seconds",
		Help:      "Latency of requests issued to the FindMe REST API",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"endpoint"})

	renderedOverlays := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "findme",
		Name:      "rendered_overlays",
		Help:      "Overlays on the map surface after the last render pass",
	})

	renderSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "findme",
		Name:      "render_skipped_total",
		Help:      "Marker records skipped because their overlay could not be built",
	})

	refreshTicks := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "findme",
		Name:      "refresh_ticks_total",
		Help:      "Auto-refresh ticks executed",
	})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		apiRequests,
		apiRequestDuration,
		renderedOverlays,
		renderSkipped,
		refreshTicks,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		apiRequests:         apiRequests,
		apiRequestDuration:  apiRequestDuration,
		renderedOverlays:    renderedOverlays,
		renderSkipped:       renderSkipped,
		refreshTicks:        refreshTicks,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// ObserveAPIRequest records one call to the FindMe REST API.
func (m *Metrics) ObserveAPIRequest(endpoint, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.With(prometheus.Labels{"endpoint": endpoint, "outcome": outcome}).Inc()
	m.apiRequestDuration.With(prometheus.Labels{"endpoint": endpoint}).Observe(duration.Seconds())
}

// ObserveRender records the result of one render pass.
func (m *Metrics) ObserveRender(rendered, skipped int) {
	if m == nil {
		return
	}
	m.renderedOverlays.Set(float64(rendered))
	if skipped > 0 {
		m.renderSkipped.Add(float64(skipped))
	}
}

// IncRefreshTick increments the auto-refresh tick counter.
func (m *Metrics) IncRefreshTick() {
	if m == nil {
		return
	}
	m.refreshTicks.Inc()
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
