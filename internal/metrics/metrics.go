package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records review gateway metrics and exposes them over HTTP.
type Metrics interface {
	RecordReview(providerKind, status string, files int, d time.Duration)
	RecordProviderCall(providerKind, status string, d time.Duration)
	RecordHTTPRequest(method, route string, status int, d time.Duration)
	HTTPHandler() http.Handler
}

// Prometheus implements Metrics with a private registry.
type Prometheus struct {
	registry *prometheus.Registry

	reviewsTotal     *prometheus.CounterVec
	reviewDuration   *prometheus.HistogramVec
	reviewFiles      *prometheus.HistogramVec
	providerCalls    *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

func NewPrometheus() *Prometheus {
	m := &Prometheus{
		registry: prometheus.NewRegistry(),
		reviewsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "review_gateway",
			Name:      "reviews_total",
			Help:      "Review executions by provider kind and outcome code",
		}, []string{"provider_kind", "status"}),
		reviewDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "review_gateway",
			Name:      "review_duration_seconds",
			Help:      "End-to-end review duration",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"provider_kind"}),
		reviewFiles: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "review_gateway",
			Name:      "review_files",
			Help:      "Files submitted per review",
			Buckets:   []float64{1, 2, 5, 10, 20},
		}, []string{"provider_kind"}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "review_gateway",
			Name:      "provider_calls_total",
			Help:      "Per-file provider calls by outcome",
		}, []string{"provider_kind", "status"}),
		providerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "review_gateway",
			Name:      "provider_call_duration_seconds",
			Help:      "Per-file provider call duration",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider_kind"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "review_gateway",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "review_gateway",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		m.reviewsTotal, m.reviewDuration, m.reviewFiles,
		m.providerCalls, m.providerDuration,
		m.httpRequests, m.httpDuration,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Prometheus) RecordReview(providerKind, status string, files int, d time.Duration) {
	m.reviewsTotal.WithLabelValues(providerKind, status).Inc()
	m.reviewDuration.WithLabelValues(providerKind).Observe(d.Seconds())
	m.reviewFiles.WithLabelValues(providerKind).Observe(float64(files))
}

func (m *Prometheus) RecordProviderCall(providerKind, status string, d time.Duration) {
	m.providerCalls.WithLabelValues(providerKind, status).Inc()
	m.providerDuration.WithLabelValues(providerKind).Observe(d.Seconds())
}

func (m *Prometheus) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Prometheus) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Prometheus) Registry() *prometheus.Registry {
	return m.registry
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (m *NoopMetrics) RecordReview(string, string, int, time.Duration)      {}
func (m *NoopMetrics) RecordProviderCall(string, string, time.Duration)     {}
func (m *NoopMetrics) RecordHTTPRequest(string, string, int, time.Duration) {}

func (m *NoopMetrics) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}
