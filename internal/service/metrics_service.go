package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation. All methods are
// nil-receiver safe so callers need no guard when metrics are disabled.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	identityHits    prometheus.Counter
	identityMisses  prometheus.Counter
	authzDecisions  *prometheus.CounterVec
	leaveDecisions  *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	identityHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "identity_cache_hits_total",
		Help: "Total identity cache hits",
	})

	identityMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "identity_cache_misses_total",
		Help: "Total identity cache misses",
	})

	authzDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authorization_decisions_total",
		Help: "Request authorizer outcomes",
	}, []string{"outcome"})

	leaveDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leave_decisions_total",
		Help: "Leave request decisions by outcome",
	}, []string{"status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, identityHits, identityMisses, authzDecisions, leaveDecisions, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		identityHits:    identityHits,
		identityMisses:  identityMisses,
		authzDecisions:  authzDecisions,
		leaveDecisions:  leaveDecisions,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request timing and count.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordIdentityLookup counts identity cache hits and misses.
func (m *MetricsService) RecordIdentityLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.identityHits.Inc()
	} else {
		m.identityMisses.Inc()
	}
}

// RecordAuthzDecision counts authorizer outcomes: allowed, denied or
// unauthenticated.
func (m *MetricsService) RecordAuthzDecision(outcome string) {
	if m == nil {
		return
	}
	m.authzDecisions.WithLabelValues(outcome).Inc()
}

// RecordLeaveDecision counts terminal leave transitions by status.
func (m *MetricsService) RecordLeaveDecision(status string) {
	if m == nil {
		return
	}
	m.leaveDecisions.WithLabelValues(status).Inc()
}
