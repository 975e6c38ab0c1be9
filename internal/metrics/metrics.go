// Package metrics exposes prometheus metrics for the access control
// service.
package metrics

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service metrics. A singleton avoids duplicate
// prometheus registration when multiple servers are created in one
// process.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	DecisionsTotal   *prometheus.CounterVec
	AdminOpsTotal    *prometheus.CounterVec

	requestCount int64
	errorCount   int64
}

var (
	metricsOnce   sync.Once
	globalMetrics *Metrics
)

// NewMetrics creates the metrics registry (singleton to avoid
// duplicate registration).
func NewMetrics(namespace string) *Metrics {
	metricsOnce.Do(func() {
		if namespace == "" {
			namespace = "wwwhisper"
		}
		globalMetrics = &Metrics{
			RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			}, []string{"method", "code"}),
			RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
			RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being served",
			}),
			DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "authz_decisions_total",
				Help:      "Authorization decisions by outcome",
			}, []string{"decision"}),
			AdminOpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "admin_operations_total",
				Help:      "Administrative operations by kind and result",
			}, []string{"operation", "result"}),
		}

		prometheus.MustRegister(
			globalMetrics.RequestsTotal,
			globalMetrics.RequestDuration,
			globalMetrics.RequestsInFlight,
			globalMetrics.DecisionsTotal,
			globalMetrics.AdminOpsTotal,
		)
	})

	return globalMetrics
}

// IncDecision records one authorization decision.
func (m *Metrics) IncDecision(decision string) {
	atomic.AddInt64(&m.requestCount, 1)
	m.DecisionsTotal.WithLabelValues(decision).Inc()
}

// IncAdminOp records one administrative operation.
func (m *Metrics) IncAdminOp(operation, result string) {
	m.AdminOpsTotal.WithLabelValues(operation, result).Inc()
}

// IncError records an internal error.
func (m *Metrics) IncError() {
	atomic.AddInt64(&m.errorCount, 1)
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware instruments every request with count, duration and
// in-flight gauges.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			m.RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
			m.RequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler exposes the prometheus scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// StatsHandler exposes the fast atomic counters as JSON.
func (m *Metrics) StatsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]int64{
			"requests": atomic.LoadInt64(&m.requestCount),
			"errors":   atomic.LoadInt64(&m.errorCount),
		})
	})
}
