// Package metrics adapts the teacher's PrometheusService to the judge
// domain: submissions, verdicts, judge/comparator/store durations, and
// circuit breaker trips, served over GET /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	submissionsTotal   prometheus.Counter
	verdictsTotal      *prometheus.CounterVec
	judgeDuration      prometheus.Histogram
	comparatorDuration *prometheus.HistogramVec
	storeDuration      *prometheus.HistogramVec
	circuitBreakerTrip *prometheus.CounterVec
	queueDepth         prometheus.Gauge
	httpRequestsTotal  *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		submissionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "judge_submissions_total",
			Help: "Total number of submissions processed by the judge pipeline.",
		}),
		verdictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "judge_verdicts_total",
			Help: "Total number of finished jobs by final verdict.",
		}, []string{"verdict"}),
		judgeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "judge_pipeline_duration_seconds",
			Help:    "Wall-clock time to judge one submission end to end.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}),
		comparatorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "judge_comparator_duration_seconds",
			Help:    "Time spent comparing one case's output.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"mode"}),
		storeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "judge_store_call_duration_seconds",
			Help:    "Time spent in a durable Store call.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"op"}),
		circuitBreakerTrip: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "judge_circuit_breaker_trips_total",
			Help: "Total number of circuit breaker state transitions to open.",
		}, []string{"breaker"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "judge_queue_depth",
			Help: "Number of submissions currently queued for the serialized worker.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
	}

	registry.MustRegister(
		m.submissionsTotal,
		m.verdictsTotal,
		m.judgeDuration,
		m.comparatorDuration,
		m.storeDuration,
		m.circuitBreakerTrip,
		m.queueDepth,
		m.httpRequestsTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordSubmission()            { m.submissionsTotal.Inc() }
func (m *Metrics) RecordVerdict(verdict string)  { m.verdictsTotal.WithLabelValues(verdict).Inc() }
func (m *Metrics) RecordJudgeDuration(d time.Duration) {
	m.judgeDuration.Observe(d.Seconds())
}
func (m *Metrics) RecordComparatorDuration(mode string, d time.Duration) {
	m.comparatorDuration.WithLabelValues(mode).Observe(d.Seconds())
}
func (m *Metrics) RecordStoreDuration(op string, d time.Duration) {
	m.storeDuration.WithLabelValues(op).Observe(d.Seconds())
}
func (m *Metrics) RecordCircuitBreakerTrip(breaker string) {
	m.circuitBreakerTrip.WithLabelValues(breaker).Inc()
}
func (m *Metrics) SetQueueDepth(n int) { m.queueDepth.Set(float64(n)) }
func (m *Metrics) RecordHTTPRequest(method, path string, status int) {
	m.httpRequestsTotal.WithLabelValues(method, path, http.StatusText(status)).Inc()
}
