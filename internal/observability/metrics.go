// Package observability wires Prometheus metrics and OpenTelemetry tracing.
package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "aquasense_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	analysisTotal   *prometheus.CounterVec
	analysisLatency *prometheus.HistogramVec

	modelAttempts   *prometheus.CounterVec
	cascadeFallback prometheus.Counter

	extractionFailures prometheus.Counter
)

// InitMetrics registers the metric set. Safe to call more than once.
func InitMetrics() {
	registerOnce.Do(func() {
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by route and status class",
			},
			[]string{"route", "status"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_latency_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		)

		analysisTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "risk_analyses_total",
				Help: "Total risk analysis runs by result",
			},
			[]string{"result"},
		)
		analysisLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "risk_analysis_latency_seconds",
				Help:    "End-to-end risk analysis latency in seconds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"result"},
		)

		modelAttempts = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "model_attempts_total",
				Help: "Model invocation attempts by model and result",
			},
			[]string{"model", "result"},
		)
		cascadeFallback = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "cascade_fallbacks_total",
				Help: "Times the cascade fell through to a lower-priority model",
			},
		)

		extractionFailures = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "extraction_failures_total",
				Help: "Model responses that yielded no parseable JSON object",
			},
		)

		prometheus.MustRegister(
			httpRequests,
			httpLatency,
			analysisTotal,
			analysisLatency,
			modelAttempts,
			cascadeFallback,
			extractionFailures,
		)
	})
}

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(route, status string, duration time.Duration) {
	if httpRequests != nil {
		httpRequests.WithLabelValues(route, status).Inc()
	}
	if httpLatency != nil {
		httpLatency.WithLabelValues(route).Observe(duration.Seconds())
	}
}

// ObserveAnalysis records one analysis run.
func ObserveAnalysis(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if analysisTotal != nil {
		analysisTotal.WithLabelValues(result).Inc()
	}
	if analysisLatency != nil {
		analysisLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncModelAttempt records one model invocation attempt.
func IncModelAttempt(model, result string) {
	if result == "" {
		result = resultSuccess
	}
	if modelAttempts != nil {
		modelAttempts.WithLabelValues(model, result).Inc()
	}
}

// IncCascadeFallback counts a fall-through to the next candidate.
func IncCascadeFallback() {
	if cascadeFallback != nil {
		cascadeFallback.Inc()
	}
}

// IncExtractionFailure counts a response with no extractable JSON.
func IncExtractionFailure() {
	if extractionFailures != nil {
		extractionFailures.Inc()
	}
}

const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
