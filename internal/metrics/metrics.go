package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ideahub", Name: "http_requests_total", Help: "Handled HTTP requests",
	}, []string{"method", "route", "status"})
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ideahub", Name: "http_request_duration_seconds", Help: "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	LoginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ideahub", Name: "login_attempts_total", Help: "Credential checks by outcome",
	}, []string{"outcome"})
	EvaluationsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ideahub", Name: "evaluations_created_total", Help: "Evaluations stored",
	})
	StoreDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ideahub", Name: "store_operation_seconds", Help: "Data access latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "model", "op"})
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPDuration, LoginAttempts, EvaluationsCreated, StoreDuration)
}

func Handler() http.Handler { return promhttp.Handler() }

// ObserveStore records how long a store operation took
func ObserveStore(backend, model, op string, start time.Time) {
	StoreDuration.WithLabelValues(backend, model, op).Observe(time.Since(start).Seconds())
}
