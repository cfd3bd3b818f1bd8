package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	webhooksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_webhooks_received_total",
			Help: "Total number of CRM webhooks received, by outcome",
		},
		[]string{"outcome"},
	)

	conversionsQueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversions_queued_total",
			Help: "Total number of conversions admitted to the upload queue",
		},
		[]string{"platform"},
	)

	conversionsUploaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversions_uploaded_total",
			Help: "Total number of conversions uploaded to the ad platform",
		},
		[]string{"platform"},
	)

	conversionsDeadLetter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversions_dead_letter_total",
			Help: "Total number of queue items parked in dead letter",
		},
		[]string{"platform"},
	)

	integrationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integration_errors_total",
			Help: "Total number of integration errors",
		},
		[]string{"service"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

func RecordWebhookOutcome(outcome string) {
	webhooksReceived.WithLabelValues(outcome).Inc()
}

func RecordConversionQueued(platform string) {
	conversionsQueued.WithLabelValues(platform).Inc()
}

func RecordConversionUploaded(platform string) {
	conversionsUploaded.WithLabelValues(platform).Inc()
}

func RecordConversionDeadLetter(platform string) {
	conversionsDeadLetter.WithLabelValues(platform).Inc()
}

func RecordIntegrationError(service string) {
	integrationErrors.WithLabelValues(service).Inc()
}
