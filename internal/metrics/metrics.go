package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
		[]string{"method", "endpoint"},
	)

	// Database metrics
	dbConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	dbConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// Business metrics
	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"status"}, // success, failure
	)

	inquiriesSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inquiries_submitted_total",
			Help: "Total number of recorded inquiries",
		},
		[]string{"form_type"},
	)

	crmSyncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_sync_total",
			Help: "Total number of CRM sync attempts",
		},
		[]string{"target", "outcome", "error_code"},
	)

	crmSyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crm_sync_duration_seconds",
			Help:    "CRM sync duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"target"},
	)

	fanoutRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanout_records_total",
			Help: "Total number of tasks and activity items written by fan-out",
		},
		[]string{"event"}, // created, intake-scheduled
	)

	duplicateChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duplicate_checks_total",
			Help: "Total number of duplicate checks",
		},
		[]string{"advisory"}, // clear, matches, unknown
	)

	outboxDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_deliveries_total",
			Help: "Total number of lifecycle event deliveries",
		},
		[]string{"outcome"}, // delivered, failed
	)
)

// idSegment matches path segments that carry record ids
var idSegment = regexp.MustCompile(`/[0-9a-fA-F]{8}-[0-9a-fA-F-]{27}|/[0-9A-HJKMNP-TV-Z]{26}|/[0-9]+`)

// endpointLabel collapses ids so each route is one label value
func endpointLabel(path string) string {
	return idSegment.ReplaceAllString(path, "/:id")
}

// PrometheusMiddleware creates a middleware that records Prometheus metrics
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Skip metrics endpoint itself
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		endpoint := endpointLabel(r.URL.Path)
		statusCode := strconv.Itoa(wrapped.statusCode)
		httpRequestsTotal.WithLabelValues(r.Method, endpoint, statusCode).Inc()
		httpRequestDuration.WithLabelValues(r.Method, endpoint, statusCode).Observe(time.Since(start).Seconds())
		httpResponseSize.WithLabelValues(r.Method, endpoint).Observe(float64(wrapped.size))
	})
}

// responseWriter wraps http.ResponseWriter to capture status code and response size
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.size += size
	return size, err
}

// RecordAuthAttempt records an authentication attempt
func RecordAuthAttempt(success bool) {
	status := "failure"
	if success {
		status = "success"
	}
	authAttemptsTotal.WithLabelValues(status).Inc()
}

// RecordInquirySubmitted records a new inquiry
func RecordInquirySubmitted(formType string) {
	inquiriesSubmittedTotal.WithLabelValues(formType).Inc()
}

// RecordCRMSync records one orchestrator run
func RecordCRMSync(target, outcome, errorCode string, duration time.Duration) {
	crmSyncTotal.WithLabelValues(target, outcome, errorCode).Inc()
	crmSyncDuration.WithLabelValues(target).Observe(duration.Seconds())
}

// RecordFanout records the tasks and activity items written for an event
func RecordFanout(event string, records int) {
	fanoutRecordsTotal.WithLabelValues(event).Add(float64(records))
}

// RecordDuplicateCheck records a duplicate check result
func RecordDuplicateCheck(advisory string) {
	duplicateChecksTotal.WithLabelValues(advisory).Inc()
}

// RecordOutboxDelivery records a lifecycle event delivery attempt
func RecordOutboxDelivery(delivered bool) {
	outcome := "failed"
	if delivered {
		outcome = "delivered"
	}
	outboxDeliveriesTotal.WithLabelValues(outcome).Inc()
}

// UpdateDBConnections updates database connection metrics
func UpdateDBConnections(active, idle int) {
	dbConnectionsActive.Set(float64(active))
	dbConnectionsIdle.Set(float64(idle))
}
