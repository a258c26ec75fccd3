package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
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
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	appointmentsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appointments_created_total",
			Help: "Total number of appointments created",
		},
		[]string{"type", "clinic"},
	)

	appointmentsStatusChanged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appointments_status_changed_total",
			Help: "Total number of appointment status changes",
		},
		[]string{"from_status", "to_status"},
	)

	predictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noshow_predictions_total",
			Help: "Total number of no-show risk predictions",
		},
		[]string{"tier", "fallback"},
	)

	trainingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_training_runs_total",
			Help: "Total number of model training runs",
		},
		[]string{"outcome"},
	)

	trainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "model_training_duration_seconds",
			Help:    "Model training duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	remindersScheduled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_scheduled_total",
			Help: "Total number of reminder events scheduled",
		},
		[]string{"channel", "category"},
	)

	remindersProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_processed_total",
			Help: "Total number of reminder events processed to a terminal state",
		},
		[]string{"status"},
	)

	dispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_duration_seconds",
			Help:    "Reminder dispatch duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"channel"},
	)

	auditEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_entries_total",
			Help: "Total number of audit entries created",
		},
	)

	authorizationDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authorization_decisions_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"resource_type", "action", "decision"},
	)

	// Database metrics
	dbConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware creates HTTP metrics middleware
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath normalizes URL paths for metrics to avoid cardinality explosion
func normalizePath(path string) string {
	// Replace UUIDs with placeholder
	// Simple heuristic: segments that look like UUIDs
	// In production, use proper path templates
	if len(path) > 100 {
		return "/api/..."
	}
	return path
}

// --- Business metric helpers ---

// RecordAppointmentCreated records an appointment creation
func RecordAppointmentCreated(appointmentType, clinicID string) {
	appointmentsCreated.WithLabelValues(appointmentType, clinicID).Inc()
}

// RecordAppointmentStatusChange records an appointment status change
func RecordAppointmentStatusChange(fromStatus, toStatus string) {
	appointmentsStatusChanged.WithLabelValues(fromStatus, toStatus).Inc()
}

// RecordPrediction records a no-show risk prediction
func RecordPrediction(tier string, fallback bool) {
	predictionsTotal.WithLabelValues(tier, strconv.FormatBool(fallback)).Inc()
}

// RecordTrainingRun records a model training run
func RecordTrainingRun(success bool, duration time.Duration) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	trainingRunsTotal.WithLabelValues(outcome).Inc()
	trainingDuration.Observe(duration.Seconds())
}

// RecordReminderScheduled records a scheduled reminder event
func RecordReminderScheduled(channel, category string) {
	remindersScheduled.WithLabelValues(channel, category).Inc()
}

// RecordReminderProcessed records a reminder reaching a terminal state
func RecordReminderProcessed(status string) {
	remindersProcessed.WithLabelValues(status).Inc()
}

// RecordDispatch records a dispatch attempt duration
func RecordDispatch(channel string, duration time.Duration) {
	dispatchDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordAuditEntry records an audit entry creation
func RecordAuditEntry() {
	auditEntriesTotal.Inc()
}

// RecordAuthorizationDecision records an authorization decision
func RecordAuthorizationDecision(resourceType, action string, allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	authorizationDecisions.WithLabelValues(resourceType, action, decision).Inc()
}

// RecordDBConnections records active database connections
func RecordDBConnections(count int) {
	dbConnectionsActive.Set(float64(count))
}

// RecordDBQuery records a database query duration
func RecordDBQuery(operation string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
