package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
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
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	// Triage metrics
	assessmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_assessments_total",
			Help: "Total number of symptom assessments by resulting risk and match branch",
		},
		[]string{"risk", "match"},
	)

	escalationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "triage_escalations_total",
			Help: "Total number of assessments escalated to high risk",
		},
	)

	invalidSeverityTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "triage_invalid_severity_total",
			Help: "Total number of requests carrying an unrecognized severity value",
		},
	)

	ruleReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_rule_reloads_total",
			Help: "Total number of rule table reloads",
		},
		[]string{"status"},
	)

	alertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_doctor_alerts_total",
			Help: "Total number of high risk alerts sent to the doctor chat",
		},
		[]string{"status"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and latency, labelled by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RecordAssessment counts one completed assessment.
func RecordAssessment(risk, match string, escalated bool) {
	assessmentsTotal.WithLabelValues(risk, match).Inc()
	if escalated {
		escalationsTotal.Inc()
	}
}

func RecordInvalidSeverity() {
	invalidSeverityTotal.Inc()
}

func RecordRuleReload(err error) {
	ruleReloadsTotal.WithLabelValues(status(err)).Inc()
}

func RecordAlert(err error) {
	alertsTotal.WithLabelValues(status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
