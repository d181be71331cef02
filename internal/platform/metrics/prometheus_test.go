package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAssessment(t *testing.T) {
	counter := assessmentsTotal.WithLabelValues("high", "exact")
	before := testutil.ToFloat64(counter)
	escalationsBefore := testutil.ToFloat64(escalationsTotal)

	RecordAssessment("high", "exact", true)
	RecordAssessment("high", "exact", false)

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
	assert.Equal(t, escalationsBefore+1, testutil.ToFloat64(escalationsTotal))
}

func TestRecordRuleReload(t *testing.T) {
	ok := ruleReloadsTotal.WithLabelValues("success")
	failed := ruleReloadsTotal.WithLabelValues("failure")
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	RecordRuleReload(nil)
	RecordRuleReload(errors.New("bad yaml"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(ok))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(failed))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/triage/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/triage/{id}", "404")
	before := testutil.ToFloat64(counter)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/triage/123", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordInvalidSeverity()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "triage_invalid_severity_total"))
}
