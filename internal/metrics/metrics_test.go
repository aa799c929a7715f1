package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestEndpointLabel(t *testing.T) {
	assert.Equal(t, "/api/v1/inquiries/:id/sync/monday",
		endpointLabel("/api/v1/inquiries/3f2b8c1e-9d4a-4b7e-8f10-2a3b4c5d6e7f/sync/monday"))
	assert.Equal(t, "/api/v1/tasks/:id/complete", endpointLabel("/api/v1/tasks/42/complete"))
	assert.Equal(t, "/health", endpointLabel("/health"))
}

func TestPrometheusMiddlewareCountsRequests(t *testing.T) {
	h := PrometheusMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/brew", "418"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/brew", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/brew", "418")))
}

func TestRecordCRMSync(t *testing.T) {
	before := testutil.ToFloat64(crmSyncTotal.WithLabelValues("monday", "failed", "EXTERNAL_UNAVAILABLE"))
	RecordCRMSync("monday", "failed", "EXTERNAL_UNAVAILABLE", 0)
	assert.Equal(t, before+1, testutil.ToFloat64(crmSyncTotal.WithLabelValues("monday", "failed", "EXTERNAL_UNAVAILABLE")))
}
