package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecordsReviews(t *testing.T) {
	m := NewPrometheus()

	m.RecordReview("gemini", "ok", 2, 3*time.Second)
	m.RecordReview("gemini", "REVIEW_TIMEOUT", 1, time.Minute)
	m.RecordProviderCall("gemini", "ok", time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.reviewsTotal.WithLabelValues("gemini", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reviewsTotal.WithLabelValues("gemini", "REVIEW_TIMEOUT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.providerCalls.WithLabelValues("gemini", "ok")))
}

func TestPrometheusHandlerExposesMetrics(t *testing.T) {
	m := NewPrometheus()
	m.RecordHTTPRequest(http.MethodPost, "/api/review", http.StatusOK, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `review_gateway_http_requests_total{method="POST",route="/api/review",status="200"} 1`)
}

func TestNoopMetricsHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewNoopMetrics().HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
