package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/fulmenhq/gofulmen/telemetry/exporters"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rootlab/rootlab/internal/metrics"
	"github.com/rootlab/rootlab/internal/observability"
	servermw "github.com/rootlab/rootlab/internal/server/middleware"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func fakeTelemetry(t *testing.T) *telemetrytesting.FakeCollector {
	t.Helper()
	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: collector})
	require.NoError(t, err)

	original := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() { observability.TelemetrySystem = original })
	return collector
}

func TestChatRecordsRequestAndLessonMetrics(t *testing.T) {
	collector := fakeTelemetry(t)
	srv, _ := newTestServer(t, streamingUpstream(t, "🌱 ROOT\nTides ", "follow the moon.\n", "🌰 SEEDS\n1. Why two tides?\n"))

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"topic":"Tides","level":"MID"}`))
	req.Header.Set(servermw.RequestIDHeader, "chat-req-1")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "chat-req-1", rec.Header().Get(servermw.RequestIDHeader))
	assert.NotEmpty(t, rec.Header().Get("X-Lesson-ID"))
	assert.Equal(t, "🌱 ROOT\nTides follow the moon.\n🌰 SEEDS\n1. Why two tides?\n", rec.Body.String())

	assert.Greater(t, collector.CountMetricsByName("http_requests_total"), 0)
	assert.Greater(t, collector.CountMetricsByName("http_request_duration_ms"), 0)

	lessons := collector.GetMetricsByName(metrics.LessonsTotal)
	require.Len(t, lessons, 1)
	assert.Equal(t, "success", lessons[0].Tags["status"])
	assert.Equal(t, "gemini", lessons[0].Tags["provider"])
	assert.Equal(t, "intermediate", lessons[0].Tags["level"])

	deltas := collector.GetMetricsByName(metrics.LessonDeltasTotal)
	require.Len(t, deltas, 1)
	assert.EqualValues(t, 3, deltas[0].Value)

	sections := collector.GetMetricsByName(metrics.LessonSectionsTotal)
	require.Len(t, sections, 1)
	assert.EqualValues(t, 2, sections[0].Value)
}

func TestChatUpstreamFailureRecordsErrorMetrics(t *testing.T) {
	collector := fakeTelemetry(t)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":"denied"}`)
	}))
	t.Cleanup(upstream.Close)
	srv, _ := newTestServer(t, upstream.URL)

	rec := do(t, srv, http.MethodPost, "/api/chat", `{"topic":"Tides","level":"Beginner"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	lessons := collector.GetMetricsByName(metrics.LessonsTotal)
	require.Len(t, lessons, 1)
	assert.Equal(t, "upstream_error", lessons[0].Tags["status"])

	errs := collector.GetMetricsByName(metrics.ErrorsTotalName)
	require.NotEmpty(t, errs)
	assert.Equal(t, "EXTERNAL_SERVICE_ERROR", errs[0].Tags["error_code"])
}

func TestMetricsHandlerProxiesPrometheusOutput(t *testing.T) {
	originalClient := metricsProxyClient
	t.Cleanup(func() { metricsProxyClient = originalClient })

	metricsProxyClient = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			body := "# HELP rootlab_lessons_total Lessons generated\nrootlab_lessons_total{status=\"success\"} 1\n"
			resp := &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(body)),
				Header:     make(http.Header),
			}
			resp.Header.Set("Content-Type", "text/plain; version=0.0.4")
			return resp, nil
		}),
	}

	observability.PrometheusExporter = exporters.NewPrometheusExporter("rootlab", ":9090")
	t.Cleanup(func() { observability.PrometheusExporter = nil })

	rec := httptest.NewRecorder()
	MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "rootlab_lessons_total")
}

func TestMetricsHandlerReturnsServiceUnavailableWithoutExporter(t *testing.T) {
	observability.PrometheusExporter = nil

	rec := httptest.NewRecorder()
	MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "SERVICE_UNAVAILABLE", resp.Error.Code)
}
