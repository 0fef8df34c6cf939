package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rootlab/rootlab/internal/ailink"
	"github.com/rootlab/rootlab/internal/ailink/driver"
	"github.com/rootlab/rootlab/internal/core/ratelimit"
	"github.com/rootlab/rootlab/internal/core/store"
	apperrors "github.com/rootlab/rootlab/internal/errors"
	"github.com/rootlab/rootlab/internal/lesson"
)

func respondLesson(t *testing.T, err error) (*httptest.ResponseRecorder, apperrors.HTTPErrorDetail) {
	t.Helper()
	rec := httptest.NewRecorder()
	respondLessonError(rec, httptest.NewRequest(http.MethodPost, "/api/chat", nil), err)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return rec, body.Error
}

func TestRespondLessonErrorStatusCodes(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", lesson.ErrInvalidLevel, http.StatusBadRequest, apperrors.CodeInvalidInput},
		{"config", &ailink.ConfigError{Reason: "no credential"}, http.StatusInternalServerError, apperrors.CodeConfigInvalid},
		{"timeout", fmt.Errorf("stream: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, apperrors.CodeTimeout},
		{"internal", fmt.Errorf("boom"), http.StatusInternalServerError, apperrors.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, detail := respondLesson(t, tc.err)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, detail.Code)
			assert.Empty(t, rec.Header().Get("Retry-After"))
		})
	}
}

func TestRespondLessonErrorUpstreamKeepsProviderBody(t *testing.T) {
	rec, detail := respondLesson(t, &driver.ProviderError{Provider: "gemini", StatusCode: 400, Message: `{"error":"API key not valid"}`})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, `{"error":"API key not valid"}`, detail.Message)
	assert.Equal(t, "gemini", detail.Details["provider"])
	assert.EqualValues(t, 400, detail.Details["upstream_status"])
}

func TestRespondLessonErrorRateLimitedSetsRetryAfter(t *testing.T) {
	rec, detail := respondLesson(t, &ratelimit.LimitedError{Provider: "xai", RetryAfter: 1500 * time.Millisecond})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Equal(t, apperrors.CodeRateLimited, detail.Code)
	assert.Equal(t, "xai", detail.Details["provider"])
	assert.EqualValues(t, 2, detail.Details["retry_after_seconds"])
}

func TestHistoryErrorEnvelope(t *testing.T) {
	env := apperrors.EnsureEnvelope(historyErrorEnvelope(context.Background(), "abc", store.ErrNotFound))
	assert.Equal(t, apperrors.CodeNotFound, env.Code)
	assert.Equal(t, "lesson abc not found", env.Message)

	env = apperrors.EnsureEnvelope(historyErrorEnvelope(context.Background(), "abc", fmt.Errorf("disk gone")))
	assert.Equal(t, apperrors.CodeDatabase, env.Code)
}

func TestSetHTTPErrorResponder(t *testing.T) {
	var called bool
	SetHTTPErrorResponder(func(w http.ResponseWriter, r *http.Request, err error) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	})
	t.Cleanup(func() { SetHTTPErrorResponder(nil) })

	rec := httptest.NewRecorder()
	respondWithError(rec, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("x"))
	assert.True(t, called)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
