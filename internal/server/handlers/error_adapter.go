package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/rootlab/rootlab/internal/ailink"
	"github.com/rootlab/rootlab/internal/ailink/driver"
	"github.com/rootlab/rootlab/internal/core/ratelimit"
	"github.com/rootlab/rootlab/internal/core/store"
	apperrors "github.com/rootlab/rootlab/internal/errors"
	"github.com/rootlab/rootlab/internal/lesson"
)

// httpErrorResponder writes error envelopes. The server installs its
// central handler so handler errors share logging and metrics.
var httpErrorResponder = apperrors.RespondWithError

// SetHTTPErrorResponder replaces the error writer; nil restores the default.
func SetHTTPErrorResponder(responder func(http.ResponseWriter, *http.Request, error)) {
	if responder == nil {
		responder = apperrors.RespondWithError
	}
	httpErrorResponder = responder
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	httpErrorResponder(w, r, err)
}

// lessonErrorEnvelope maps generation errors onto response codes. Upstream
// rejections keep the provider's body as the message.
func lessonErrorEnvelope(ctx context.Context, err error) error {
	switch {
	case lesson.IsValidationError(err):
		return apperrors.WrapInvalidInput(ctx, err, err.Error())
	case ailink.IsConfigError(err):
		return apperrors.WrapConfigInvalid(ctx, err, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.WrapTimeout(ctx, err, "provider request timed out")
	}
	var limited *ratelimit.LimitedError
	if errors.As(err, &limited) {
		envelope := apperrors.NewRateLimitedError(err.Error())
		envelope = apperrors.EnsureCorrelationID(envelope, ctx)
		return envelope.WithDetails(map[string]interface{}{
			"provider":            limited.Provider,
			"retry_after_seconds": retryAfterSeconds(limited.RetryAfter),
		})
	}
	if perr, ok := driver.AsProviderError(err); ok {
		envelope := apperrors.NewExternalServiceError(perr.Message)
		envelope = apperrors.EnsureCorrelationID(envelope, ctx)
		envelope = envelope.WithDetails(map[string]interface{}{
			"provider":        perr.Provider,
			"upstream_status": perr.StatusCode,
		})
		return envelope
	}
	return apperrors.Wrap(ctx, apperrors.CodeInternal, err, "lesson generation failed")
}

// respondLessonError answers a failed lesson request. Rate-limit refusals
// also carry a Retry-After header.
func respondLessonError(w http.ResponseWriter, r *http.Request, err error) {
	setRetryAfter(w, err)
	respondWithError(w, r, lessonErrorEnvelope(r.Context(), err))
}

// setRetryAfter adds a Retry-After header when err is a rate limit.
func setRetryAfter(w http.ResponseWriter, err error) {
	var limited *ratelimit.LimitedError
	if errors.As(err, &limited) {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(limited.RetryAfter)))
	}
}

func retryAfterSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

func historyErrorEnvelope(ctx context.Context, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.WrapNotFound(ctx, err, "lesson "+id+" not found")
	}
	return apperrors.WrapDatabaseError(ctx, err, "lesson history lookup failed")
}
