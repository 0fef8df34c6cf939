package ailink

import (
	"context"
	"errors"
	"strings"

	"github.com/rootlab/rootlab/internal/ailink/driver"
)

// ConfigError reports a provider that cannot be used as configured, most
// often a missing credential. It is raised before any network call.
type ConfigError struct {
	Provider string
	Reason   string
}

func (e *ConfigError) Error() string {
	if e.Provider == "" {
		return "ailink configuration: " + e.Reason
	}
	return "ailink configuration: provider " + e.Provider + ": " + e.Reason
}

// IsConfigError reports whether err wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// Failure classifies an upstream failure for logs and metrics.
type Failure struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

// ClassifyError maps a driver error onto a stable failure code.
func ClassifyError(err error) *Failure {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Code: "AILINK_PROVIDER_TIMEOUT", Message: "provider request timed out"}
	}

	if perr, ok := driver.AsProviderError(err); ok {
		status := perr.StatusCode
		details := strings.TrimSpace(perr.Message)
		f := &Failure{Details: details, StatusCode: status}
		switch {
		case status == 401 || status == 403:
			f.Code, f.Message = "AILINK_PROVIDER_AUTH", "provider authentication failed"
		case status == 429:
			f.Code, f.Message = "AILINK_PROVIDER_RATE_LIMIT", "provider rate limited"
		case status >= 500 && status <= 599:
			f.Code, f.Message = "AILINK_PROVIDER_UNAVAILABLE", "provider unavailable"
		case status >= 400 && status <= 499:
			f.Code, f.Message = "AILINK_PROVIDER_BAD_REQUEST", "provider rejected request"
		default:
			f.Code, f.Message = "AILINK_PROVIDER_ERROR", "provider request failed"
		}
		return f
	}

	return &Failure{Code: "AILINK_PROVIDER_ERROR", Message: "provider request failed", Details: err.Error()}
}
