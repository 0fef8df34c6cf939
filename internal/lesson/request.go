package lesson

import (
	"errors"
	"strings"
)

// Validation errors. Each one is an input error reported to the caller
// before any provider is contacted.
var (
	ErrMissingTopic = errors.New("missing topic")
	ErrMissingLevel = errors.New("missing level")
	ErrInvalidLevel = errors.New("invalid level")
)

// Request asks for one lesson.
type Request struct {
	Topic string `json:"topic"`
	Level string `json:"level"`
	// Model optionally overrides the configured model.
	Model string `json:"model,omitempty"`
	// NoSave skips history persistence for this request.
	NoSave bool `json:"no_save,omitempty"`
}

// Validate checks the request and returns the parsed level.
func (r Request) Validate() (Level, error) {
	if strings.TrimSpace(r.Topic) == "" {
		return "", ErrMissingTopic
	}
	return ParseLevel(r.Level)
}

// IsValidationError reports whether err is one of the request validation errors.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingTopic) || errors.Is(err, ErrMissingLevel) || errors.Is(err, ErrInvalidLevel)
}
