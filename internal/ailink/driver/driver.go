package driver

import (
	"context"
	"io"

	"github.com/rootlab/rootlab/internal/ailink/content"
	"github.com/rootlab/rootlab/internal/relay"
)

// Driver opens streaming completions against one provider.
type Driver interface {
	// Stream starts a completion and returns the open event stream. Non-2xx
	// responses are returned as *ProviderError before any body is read.
	Stream(ctx context.Context, req *Request) (*Stream, error)
	// Name returns the driver identifier (e.g., "gemini").
	Name() string
	// Capabilities returns what this driver supports.
	Capabilities() Capabilities
}

// Capabilities describes driver features.
type Capabilities struct {
	SupportsStreaming bool
	SupportsSystem    bool
	SupportedModels   []string
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model       string
	Messages    []content.Message
	Temperature *float64
	MaxTokens   *int
	PromptSlug  string
	Metadata    map[string]string
}

// Stream is an open upstream event stream. Callers must close Body.
type Stream struct {
	Provider   string
	Model      string
	StatusCode int
	Dialect    relay.Dialect
	Body       io.ReadCloser
}

// Close releases the upstream connection.
func (s *Stream) Close() error {
	if s == nil || s.Body == nil {
		return nil
	}
	return s.Body.Close()
}
