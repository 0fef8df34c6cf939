package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rootlab/rootlab/internal/ailink/driver"
	"github.com/rootlab/rootlab/internal/relay"
)

const (
	defaultBaseURL  = "https://api.openai.com/v1"
	defaultProvider = "openai"
)

// Client streams chat completions from OpenAI or any API that speaks the
// same wire format (see the xai package).
type Client struct {
	Provider   string
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewClient returns a client with defaults applied.
func NewClient(baseURL, apiKey string) *Client {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = defaultBaseURL
	}

	return &Client{
		Provider: defaultProvider,
		BaseURL:  url,
		APIKey:   strings.TrimSpace(apiKey),
	}
}

// Name returns the driver identifier.
func (c *Client) Name() string {
	if c == nil || c.Provider == "" {
		return defaultProvider
	}
	return c.Provider
}

// Capabilities describes supported features.
func (c *Client) Capabilities() driver.Capabilities {
	return driver.Capabilities{
		SupportsStreaming: true,
		SupportsSystem:    true,
	}
}

// Stream posts a chat completion with stream=true.
func (c *Client) Stream(ctx context.Context, req *driver.Request) (*driver.Stream, error) {
	if c == nil {
		return nil, fmt.Errorf("openai client not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}

	payload, err := buildChatRequest(req)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
	stream, status, err := driver.Open(ctx, driver.Call{
		Provider: c.Name(),
		Model:    req.Model,
		Endpoint: url,
		Body:     body,
		Timeout:  c.Timeout,
		Client:   c.HTTPClient,
		Build: func(ctx context.Context) (*http.Request, error) {
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return nil, err
			}
			httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
			httpReq.Header.Set("Content-Type", "application/json")
			httpReq.Header.Set("Accept", "text/event-stream")
			return httpReq, nil
		},
	})
	if err != nil {
		return nil, err
	}

	return &driver.Stream{
		Provider:   c.Name(),
		Model:      req.Model,
		StatusCode: status,
		Dialect:    relay.OpenAI,
		Body:       stream,
	}, nil
}
