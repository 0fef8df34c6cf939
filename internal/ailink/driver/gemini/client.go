// Package gemini streams completions from the Google Generative Language API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rootlab/rootlab/internal/ailink/driver"
	"github.com/rootlab/rootlab/internal/relay"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client calls models/{model}:streamGenerateContent with SSE framing.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewClient returns a client with defaults applied.
func NewClient(baseURL, apiKey string) *Client {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		base = defaultBaseURL
	}
	return &Client{
		BaseURL: base,
		APIKey:  strings.TrimSpace(apiKey),
	}
}

// Name returns the driver identifier.
func (c *Client) Name() string {
	return "gemini"
}

// Capabilities describes supported features.
func (c *Client) Capabilities() driver.Capabilities {
	return driver.Capabilities{
		SupportsStreaming: true,
		SupportsSystem:    true,
	}
}

// Stream starts a streamGenerateContent call. The key travels in the
// query string; traces record the endpoint without it.
func (c *Client) Stream(ctx context.Context, req *driver.Request) (*driver.Stream, error) {
	if c == nil {
		return nil, fmt.Errorf("gemini client not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}

	payload, err := buildGenerateRequest(req)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	endpoint := strings.TrimRight(c.BaseURL, "/") + "/models/" + url.PathEscape(req.Model) + ":streamGenerateContent"
	query := url.Values{}
	query.Set("alt", "sse")
	query.Set("key", c.APIKey)

	stream, status, err := driver.Open(ctx, driver.Call{
		Provider: c.Name(),
		Model:    req.Model,
		Endpoint: endpoint + "?alt=sse",
		Body:     body,
		Timeout:  c.Timeout,
		Client:   c.HTTPClient,
		Build: func(ctx context.Context) (*http.Request, error) {
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?"+query.Encode(), bytes.NewReader(body))
			if err != nil {
				return nil, err
			}
			httpReq.Header.Set("Content-Type", "application/json")
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
		Dialect:    relay.Gemini,
		Body:       stream,
	}, nil
}
