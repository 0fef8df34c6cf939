package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxErrorBody bounds how much of a failed response is kept.
const maxErrorBody = 64 << 10

// Call describes one streaming HTTP request to a provider.
type Call struct {
	Provider string
	Model    string
	// Endpoint is the URL recorded in traces; it must not contain secrets.
	Endpoint string
	Body     []byte
	Timeout  time.Duration
	Client   *http.Client
	Build    func(ctx context.Context) (*http.Request, error)
}

// Open performs the call and returns the response body on 2xx. The
// timeout, if any, covers the whole stream and is released when the body
// is closed.
func Open(ctx context.Context, call Call) (io.ReadCloser, int, error) {
	start := time.Now()
	ctx, cancel := withTimeout(ctx, call.Timeout)

	entry := TraceEntry{
		Driver:      call.Provider,
		Endpoint:    call.Endpoint,
		Model:       call.Model,
		RequestBody: call.Body,
	}
	fail := func(status int, err error) (io.ReadCloser, int, error) {
		cancel()
		entry.StatusCode = status
		entry.Error = err.Error()
		entry.DurationMs = time.Since(start).Milliseconds()
		Trace(entry)
		return nil, status, err
	}

	req, err := call.Build(ctx)
	if err != nil {
		return fail(0, fmt.Errorf("build request: %w", err))
	}

	client := call.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		// url.Error embeds the full URL, which may carry a query-string key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = call.Endpoint
		}
		return fail(0, fmt.Errorf("request failed: %w", err))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		return fail(resp.StatusCode, &ProviderError{
			Provider:    call.Provider,
			StatusCode:  resp.StatusCode,
			Message:     strings.TrimSpace(string(raw)),
			RawResponse: raw,
		})
	}

	entry.StatusCode = resp.StatusCode
	entry.DurationMs = time.Since(start).Milliseconds()
	Trace(entry)

	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, resp.StatusCode, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
