package driver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenTracesAndReturnsProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("quota exceeded"))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "trace.ndjson")
	closeTrace, err := EnableTracing(path)
	require.NoError(t, err)

	_, status, err := Open(context.Background(), Call{
		Provider: "fake",
		Model:    "m1",
		Endpoint: server.URL + "/stream",
		Body:     []byte(`{"q":1}`),
		Client:   server.Client(),
		Build: func(ctx context.Context) (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodPost, server.URL+"/stream", strings.NewReader(`{"q":1}`))
		},
	})
	closeTrace()

	require.Equal(t, http.StatusTooManyRequests, status)
	pe, ok := AsProviderError(err)
	require.True(t, ok)
	require.Equal(t, "quota exceeded", pe.Message)
	require.Contains(t, err.Error(), "fake request failed: status 429")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry TraceEntry
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	require.Equal(t, "fake", entry.Driver)
	require.Equal(t, "m1", entry.Model)
	require.Equal(t, http.StatusTooManyRequests, entry.StatusCode)
	require.JSONEq(t, `{"q":1}`, string(entry.RequestBody))
}

func TestOpenKeepsBodyOpenUntilClosed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("data: x\n"))
	}))
	defer server.Close()

	body, status, err := Open(context.Background(), Call{
		Provider: "fake",
		Endpoint: server.URL,
		Client:   server.Client(),
		Build: func(ctx context.Context) (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
		},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Equal(t, "data: x\n", string(data))
	require.NoError(t, body.Close())
}
