// Package xai targets the xAI API, which speaks the OpenAI chat
// completion wire format.
package xai

import (
	"strings"

	"github.com/rootlab/rootlab/internal/ailink/driver/openai"
)

const defaultBaseURL = "https://api.x.ai/v1"

// NewClient returns an OpenAI-compatible client pointed at xAI.
func NewClient(baseURL, apiKey string) *openai.Client {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = defaultBaseURL
	}
	client := openai.NewClient(url, apiKey)
	client.Provider = "xai"
	return client
}
