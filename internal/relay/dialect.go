package relay

import (
	"encoding/json"

	"github.com/buger/jsonparser"
)

// Dialect describes one provider's event-stream framing and where the
// text delta lives inside each event payload.
type Dialect struct {
	Name     string
	Prefix   string
	Sentinel string
	// Paths are tried in order; the first one holding a string wins.
	Paths [][]string
}

// Gemini matches streamGenerateContent?alt=sse responses.
var Gemini = Dialect{
	Name:     "gemini",
	Prefix:   "data: ",
	Sentinel: "[DONE]",
	Paths: [][]string{
		{"candidates", "[0]", "content", "parts", "[0]", "text"},
	},
}

// OpenAI matches chat completion streams (OpenAI and compatible APIs such as xAI).
var OpenAI = Dialect{
	Name:     "openai",
	Prefix:   "data: ",
	Sentinel: "[DONE]",
	Paths: [][]string{
		{"choices", "[0]", "delta", "content"},
		{"choices", "[0]", "message", "content"},
	},
}

// DialectByName returns a built-in dialect.
func DialectByName(name string) (Dialect, bool) {
	switch name {
	case Gemini.Name:
		return Gemini, true
	case OpenAI.Name, "xai":
		return OpenAI, true
	default:
		return Dialect{}, false
	}
}

// Extract returns the delta text in payload. ok is false when payload is
// not valid JSON; a valid payload without text yields "" and true.
func (d Dialect) Extract(payload []byte) (delta string, ok bool) {
	if !json.Valid(payload) {
		return "", false
	}
	for _, path := range d.Paths {
		value, dataType, _, err := jsonparser.Get(payload, path...)
		if err != nil || dataType != jsonparser.String {
			continue
		}
		text, err := jsonparser.ParseString(value)
		if err != nil {
			return "", false
		}
		if text != "" {
			return text, true
		}
	}
	return "", true
}
