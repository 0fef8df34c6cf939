package output

import (
	"fmt"
	"strings"

	"github.com/rootlab/rootlab/internal/core/store"
	"github.com/rootlab/rootlab/internal/lesson"
)

// Format represents an output format.
type Format string

const (
	// FormatTerminal renders styled markdown for a terminal.
	FormatTerminal Format = "terminal"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	// FormatText is the lesson text exactly as the provider produced it.
	FormatText Format = "text"
	// FormatTable applies to history listings only.
	FormatTable Format = "table"
)

// Formatter renders a finished lesson.
type Formatter interface {
	FormatLesson(result *lesson.Result) (string, error)
}

// ParseFormat validates and normalizes a format string. An empty value
// yields fallback.
func ParseFormat(value string, fallback Format) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "":
		return fallback, nil
	case string(FormatTerminal), "term":
		return FormatTerminal, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatText), "raw":
		return FormatText, nil
	case string(FormatTable):
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a lesson formatter for the requested format. Table
// is not a lesson format and falls back to terminal.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	case FormatText:
		return &TextFormatter{}
	default:
		return NewTerminalFormatter(0)
	}
}

// FormatHistory renders a history listing.
func FormatHistory(format Format, records []store.LessonRecord) (string, error) {
	switch format {
	case FormatJSON:
		return marshalJSON(records, true)
	case FormatMarkdown:
		return historyMarkdown(records), nil
	default:
		return historyTable(records), nil
	}
}

// TextFormatter returns the lesson text unchanged.
type TextFormatter struct{}

// FormatLesson returns the raw lesson text.
func (f *TextFormatter) FormatLesson(result *lesson.Result) (string, error) {
	if result == nil {
		return "", nil
	}
	return result.Text, nil
}
