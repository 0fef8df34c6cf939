package output

import (
	"encoding/json"

	"github.com/rootlab/rootlab/internal/lesson"
)

// JSONFormatter renders lessons as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatLesson renders a lesson, document included, as JSON.
func (f *JSONFormatter) FormatLesson(result *lesson.Result) (string, error) {
	if result == nil {
		return "", nil
	}
	return marshalJSON(result, f.Indent)
}

func marshalJSON(v any, indent bool) (string, error) {
	var (
		data []byte
		err  error
	)

	if indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// FormatValue renders any value, such as a bare document, with the
// formatter's indentation.
func (f *JSONFormatter) FormatValue(v any) (string, error) {
	return marshalJSON(v, f.Indent)
}
