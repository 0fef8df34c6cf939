package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/cli/go-gh/v2/pkg/markdown"

	"github.com/rootlab/rootlab/internal/document"
	"github.com/rootlab/rootlab/internal/lesson"
)

const defaultWrap = 100

// TerminalFormatter renders the markdown form of a lesson with glamour.
type TerminalFormatter struct {
	Width int
	// Style is a glamour standard style name; empty picks one from the
	// terminal background.
	Style string
}

// NewTerminalFormatter returns a terminal formatter wrapping at width
// (0 means the default).
func NewTerminalFormatter(width int) *TerminalFormatter {
	return &TerminalFormatter{Width: width}
}

// FormatLesson renders a lesson for a terminal.
func (f *TerminalFormatter) FormatLesson(result *lesson.Result) (string, error) {
	if result == nil {
		return "", nil
	}
	md, err := (&MarkdownFormatter{}).FormatLesson(result)
	if err != nil {
		return "", err
	}
	r, err := newTermRenderer(f.Width, f.Style)
	if err != nil {
		return "", err
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}

func newTermRenderer(width int, style string) (*glamour.TermRenderer, error) {
	if width <= 0 {
		width = defaultWrap
	}
	styleOpt := glamour.WithAutoStyle()
	if style != "" {
		styleOpt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(markdown.WithWrap(width), styleOpt)
	if err != nil {
		return nil, fmt.Errorf("create terminal renderer: %w", err)
	}
	return r, nil
}

// StreamRenderer shows lesson text while it streams. Styled output is
// rendered a paragraph at a time, at each blank line; plain output is
// written through as it arrives.
type StreamRenderer struct {
	out      io.Writer
	markdown *glamour.TermRenderer
	buffer   strings.Builder
}

// NewStreamRenderer returns a renderer writing to out. With plain set no
// styling is applied.
func NewStreamRenderer(out io.Writer, plain bool, width int, style string) (*StreamRenderer, error) {
	s := &StreamRenderer{out: out}
	if plain {
		return s, nil
	}
	md, err := newTermRenderer(width, style)
	if err != nil {
		return nil, err
	}
	s.markdown = md
	return s, nil
}

// Write accepts one delta. Its signature matches relay.EmitFunc.
func (s *StreamRenderer) Write(delta string) error {
	if s.markdown == nil {
		_, err := io.WriteString(s.out, delta)
		return err
	}

	s.buffer.WriteString(delta)
	content := s.buffer.String()
	if idx := findMarkdownBreakPoint(content); idx > 0 {
		if err := s.renderContent(content[:idx]); err != nil {
			return err
		}
		remaining := content[idx:]
		s.buffer.Reset()
		s.buffer.WriteString(remaining)
	}
	return nil
}

// Flush renders whatever is buffered and ends the output with a newline.
func (s *StreamRenderer) Flush() error {
	if remaining := s.buffer.String(); remaining != "" {
		s.buffer.Reset()
		if err := s.renderContent(remaining); err != nil {
			return err
		}
	}
	_, err := io.WriteString(s.out, "\n")
	return err
}

func (s *StreamRenderer) renderContent(content string) error {
	content = strings.TrimSpace(headingize(content))
	if content == "" {
		return nil
	}

	rendered, err := s.markdown.Render(content)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	_, err = fmt.Fprintln(s.out, strings.TrimSpace(rendered))
	return err
}

// headingize turns section marker lines into markdown headings.
func headingize(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		t := strings.TrimSpace(line)
		for _, key := range document.SectionKeys {
			if strings.HasPrefix(t, key.Glyph()) {
				lines[i] = "## " + t
				break
			}
		}
	}
	return strings.Join(lines, "\n")
}

func findMarkdownBreakPoint(content string) int {
	const marker = "\n\n"
	idx := strings.LastIndex(content, marker)
	if idx < 0 {
		return -1
	}
	return idx + len(marker)
}
