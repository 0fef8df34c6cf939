package output

import (
	"fmt"
	"strings"

	"github.com/rootlab/rootlab/internal/core/store"
	"github.com/rootlab/rootlab/internal/document"
	"github.com/rootlab/rootlab/internal/lesson"
)

// MarkdownFormatter renders a lesson as markdown.
type MarkdownFormatter struct{}

// FormatLesson renders a lesson as Markdown: a title, a metadata line and
// the structured document.
func (f *MarkdownFormatter) FormatLesson(result *lesson.Result) (string, error) {
	if result == nil {
		return "", nil
	}

	var sb strings.Builder
	if result.Topic != "" {
		sb.WriteString(fmt.Sprintf("# %s\n\n", result.Topic))
	}
	if meta := lessonMeta(result); meta != "" {
		sb.WriteString(fmt.Sprintf("_%s_\n\n", meta))
	}
	sb.WriteString(RenderDocument(result.Document, result.Text))
	return sb.String(), nil
}

// RenderDocument renders a parsed document as Markdown. A document without
// sections falls back to the raw text so nothing the provider said is lost.
func RenderDocument(doc document.Document, fallback string) string {
	if doc.Empty() {
		return strings.TrimSpace(fallback) + "\n"
	}

	var sb strings.Builder
	for i, sec := range doc.Sections {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("## %s %s\n\n", sec.Glyph, sec.Key))
		sb.WriteString(fmt.Sprintf("_%s_\n\n", sec.Key.Heading()))

		if sec.Key == document.SectionSeeds {
			for n, q := range sec.Questions {
				sb.WriteString(fmt.Sprintf("**Q%02d** %s\n\n", n+1, q.Raw))
			}
			continue
		}
		for _, b := range sec.Blocks {
			sb.WriteString(renderBlock(b))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func renderBlock(b document.Block) string {
	switch v := b.(type) {
	case document.Paragraph:
		return v.Text.Raw + "\n"
	case document.DefinitionLabel:
		return "**" + v.Label.Raw + "**\n"
	case document.BulletList:
		var sb strings.Builder
		for _, item := range v.Items {
			sb.WriteString("- " + item.Raw + "\n")
		}
		return sb.String()
	case document.NumberedList:
		var sb strings.Builder
		for n, item := range v.Items {
			sb.WriteString(fmt.Sprintf("%d. %s\n", n+1, item.Raw))
		}
		return sb.String()
	case document.Diagram:
		fence := codeFence(v.Source)
		return fence + "text\n" + v.Source + "\n" + fence + "\n"
	default:
		return ""
	}
}

func lessonMeta(result *lesson.Result) string {
	var parts []string
	if result.Level != "" {
		parts = append(parts, string(result.Level))
	}
	if result.Provider != "" {
		model := result.Provider
		if result.Model != "" {
			model += "/" + result.Model
		}
		parts = append(parts, model)
	}
	if result.Tokens > 0 {
		parts = append(parts, fmt.Sprintf("~%d tokens", result.Tokens))
	}
	return strings.Join(parts, " · ")
}

func historyMarkdown(records []store.LessonRecord) string {
	var sb strings.Builder
	sb.WriteString("| ID | Topic | Level | Model | Sections | Created |\n")
	sb.WriteString("|----|-------|-------|-------|----------|---------|\n")
	for _, rec := range records {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d | %s |\n",
			escapeMarkdownCell(rec.ID),
			escapeMarkdownCell(rec.Topic),
			escapeMarkdownCell(rec.Level),
			escapeMarkdownCell(rec.Model),
			len(rec.Sections),
			rec.CreatedAt.Format("2006-01-02 15:04"),
		))
	}
	return sb.String()
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}

// codeFence returns a backtick fence longer than any backtick run in src,
// and never shorter than three.
func codeFence(src string) string {
	longest, run := 0, 0
	for _, r := range src {
		if r == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return strings.Repeat("`", max(3, longest+1))
}
