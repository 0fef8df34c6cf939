package document

import (
	"regexp"
	"strings"
)

var (
	boldPattern   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicPattern = regexp.MustCompile(`\*([^*\n]+?)\*`)
	codePattern   = regexp.MustCompile("`([^`\\n]+?)`")

	htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
)

// CSS classes applied to inline spans.
const (
	ClassTerm = "rl-term"
	ClassEm   = "rl-em"
	ClassCode = "rl-code"
)

// FormatInline escapes &, < and > and then rewrites **bold**, *italic* and
// `code` spans, in that order, as HTML elements. It is a single pass: spans
// produced by one rule are not re-examined for nesting.
func FormatInline(text string) string {
	out := htmlEscaper.Replace(text)
	out = boldPattern.ReplaceAllString(out, `<strong class="`+ClassTerm+`">${1}</strong>`)
	out = italicPattern.ReplaceAllString(out, `<em class="`+ClassEm+`">${1}</em>`)
	out = codePattern.ReplaceAllString(out, `<code class="`+ClassCode+`">${1}</code>`)
	return out
}

// StripInline removes the emphasis markers FormatInline understands,
// leaving plain text.
func StripInline(text string) string {
	out := boldPattern.ReplaceAllString(text, "${1}")
	out = italicPattern.ReplaceAllString(out, "${1}")
	return codePattern.ReplaceAllString(out, "${1}")
}
