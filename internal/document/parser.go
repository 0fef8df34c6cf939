package document

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf16"
)

// ws matches the whitespace lessons are written with, including no-break
// and other Unicode spaces and a stray U+FEFF.
const ws = `[\s\v\p{Z}\x{FEFF}]`

var (
	markerPattern = regexp.MustCompile(`(🌱|🧠|🌿|🍎|🌰)` + ws + `*(ROOT|CORE|BRANCHES|FRUIT|SEEDS)`)

	diagramCharset   = regexp.MustCompile(`^(?:` + ws + `|[→↓↑←│─\[\]|+\-A-Za-z0-9():.])+$`)
	labelPattern     = regexp.MustCompile(`^\*\*[^*]+\*\*:?` + ws + `*$`)
	bulletPattern    = regexp.MustCompile(`^[-•*]` + ws + `+`)
	numberedPattern  = regexp.MustCompile(`^\d+[.)]` + ws + `+`)
	questionDash     = regexp.MustCompile(`^[-•]` + ws + `+`)
	trailingColon    = regexp.MustCompile(`:$`)
	diagramGlyphRune = "→↓↑←│─┌└├┤╔╚║═┐┘╗╝"
)

// Options tunes the heuristics used while classifying body lines.
type Options struct {
	// DiagramGlyphMin is the number of arrow or box-drawing glyphs that
	// makes a line diagram content on its own.
	DiagramGlyphMin int `mapstructure:"diagram_glyph_min" json:"diagram_glyph_min" default:"2"`
	// DiagramMaxWidth bounds short single-glyph lines, in UTF-16 units.
	DiagramMaxWidth int `mapstructure:"diagram_max_width" json:"diagram_max_width" default:"60"`
	// DiagramMaxLines caps how many lines one diagram block may absorb.
	DiagramMaxLines int `mapstructure:"diagram_max_lines" json:"diagram_max_lines" default:"20"`
	// MaxQuestions caps the SEEDS question list.
	MaxQuestions int `mapstructure:"max_questions" json:"max_questions" default:"5"`
}

// DefaultOptions returns the thresholds lessons are tuned for.
func DefaultOptions() Options {
	return Options{
		DiagramGlyphMin: 2,
		DiagramMaxWidth: 60,
		DiagramMaxLines: 20,
		MaxQuestions:    5,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.DiagramGlyphMin <= 0 {
		o.DiagramGlyphMin = def.DiagramGlyphMin
	}
	if o.DiagramMaxWidth <= 0 {
		o.DiagramMaxWidth = def.DiagramMaxWidth
	}
	if o.DiagramMaxLines <= 0 {
		o.DiagramMaxLines = def.DiagramMaxLines
	}
	if o.MaxQuestions <= 0 {
		o.MaxQuestions = def.MaxQuestions
	}
	return o
}

// Parser turns completed lesson text into a Document. A Parser has no
// mutable state and may be shared between goroutines.
type Parser struct {
	opts Options
}

// NewParser returns a parser; zero-valued option fields fall back to DefaultOptions.
func NewParser(opts Options) *Parser {
	return &Parser{opts: opts.withDefaults()}
}

var defaultParser = NewParser(DefaultOptions())

// Parse splits text into sections using the default options.
func Parse(text string) Document {
	return defaultParser.Parse(text)
}

// Options returns the effective options.
func (p *Parser) Options() Options {
	return p.opts
}

// Parse splits text on section markers and parses each body. Text without
// markers yields an empty Document.
func (p *Parser) Parse(text string) Document {
	matches := markerPattern.FindAllStringSubmatchIndex(text, -1)
	sections := make([]Section, 0, len(matches))
	for i, m := range matches {
		bodyEnd := len(text)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		key := SectionKey(text[m[4]:m[5]])
		section := Section{
			Key:       key,
			Glyph:     text[m[2]:m[3]],
			Offset:    m[0],
			BodyStart: m[1],
			Body:      text[m[1]:bodyEnd],
		}
		trimmed := trim(section.Body)
		if key == SectionSeeds {
			section.Questions = p.ParseQuestions(trimmed)
		} else {
			section.Blocks = p.ParseBody(trimmed)
		}
		sections = append(sections, section)
	}
	return Document{Sections: sections}
}

// ParseBody classifies body lines into blocks. Each line is tested, in
// order, as diagram, definition label, bullet item, numbered item and
// blank; anything else accumulates into the current paragraph.
func (p *Parser) ParseBody(body string) []Block {
	lines := strings.Split(body, "\n")
	var blocks []Block
	var para []string

	flush := func() {
		raw := trim(strings.Join(para, " "))
		para = para[:0]
		if raw == "" {
			return
		}
		blocks = append(blocks, Paragraph{Text: NewText(raw)})
	}

	i := 0
	for i < len(lines) {
		t := trim(lines[i])

		switch {
		case p.IsDiagramLine(t):
			flush()
			var run []string
			for i < len(lines) && len(run) < p.opts.DiagramMaxLines {
				next := trim(lines[i])
				if next != "" && !p.IsDiagramLine(next) {
					break
				}
				run = append(run, lines[i])
				i++
			}
			for len(run) > 0 && trim(run[len(run)-1]) == "" {
				run = run[:len(run)-1]
			}
			if len(run) > 0 {
				blocks = append(blocks, Diagram{Source: strings.Join(run, "\n")})
			}

		case isLabelLine(t):
			flush()
			blocks = append(blocks, DefinitionLabel{Label: NewText(labelText(t))})
			i++

		case bulletPattern.MatchString(t) && utf16Len(t) > 2:
			flush()
			var items []Text
			for i < len(lines) {
				item := trim(lines[i])
				if !bulletPattern.MatchString(item) {
					break
				}
				items = append(items, NewText(bulletPattern.ReplaceAllString(item, "")))
				i++
			}
			blocks = append(blocks, BulletList{Items: items})

		case numberedPattern.MatchString(t):
			flush()
			var items []Text
			for i < len(lines) {
				item := trim(lines[i])
				if !numberedPattern.MatchString(item) {
					break
				}
				items = append(items, NewText(numberedPattern.ReplaceAllString(item, "")))
				i++
			}
			blocks = append(blocks, NumberedList{Items: items})

		case t == "":
			flush()
			i++

		default:
			para = append(para, t)
			i++
		}
	}
	flush()
	return blocks
}

// ParseQuestions reads a SEEDS body. A numbered or dash/bullet prefix
// starts a new question, other non-blank lines continue the current one.
// At most MaxQuestions are returned.
func (p *Parser) ParseQuestions(body string) []Text {
	var questions []string
	current := ""
	for _, line := range strings.Split(body, "\n") {
		t := trim(line)
		if t == "" {
			continue
		}
		switch {
		case numberedPattern.MatchString(t):
			if current != "" {
				questions = append(questions, current)
			}
			current = numberedPattern.ReplaceAllString(t, "")
		case questionDash.MatchString(t):
			if current != "" {
				questions = append(questions, current)
			}
			current = questionDash.ReplaceAllString(t, "")
		case current != "":
			current += " " + t
		default:
			current = t
		}
	}
	if current != "" {
		questions = append(questions, current)
	}
	if len(questions) > p.opts.MaxQuestions {
		questions = questions[:p.opts.MaxQuestions]
	}

	out := make([]Text, 0, len(questions))
	for _, q := range questions {
		out = append(out, NewText(q))
	}
	return out
}

// IsDiagramLine reports whether a trimmed line looks like ASCII diagram
// content: enough arrow/box glyphs, or one glyph on a short line made
// only of diagram-safe characters.
func (p *Parser) IsDiagramLine(t string) bool {
	if t == "" {
		return false
	}
	count := countDiagramGlyphs(t)
	if count >= p.opts.DiagramGlyphMin {
		return true
	}
	return count >= 1 && utf16Len(t) < p.opts.DiagramMaxWidth && diagramCharset.MatchString(t)
}

func countDiagramGlyphs(t string) int {
	n := 0
	for _, r := range t {
		if strings.ContainsRune(diagramGlyphRune, r) {
			n++
		}
	}
	return n
}

func isLabelLine(t string) bool {
	return labelPattern.MatchString(t)
}

func labelText(t string) string {
	label := strings.ReplaceAll(t, "**", "")
	label = trailingColon.ReplaceAllString(label, "")
	return trim(label)
}

// utf16Len measures length the way browsers do, which the width threshold
// and token estimate are calibrated against.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || unicode.Is(unicode.Z, r) || r == '\uFEFF'
}

// trim strips the same whitespace set the line patterns accept.
func trim(s string) string {
	return strings.TrimFunc(s, isSpace)
}
