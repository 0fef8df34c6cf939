package document

import "encoding/json"

// BlockKind identifies the variant of a content block.
type BlockKind string

const (
	KindParagraph       BlockKind = "paragraph"
	KindDefinitionLabel BlockKind = "definition_label"
	KindBulletList      BlockKind = "bullet_list"
	KindNumberedList    BlockKind = "numbered_list"
	KindDiagram         BlockKind = "diagram"
)

// Text is a displayable string in both its source form and its
// inline-formatted HTML form.
type Text struct {
	Raw  string `json:"raw"`
	HTML string `json:"html"`
}

// NewText formats raw with FormatInline.
func NewText(raw string) Text {
	return Text{Raw: raw, HTML: FormatInline(raw)}
}

// Block is one structurally classified unit of a section body.
type Block interface {
	Kind() BlockKind
	block()
}

// Paragraph is prose joined from consecutive non-blank lines.
type Paragraph struct {
	Text Text `json:"text"`
}

// DefinitionLabel is a line that is entirely bold, used as a term heading.
type DefinitionLabel struct {
	Label Text `json:"label"`
}

// BulletList is a run of dash, bullet or asterisk prefixed lines.
type BulletList struct {
	Items []Text `json:"items"`
}

// NumberedList is a run of "1." or "1)" prefixed lines.
type NumberedList struct {
	Items []Text `json:"items"`
}

// Diagram is ASCII art kept verbatim, line breaks included.
type Diagram struct {
	Source string `json:"source"`
}

func (Paragraph) Kind() BlockKind       { return KindParagraph }
func (DefinitionLabel) Kind() BlockKind { return KindDefinitionLabel }
func (BulletList) Kind() BlockKind      { return KindBulletList }
func (NumberedList) Kind() BlockKind    { return KindNumberedList }
func (Diagram) Kind() BlockKind         { return KindDiagram }

func (Paragraph) block()       {}
func (DefinitionLabel) block() {}
func (BulletList) block()      {}
func (NumberedList) block()    {}
func (Diagram) block()         {}

func (b Paragraph) MarshalJSON() ([]byte, error) {
	type plain Paragraph
	return json.Marshal(struct {
		Kind BlockKind `json:"kind"`
		plain
	}{b.Kind(), plain(b)})
}

func (b DefinitionLabel) MarshalJSON() ([]byte, error) {
	type plain DefinitionLabel
	return json.Marshal(struct {
		Kind BlockKind `json:"kind"`
		plain
	}{b.Kind(), plain(b)})
}

func (b BulletList) MarshalJSON() ([]byte, error) {
	type plain BulletList
	return json.Marshal(struct {
		Kind BlockKind `json:"kind"`
		plain
	}{b.Kind(), plain(b)})
}

func (b NumberedList) MarshalJSON() ([]byte, error) {
	type plain NumberedList
	return json.Marshal(struct {
		Kind BlockKind `json:"kind"`
		plain
	}{b.Kind(), plain(b)})
}

func (b Diagram) MarshalJSON() ([]byte, error) {
	type plain Diagram
	return json.Marshal(struct {
		Kind BlockKind `json:"kind"`
		plain
	}{b.Kind(), plain(b)})
}
