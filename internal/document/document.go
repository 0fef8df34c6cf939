// Package document parses completed lesson text into sections of typed
// content blocks.
package document

import "math"

// Document is the parsed form of one lesson. It is built once and not
// modified afterwards.
type Document struct {
	Sections []Section `json:"sections"`
}

// Section is the text between one section marker and the next.
type Section struct {
	Key   SectionKey `json:"key"`
	Glyph string     `json:"glyph"`
	// Offset is the byte offset of the marker in the source text and
	// BodyStart the offset just past it.
	Offset    int    `json:"offset"`
	BodyStart int    `json:"body_start"`
	Body      string `json:"body"`
	// Blocks is set for every section except SEEDS, which carries Questions.
	Blocks    []Block `json:"blocks,omitempty"`
	Questions []Text  `json:"questions,omitempty"`
}

// Empty reports whether no section markers were found.
func (d Document) Empty() bool {
	return len(d.Sections) == 0
}

// Section returns the first section with the given key.
func (d Document) Section(key SectionKey) (Section, bool) {
	for _, s := range d.Sections {
		if s.Key == key {
			return s, true
		}
	}
	return Section{}, false
}

// Keys lists section keys in document order.
func (d Document) Keys() []SectionKey {
	keys := make([]SectionKey, 0, len(d.Sections))
	for _, s := range d.Sections {
		keys = append(keys, s.Key)
	}
	return keys
}

// Complete reports whether each of the five sections appears at least once.
func (d Document) Complete() bool {
	for _, key := range SectionKeys {
		if _, ok := d.Section(key); !ok {
			return false
		}
	}
	return true
}

// EstimateTokens gives the rough token count shown next to a finished
// lesson: UTF-16 length divided by 3.8, rounded.
func EstimateTokens(text string) int {
	return int(math.Round(float64(utf16Len(text)) / 3.8))
}

// TrimmedBody returns the section body without surrounding whitespace.
func (s Section) TrimmedBody() string {
	return trim(s.Body)
}
