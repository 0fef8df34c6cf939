package document

import (
	"fmt"
	"strings"
)

// SectionKey names one of the five lesson sections.
type SectionKey string

const (
	SectionRoot     SectionKey = "ROOT"
	SectionCore     SectionKey = "CORE"
	SectionBranches SectionKey = "BRANCHES"
	SectionFruit    SectionKey = "FRUIT"
	SectionSeeds    SectionKey = "SEEDS"
)

// SectionKeys lists the section keys in canonical order.
var SectionKeys = []SectionKey{
	SectionRoot,
	SectionCore,
	SectionBranches,
	SectionFruit,
	SectionSeeds,
}

// ParseSectionKey resolves a section name (case-insensitive).
func ParseSectionKey(value string) (SectionKey, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case string(SectionRoot):
		return SectionRoot, nil
	case string(SectionCore):
		return SectionCore, nil
	case string(SectionBranches):
		return SectionBranches, nil
	case string(SectionFruit):
		return SectionFruit, nil
	case string(SectionSeeds):
		return SectionSeeds, nil
	default:
		return "", fmt.Errorf("unknown section: %q", value)
	}
}

// Glyph returns the marker emoji that introduces the section.
func (k SectionKey) Glyph() string {
	switch k {
	case SectionRoot:
		return "🌱"
	case SectionCore:
		return "🧠"
	case SectionBranches:
		return "🌿"
	case SectionFruit:
		return "🍎"
	case SectionSeeds:
		return "🌰"
	default:
		return ""
	}
}

// Ordinal returns the 1-based canonical position, or 0 for an unknown key.
func (k SectionKey) Ordinal() int {
	switch k {
	case SectionRoot:
		return 1
	case SectionCore:
		return 2
	case SectionBranches:
		return 3
	case SectionFruit:
		return 4
	case SectionSeeds:
		return 5
	default:
		return 0
	}
}

// Heading formats the section position the way lessons label it ("SECTION 02 / 05").
func (k SectionKey) Heading() string {
	return fmt.Sprintf("SECTION %02d / %02d", k.Ordinal(), len(SectionKeys))
}

func (k SectionKey) String() string {
	return string(k)
}
