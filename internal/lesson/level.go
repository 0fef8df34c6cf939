package lesson

import (
	"fmt"
	"strings"
)

// Level is the requested depth of a lesson.
type Level string

const (
	Advanced     Level = "Advanced"
	Intermediate Level = "Intermediate"
	Beginner     Level = "Beginner"
)

// Levels lists the valid levels, deepest first.
var Levels = []Level{Advanced, Intermediate, Beginner}

// ParseLevel accepts the level names in any case and the short codes
// ADV, MID and BEG.
func ParseLevel(raw string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return "", ErrMissingLevel
	case "advanced", "adv":
		return Advanced, nil
	case "intermediate", "mid":
		return Intermediate, nil
	case "beginner", "beg":
		return Beginner, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidLevel, raw)
	}
}

// Tier is the lower-case key used for prompt depth variants and model tiers.
func (l Level) Tier() string {
	return strings.ToLower(string(l))
}

// Short returns the three-letter code.
func (l Level) Short() string {
	switch l {
	case Advanced:
		return "ADV"
	case Intermediate:
		return "MID"
	case Beginner:
		return "BEG"
	default:
		return ""
	}
}

func (l Level) String() string {
	return string(l)
}
