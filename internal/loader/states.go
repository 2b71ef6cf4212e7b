package loader

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/Simon3728/Data-Analysis-Election/internal/config"
)

// StateNormalizer maps the many spellings found in source files onto the
// canonical state names.
type StateNormalizer struct {
	canonical map[string]string
	known     map[string]bool
	aggregate string
}

// NewStateNormalizer builds a normalizer for the given universe. aggregate
// names the national row some sources carry; it may be empty.
func NewStateNormalizer(states []string, aggregate string) *StateNormalizer {
	n := &StateNormalizer{
		canonical: make(map[string]string, len(states)+1),
		known:     make(map[string]bool, len(states)),
		aggregate: aggregate,
	}
	for _, s := range states {
		clean := cleanText(s)
		n.canonical[strings.ToLower(clean)] = clean
		n.known[clean] = true
	}
	if aggregate != "" {
		clean := cleanText(aggregate)
		n.canonical[strings.ToLower(clean)] = clean
		n.aggregate = clean
	}
	return n
}

// Normalize returns the canonical spelling of raw, or the cleaned input
// when the state is not part of the universe.
func (n *StateNormalizer) Normalize(raw string) string {
	clean := cleanText(raw)
	if c, ok := n.canonical[strings.ToLower(clean)]; ok {
		return c
	}
	return clean
}

// Known reports whether name is one of the universe states.
func (n *StateNormalizer) Known(name string) bool {
	return n.known[name]
}

// IsAggregate reports whether name is the national aggregate row.
func (n *StateNormalizer) IsAggregate(name string) bool {
	return n.aggregate != "" && name == n.aggregate
}

// Decode converts a coded state identifier into a normalized name.
func (n *StateNormalizer) Decode(raw, codes string) (string, bool) {
	code := strings.ToUpper(cleanText(raw))
	switch codes {
	case "postal":
		name, ok := config.PostalCodes[code]
		if !ok {
			return "", false
		}
		return n.Normalize(name), true
	case "fred":
		// FRED series ids look like ALURN: postal code plus a series suffix.
		if len(code) < 3 {
			return "", false
		}
		name, ok := config.PostalCodes[code[:2]]
		if !ok {
			return "", false
		}
		return n.Normalize(name), true
	default:
		return n.Normalize(raw), true
	}
}

// cleanText applies NFKC, drops control and zero-width characters, strips
// footnote markers and collapses whitespace.
func cleanText(s string) string {
	s = norm.NFKC.String(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\u200b' || r == '\u200c' || r == '\u200d' || r == '\ufeff':
			return -1
		case unicode.IsControl(r) && r != '\t' && r != '\n':
			return -1
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimRight(s, " *")
	return s
}
