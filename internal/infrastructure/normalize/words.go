package normalize

import (
	"strings"
	"unicode"

	"github.com/kirillkom/docsim/internal/core/domain"
)

type Normalizer struct {
	// MinLength drops tokens shorter than this after stripping. Zero keeps every non-empty token.
	MinLength int
}

func NewNormalizer(minLength int) *Normalizer {
	if minLength < 0 {
		minLength = 0
	}
	return &Normalizer{MinLength: minLength}
}

// Words splits text on ASCII whitespace, lowercases every token and strips
// everything outside [a-z0-9]. Tokens left empty are discarded.
func (n *Normalizer) Words(text string) domain.WordSet {
	fields := strings.FieldsFunc(text, isASCIISpace)
	words := make([]string, 0, len(fields))
	for _, field := range fields {
		word := normalizeToken(field)
		if word == "" || len(word) < n.MinLength {
			continue
		}
		words = append(words, word)
	}
	return domain.NewWordSet(words...)
}

// normalizeToken lowercases with full Unicode case mapping before keeping [a-z0-9],
// so letters whose lowercase form is ASCII (KELVIN SIGN, dotted capital I) survive.
func normalizeToken(token string) string {
	var b strings.Builder
	b.Grow(len(token))
	for _, r := range token {
		if r >= 0x80 || r >= 'A' && r <= 'Z' {
			r = unicode.ToLower(r)
		}
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isASCIISpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	default:
		return false
	}
}
