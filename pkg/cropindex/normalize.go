package cropindex

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Keep letters/digits/marks/underscore/whitespace; everything else
// (punctuation, symbols, emoji) becomes a space. \p{M} keeps Devanagari
// matras and anusvara attached to their consonants.
var (
	punctRe = regexp.MustCompile(`[^\p{L}\p{N}\p{M}_\s]+`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// NormalizeText lowercases, NFKC-normalizes, strips punctuation and collapses
// whitespace. Normalizing an already-normalized string is a no-op.
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)
	s = punctRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func Tokenize(s string) []string {
	s = NormalizeText(s)
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

func HasDevanagari(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Devanagari, r) {
			return true
		}
	}
	return false
}

func HasLatin(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}
