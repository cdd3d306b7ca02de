package cropindex

import (
	"sort"
	"strings"
)

// A small Devanagari<->Roman transliteration aid. It only has to produce
// plausible alternate spellings for alias/query matching, not linguistically
// perfect ITRANS; fuzzy matching absorbs the difference.

const (
	virama       = '्'
	anusvara     = 'ं'
	chandrabindu = 'ँ'
	visarga      = 'ः'
	nukta        = '़'
)

var devaVowels = map[rune]string{
	'अ': "a", 'आ': "aa", 'इ': "i", 'ई': "ee", 'उ': "u", 'ऊ': "oo",
	'ऋ': "ri", 'ए': "e", 'ऐ': "ai", 'ओ': "o", 'औ': "au",
}

var devaMatras = map[rune]string{
	'ा': "aa", 'ि': "i", 'ी': "ee", 'ु': "u", 'ू': "oo",
	'ृ': "ri", 'े': "e", 'ै': "ai", 'ो': "o", 'ौ': "au",
}

var devaConsonants = map[rune]string{
	'क': "k", 'ख': "kh", 'ग': "g", 'घ': "gh", 'ङ': "n",
	'च': "ch", 'छ': "chh", 'ज': "j", 'झ': "jh", 'ञ': "n",
	'ट': "t", 'ठ': "th", 'ड': "d", 'ढ': "dh", 'ण': "n",
	'त': "t", 'थ': "th", 'द': "d", 'ध': "dh", 'न': "n",
	'प': "p", 'फ': "ph", 'ब': "b", 'भ': "bh", 'म': "m",
	'य': "y", 'र': "r", 'ल': "l", 'व': "v", 'श': "sh",
	'ष': "sh", 'स': "s", 'ह': "h",
	'ज़': "z", 'फ़': "f", 'ड़': "r", 'ढ़': "rh", 'क़': "q",
}

// romanUnits maps roman sequences to a Devanagari consonant or a
// (vowel, matra) pair. Longest sequences are matched first.
type romanUnit struct {
	consonant string
	vowel     string
	matra     string
}

var romanUnits = map[string]romanUnit{
	"chh": {consonant: "छ"}, "kh": {consonant: "ख"}, "gh": {consonant: "घ"},
	"ch": {consonant: "च"}, "jh": {consonant: "झ"}, "th": {consonant: "थ"},
	"dh": {consonant: "ध"}, "ph": {consonant: "फ"}, "bh": {consonant: "भ"},
	"sh": {consonant: "श"},
	"k":  {consonant: "क"}, "g": {consonant: "ग"}, "j": {consonant: "ज"},
	"t": {consonant: "त"}, "d": {consonant: "द"}, "n": {consonant: "न"},
	"p": {consonant: "प"}, "b": {consonant: "ब"}, "m": {consonant: "म"},
	"y": {consonant: "य"}, "r": {consonant: "र"}, "l": {consonant: "ल"},
	"v": {consonant: "व"}, "w": {consonant: "व"}, "s": {consonant: "स"},
	"h": {consonant: "ह"}, "z": {consonant: "ज़"}, "f": {consonant: "फ़"},
	"q": {consonant: "क़"}, "c": {consonant: "क"}, "x": {consonant: "क"},

	"aa": {vowel: "आ", matra: "ा"}, "ee": {vowel: "ई", matra: "ी"},
	"ii": {vowel: "ई", matra: "ी"}, "oo": {vowel: "ऊ", matra: "ू"},
	"uu": {vowel: "ऊ", matra: "ू"}, "ai": {vowel: "ऐ", matra: "ै"},
	"au": {vowel: "औ", matra: "ौ"},
	"a":  {vowel: "अ", matra: ""}, "i": {vowel: "इ", matra: "ि"},
	"u": {vowel: "उ", matra: "ु"}, "e": {vowel: "ए", matra: "े"},
	"o": {vowel: "ओ", matra: "ो"},
}

var romanKeys = func() []string {
	keys := make([]string, 0, len(romanUnits))
	for k := range romanUnits {
		keys = append(keys, k)
	}
	// longest first so "chh" wins over "ch" wins over "c"
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	return keys
}()

// ToRoman transliterates Devanagari text to a lowercase roman form. Final
// inherent vowels are dropped (schwa deletion), matching how Hindi speakers
// type crop names in latin script.
func ToRoman(s string) string {
	runes := []rune(s)
	var b strings.Builder

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == anusvara || r == chandrabindu:
			b.WriteString("n")
		case r == visarga:
			b.WriteString("h")
		case r == virama || r == nukta:
			// consumed by the consonant handling below
		case devaVowels[r] != "":
			b.WriteString(devaVowels[r])
		case devaMatras[r] != "":
			b.WriteString(devaMatras[r])
		case devaConsonants[r] != "":
			b.WriteString(devaConsonants[r])
			// inherent "a" unless silenced by a virama, a matra, or word end
			j := i + 1
			if j < len(runes) && runes[j] == nukta {
				j++
			}
			if j < len(runes) {
				next := runes[j]
				if next != virama && next != ' ' && devaMatras[next] == "" {
					b.WriteString("a")
				}
			}
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// ToDevanagari transliterates a roman token sequence to Devanagari by greedy
// longest-match. Consonant clusters are joined with a virama.
func ToDevanagari(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	prevConsonant := false

	i := 0
	for i < len(s) {
		if s[i] == ' ' {
			b.WriteByte(' ')
			prevConsonant = false
			i++
			continue
		}

		matched := false
		for _, key := range romanKeys {
			if !strings.HasPrefix(s[i:], key) {
				continue
			}
			unit := romanUnits[key]
			if unit.consonant != "" {
				if prevConsonant {
					b.WriteRune(virama)
				}
				b.WriteString(unit.consonant)
				prevConsonant = true
			} else {
				if prevConsonant {
					b.WriteString(unit.matra) // inherent "a" has an empty matra
				} else {
					b.WriteString(unit.vowel)
				}
				prevConsonant = false
			}
			i += len(key)
			matched = true
			break
		}
		if !matched {
			b.WriteByte(s[i])
			prevConsonant = false
			i++
		}
	}
	return strings.TrimSpace(b.String())
}

// TransliterationVariants returns alternate script forms for an alias or
// query, both directions attempted when the respective script is detected.
func TransliterationVariants(s string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v != "" && v != s && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	if HasDevanagari(s) {
		add(ToRoman(s))
	}
	if HasLatin(s) {
		add(ToDevanagari(s))
	}
	return out
}
