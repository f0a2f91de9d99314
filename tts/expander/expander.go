// Package expander rewrites abbreviations, numbers, currency, times and
// fractions into words a speech synthesizer reads naturally.
package expander

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/keczkasz/studywave/tts"
)

// Expander performs language-specific lexical expansion.
type Expander struct {
	abbreviations map[tts.Language][]abbreviation
	numbers       *numberRules
}

// New creates an Expander with the built-in English and Polish tables.
func New() *Expander {
	return &Expander{
		abbreviations: map[tts.Language][]abbreviation{
			tts.LanguageEnglish: sortedByLength(englishAbbreviations),
			tts.LanguagePolish:  sortedByLength(polishAbbreviations),
		},
		numbers: newNumberRules(),
	}
}

var defaultExpander = New()

// Expand rewrites text using the default Expander.
func Expand(text string, lang tts.Language) string {
	return defaultExpander.Expand(text, lang)
}

// Expand rewrites abbreviations first and numbers second. Unknown
// languages are treated as English.
func (x *Expander) Expand(text string, lang tts.Language) string {
	if lang != tts.LanguagePolish {
		lang = tts.LanguageEnglish
	}
	text = x.expandAbbreviations(text, x.abbreviations[lang])
	return x.numbers.expand(text, lang)
}

func sortedByLength(entries []abbreviation) []abbreviation {
	out := make([]abbreviation, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].key) > len(out[j].key)
	})
	return out
}

func (x *Expander) expandAbbreviations(text string, entries []abbreviation) string {
	var b strings.Builder
	b.Grow(len(text))

	for i := 0; i < len(text); {
		if atWordStart(text, i) {
			if a, n, ok := matchAbbreviation(text, i, entries); ok {
				matched := text[i : i+n]
				b.WriteString(applyCase(a.expansion, matched))
				if a.sentenceEnd && endsSentence(text, i+n) {
					b.WriteByte('.')
				}
				i += n
				continue
			}
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		b.WriteString(text[i : i+size])
		i += size
	}

	return b.String()
}

func matchAbbreviation(text string, i int, entries []abbreviation) (abbreviation, int, bool) {
	for _, a := range entries {
		n := len(a.key)
		if len(text)-i < n {
			continue
		}
		candidate := text[i : i+n]
		if !keyMatches(a.key, candidate) {
			continue
		}

		next, ok := runeAt(text, i+n)
		if ok {
			if unicode.IsLetter(next) {
				continue
			}
			if !strings.HasSuffix(a.key, ".") && (unicode.IsDigit(next) || next == '@' || next == '_') {
				continue
			}
		}

		if a.beforeNumber && !numberFollows(text, i+n) {
			continue
		}
		return a, n, true
	}
	return abbreviation{}, 0, false
}

func keyMatches(key, candidate string) bool {
	first, _ := utf8.DecodeRuneInString(key)
	if unicode.IsUpper(first) {
		return strings.EqualFold(key, candidate)
	}
	return candidate == key || candidate == capitalize(key)
}

// applyCase capitalizes the expansion when the matched text starts with an
// upper case letter and lowercases it otherwise.
func applyCase(expansion, matched string) string {
	first, _ := utf8.DecodeRuneInString(matched)
	if unicode.IsUpper(first) {
		return capitalize(expansion)
	}
	r, size := utf8.DecodeRuneInString(expansion)
	return string(unicode.ToLower(r)) + expansion[size:]
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func atWordStart(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '@' && r != '_' && r != '-'
}

func runeAt(text string, i int) (rune, bool) {
	if i >= len(text) {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return r, true
}

func runeBefore(text string, i int) (rune, bool) {
	if i <= 0 {
		return 0, false
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return r, true
}

func numberFollows(text string, i int) bool {
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch {
		case r == ' ' || r == '\u00a0':
			i += size
		case unicode.IsDigit(r):
			return true
		default:
			return false
		}
	}
	return false
}

// endsSentence reports whether the position after an abbreviation is the
// end of a sentence: end of text, a line break, or a capitalized word.
func endsSentence(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	if r == '\n' {
		return true
	}
	if r != ' ' {
		return false
	}
	rest := strings.TrimLeft(text[i:], " ")
	if rest == "" || rest[0] == '\n' {
		return true
	}
	next, _ := utf8.DecodeRuneInString(rest)
	return unicode.IsUpper(next)
}
