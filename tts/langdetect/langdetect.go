// Package langdetect picks English or Polish for a text sample using
// diacritic frequency and closed stop-word lists.
package langdetect

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/keczkasz/studywave/tts"
)

// DefaultSampleBytes is how much of the input Detect looks at.
const DefaultSampleBytes = 2048

const (
	maxConfidence     = 0.99
	fallbackConfident = 0.5
	diacriticWeight   = 3.0
)

// Result is the outcome of a detection.
type Result struct {
	Language   tts.Language
	Confidence float64
}

var englishStopWords = set(
	"the", "a", "an", "and", "or", "but", "of", "to", "in", "on", "at", "for",
	"with", "by", "from", "is", "are", "was", "were", "be", "been", "it",
	"this", "that", "these", "those", "as", "not", "have", "has", "had",
	"which", "who", "will", "would", "can", "there", "their", "they", "we",
	"you", "he", "she", "his", "her", "its", "if", "than", "then", "into",
)

var polishStopWords = set(
	"i", "w", "z", "na", "do", "nie", "się", "że", "to", "jest", "o", "od",
	"po", "jak", "ale", "a", "oraz", "lub", "czy", "dla", "przez", "przy",
	"ten", "ta", "te", "tego", "tej", "jego", "jej", "ich", "są", "był",
	"była", "było", "być", "już", "tak", "także", "też", "tylko", "gdy",
	"który", "która", "które", "może", "ze", "we", "za", "pod", "nad", "bez",
)

const polishDiacritics = "ąćęłńóśźżĄĆĘŁŃÓŚŹŻ"

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// Detector scores samples of a bounded size.
type Detector struct {
	sampleBytes int
}

// New creates a Detector that reads at most sampleBytes of input. Values
// of zero or less select DefaultSampleBytes.
func New(sampleBytes int) *Detector {
	if sampleBytes <= 0 {
		sampleBytes = DefaultSampleBytes
	}
	return &Detector{sampleBytes: sampleBytes}
}

var defaultDetector = New(DefaultSampleBytes)

// Detect runs the default Detector.
func Detect(text string) Result {
	return defaultDetector.Detect(text)
}

// Detect never fails. An empty or symbol-only sample is English with
// confidence 0.5, and equal scores favour English.
func (d *Detector) Detect(text string) Result {
	sample := truncate(text, d.sampleBytes)

	words := strings.FieldsFunc(sample, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	if len(words) == 0 {
		return Result{Language: tts.LanguageEnglish, Confidence: fallbackConfident}
	}

	var diacritics, enHits, plHits int
	for _, r := range sample {
		if strings.ContainsRune(polishDiacritics, r) {
			diacritics++
		}
	}
	for _, w := range words {
		// A capital "I" is the English pronoun, the lowercase one the
		// Polish conjunction.
		if w == "I" {
			enHits++
			continue
		}
		w = strings.ToLower(w)
		if _, ok := englishStopWords[w]; ok {
			enHits++
		}
		if _, ok := polishStopWords[w]; ok {
			plHits++
		}
	}

	total := float64(len(words))
	en := float64(enHits) / total
	pl := diacriticWeight*float64(diacritics)/total + float64(plHits)/total

	if en == 0 && pl == 0 {
		return Result{Language: tts.LanguageEnglish, Confidence: fallbackConfident}
	}

	lang, winner := tts.LanguageEnglish, en
	if pl > en {
		lang, winner = tts.LanguagePolish, pl
	}
	return Result{Language: lang, Confidence: min(winner/(en+pl), maxConfidence)}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
