package voice

import (
	"regexp"
	"strings"

	"github.com/sahilm/fuzzy"
	"golang.org/x/text/language"

	"github.com/keczkasz/studywave/tts"
)

// espeakVariant matches espeak voice variants such as "en+f3" or "pl+m2".
var espeakVariant = regexp.MustCompile(`\+([fm])[1-7]\b`)

// Selector resolves personalities and picks host voices for them. It is
// stateless apart from the immutable catalog and safe for concurrent use.
type Selector struct {
	personalities []tts.Personality
	byID          map[string]tts.Personality
}

var _ tts.VoiceSelector = (*Selector)(nil)

// New creates a Selector over Catalog.
func New() *Selector {
	return NewWithCatalog(Catalog)
}

// NewWithCatalog creates a Selector over a custom catalog.
func NewWithCatalog(catalog []tts.Personality) *Selector {
	s := &Selector{
		personalities: append([]tts.Personality(nil), catalog...),
		byID:          make(map[string]tts.Personality, len(catalog)),
	}
	for _, p := range catalog {
		s.byID[p.ID] = p
	}
	return s
}

// Personality looks up a personality by id.
func (s *Selector) Personality(id string) (tts.Personality, bool) {
	p, ok := s.byID[id]
	return p, ok
}

// Personalities returns the whole catalog.
func (s *Selector) Personalities() []tts.Personality {
	return append([]tts.Personality(nil), s.personalities...)
}

// ForLanguage returns the personalities for lang in catalog order.
func (s *Selector) ForLanguage(lang tts.Language) []tts.Personality {
	var out []tts.Personality
	for _, p := range s.personalities {
		if p.Language == lang {
			out = append(out, p)
		}
	}
	return out
}

// Match returns the personality for lang with the same gender and style as
// like. It falls back to the same gender, then to the first personality of
// the language, and returns like unchanged for unknown languages.
func (s *Selector) Match(lang tts.Language, like tts.Personality) tts.Personality {
	candidates := s.ForLanguage(lang)
	if len(candidates) == 0 {
		return like
	}
	for _, p := range candidates {
		if p.Gender == like.Gender && p.Style == like.Style {
			return p
		}
	}
	for _, p := range candidates {
		if p.Gender == like.Gender {
			return p
		}
	}
	return candidates[0]
}

type personalitySource []tts.Personality

func (ps personalitySource) String(i int) string {
	return ps[i].ID + " " + ps[i].DisplayName
}

func (ps personalitySource) Len() int { return len(ps) }

// Find resolves a user supplied name. Exact ids win; otherwise the best
// fuzzy match over ids and display names is returned.
func (s *Selector) Find(query string) (tts.Personality, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return tts.Personality{}, false
	}
	if p, ok := s.byID[strings.ToLower(query)]; ok {
		return p, true
	}

	matches := fuzzy.FindFrom(query, personalitySource(s.personalities))
	if len(matches) == 0 {
		return tts.Personality{}, false
	}
	return s.personalities[matches[0].Index], true
}

// Select picks the host voice for p. A pinned voice always wins. Voices
// are filtered by language, then by gender, preferring vendor quality
// voices at each step. When no voice speaks the language the first voice
// is used. Select returns nil only when voices is empty.
func (s *Selector) Select(voices []tts.VoiceHandle, p tts.Personality, pinned *tts.VoiceHandle) *tts.VoiceHandle {
	if pinned != nil {
		return pinned
	}
	if len(voices) == 0 {
		return nil
	}

	var matches []tts.VoiceHandle
	for _, v := range voices {
		if LanguageMatches(v.Language, p.Language) {
			matches = append(matches, v)
		}
	}
	if len(matches) == 0 {
		v := voices[0]
		return &v
	}

	var gendered []tts.VoiceHandle
	for _, v := range matches {
		if GenderOf(v, p.Language) == p.Gender {
			gendered = append(gendered, v)
		}
	}
	if len(gendered) > 0 {
		return preferQuality(gendered)
	}
	return preferQuality(matches)
}

// LanguageMatches compares the base language of a host tag such as
// "pl-PL" or "en_GB" with lang. Unparseable tags fall back to a case
// insensitive prefix check.
func LanguageMatches(tag string, lang tts.Language) bool {
	if tag == "" || lang == "" {
		return false
	}
	if t, err := language.Parse(tag); err == nil {
		base, _ := t.Base()
		want, _ := language.Make(string(lang)).Base()
		return base == want
	}
	return strings.HasPrefix(strings.ToLower(tag), string(lang))
}

// GenderOf returns the gender reported by the host, or guesses it from
// espeak variant suffixes and known voice names. It returns "" when
// unknown.
func GenderOf(v tts.VoiceHandle, lang tts.Language) tts.Gender {
	if v.Gender != "" {
		return v.Gender
	}

	name := strings.ToLower(v.ID + " " + v.Name)
	if m := espeakVariant.FindStringSubmatch(name); m != nil {
		if m[1] == "f" {
			return tts.GenderFemale
		}
		return tts.GenderMale
	}

	// Female first: "female" contains "male".
	for _, tok := range femaleTokens[lang] {
		if strings.Contains(name, tok) {
			return tts.GenderFemale
		}
	}
	for _, tok := range maleTokens[lang] {
		if strings.Contains(name, tok) {
			return tts.GenderMale
		}
	}
	return ""
}

func isQuality(v tts.VoiceHandle) bool {
	name := strings.ToLower(v.Name)
	for _, tok := range qualityTokens {
		if strings.Contains(name, tok) {
			return true
		}
	}
	return false
}

func preferQuality(voices []tts.VoiceHandle) *tts.VoiceHandle {
	for _, v := range voices {
		if isQuality(v) {
			return &v
		}
	}
	v := voices[0]
	return &v
}
