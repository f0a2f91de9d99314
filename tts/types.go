package tts

import (
	"strings"
	"time"
)

// WordsPerMinute is the speaking rate used for every duration estimate.
const WordsPerMinute = 150

// Language identifies one of the two supported document languages.
type Language string

const (
	// LanguageEnglish is the default language.
	LanguageEnglish Language = "en"
	// LanguagePolish is the secondary language.
	LanguagePolish Language = "pl"
)

// String returns the language code.
func (l Language) String() string {
	return string(l)
}

// DisplayName returns a human readable language name.
func (l Language) DisplayName() string {
	switch l {
	case LanguageEnglish:
		return "English"
	case LanguagePolish:
		return "Polish"
	default:
		return "unknown"
	}
}

// ParseLanguage accepts codes like "en", "en-US", "pl_PL" or names like
// "polish".
func ParseLanguage(s string) (Language, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexAny(s, "-_"); i > 0 {
		s = s[:i]
	}
	switch s {
	case "en", "eng", "english":
		return LanguageEnglish, true
	case "pl", "pol", "polish", "polski":
		return LanguagePolish, true
	}
	return "", false
}

// SegmentType classifies a spoken segment.
type SegmentType int

const (
	// SegmentSentence is an ordinary sentence of body text.
	SegmentSentence SegmentType = iota
	// SegmentParagraph is a body paragraph without terminal punctuation.
	SegmentParagraph
	// SegmentHeading is a title or section heading.
	SegmentHeading
	// SegmentList is a bulleted or numbered item.
	SegmentList
	// SegmentQuote is quoted text.
	SegmentQuote
)

// String returns the string representation of the segment type.
func (t SegmentType) String() string {
	switch t {
	case SegmentSentence:
		return "sentence"
	case SegmentParagraph:
		return "paragraph"
	case SegmentHeading:
		return "heading"
	case SegmentList:
		return "list"
	case SegmentQuote:
		return "quote"
	default:
		return "unknown"
	}
}

// Emphasis describes how a segment should be voiced.
type Emphasis int

const (
	EmphasisNormal Emphasis = iota
	EmphasisStrong
	EmphasisSoft
)

// String returns the string representation of the emphasis.
func (e Emphasis) String() string {
	switch e {
	case EmphasisNormal:
		return "normal"
	case EmphasisStrong:
		return "strong"
	case EmphasisSoft:
		return "soft"
	default:
		return "unknown"
	}
}

// Segment is the unit submitted to the synthesizer.
type Segment struct {
	Text          string      // Spoken text, never empty
	Type          SegmentType // Structural role
	Emphasis      Emphasis    // Voicing hint
	PauseAfterMs  int         // Silence inserted after the segment
	PitchShift    float64     // Semitones, 0 for none
	SpeedModifier float64     // 0.8 to 1.2, 0 means unchanged
}

// Words returns the number of whitespace separated tokens.
func (s Segment) Words() int {
	return len(strings.Fields(s.Text))
}

// EstimatedDuration is the speaking time of the text alone at
// WordsPerMinute.
func (s Segment) EstimatedDuration() time.Duration {
	return EstimateSpeech(s.Words())
}

// Pause returns PauseAfterMs as a duration.
func (s Segment) Pause() time.Duration {
	return time.Duration(s.PauseAfterMs) * time.Millisecond
}

// EstimateSpeech converts a word count to speaking time.
func EstimateSpeech(words int) time.Duration {
	return time.Duration(float64(words) / WordsPerMinute * float64(time.Minute))
}

// Metadata summarizes a processed document.
type Metadata struct {
	WordCount         int
	SentenceCount     int
	EstimatedDuration time.Duration // Speech plus pauses, an estimate only
}

// ProcessedText is the output of the preprocessing pipeline.
type ProcessedText struct {
	Segments   []Segment
	Language   Language
	Confidence float64 // 0 to 1
	Metadata   Metadata
}

// Gender of a voice personality.
type Gender string

const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
)

// Style of a voice personality.
type Style string

const (
	StyleCalm   Style = "calm"
	StyleLively Style = "lively"
)

// Personality is a named voice preset from the catalog.
type Personality struct {
	ID          string
	DisplayName string
	Language    Language
	Gender      Gender
	Style       Style
	BasePitch   float64 // Multiplier, 1.0 is the voice default
	BaseRate    float64 // Multiplier, 1.0 is the voice default
	Description string
}

// VoiceHandle is an opaque host voice as reported by the synthesizer.
type VoiceHandle struct {
	ID       string // Identifier understood by the synthesizer
	Name     string // Human-readable name
	Language string // BCP 47 tag as reported by the host, e.g. "pl-PL"
	Gender   Gender // Optional, empty when the host does not say
	Default  bool   // Host default voice
}
