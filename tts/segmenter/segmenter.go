// Package segmenter splits prepared text into speech segments with
// structural types, emphasis, pauses and prosody hints.
package segmenter

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/keczkasz/studywave/tts"
)

// Pause lengths in milliseconds.
const (
	PauseSentence  = 400
	PauseEmphatic  = 500
	PauseList      = 300
	PauseHeading   = 800
	PauseParagraph = 700
)

const (
	questionPitchShift  = 1.0
	exclamationSpeedMod = 1.05

	maxKeywordHeadingRunes = 100
	maxShortHeadingRunes   = 60
	maxShortHeadingWords   = 10
)

const (
	terminals   = ".!?…"
	closers     = "\"'”’»)]}"
	openQuotes  = "\"“„«"
	closeQuotes = "\"”“»"
)

type paragraphKind int

const (
	kindBody paragraphKind = iota
	kindHeading
	kindList
	kindQuote
)

// Segmenter splits text into segments.
type Segmenter struct {
	paragraphRegex  *regexp.Regexp
	listMarkerRegex *regexp.Regexp
	terminalRegex   *regexp.Regexp

	// What may follow a heading keyword in a punctuated paragraph, as in
	// "Chapter 3.", "Part IV" or "Appendix B".
	headingShapeRegex *regexp.Regexp
	headingKeywords   []string
}

// New creates a Segmenter with English and Polish heading keywords.
func New() *Segmenter {
	return &Segmenter{
		paragraphRegex:  regexp.MustCompile(`\n[ \t]*\n\s*`),
		listMarkerRegex: regexp.MustCompile(`^(?:[•◦▪‣⁃∙·*\-–—][ \t]+|\d{1,3}[.)][ \t]+|[a-zA-Z]\)[ \t]+)`),
		terminalRegex:   regexp.MustCompile(`[.!?…]+`),

		headingShapeRegex: regexp.MustCompile(`^(?:$|[ \t]*[:.]|[ \t]+[–—-]|[ \t]+(?:\d|[IVXLC]+\b|[A-Z]\b))`),

		headingKeywords: []string{
			// English
			"chapter", "section", "part", "introduction", "conclusion",
			"conclusions", "summary", "abstract", "appendix", "references",
			"bibliography", "contents", "table of contents", "preface",
			"acknowledgements", "acknowledgments", "lesson", "unit",
			// Polish
			"rozdział", "część", "wstęp", "wprowadzenie", "podsumowanie",
			"zakończenie", "streszczenie", "bibliografia", "spis treści",
			"dodatek", "aneks", "przedmowa", "podziękowania", "lekcja",
			"wnioski",
		},
	}
}

var defaultSegmenter = New()

// Segment splits text using the default Segmenter.
func Segment(text string) ([]tts.Segment, tts.Metadata) {
	return defaultSegmenter.Segment(text)
}

// Segment splits text on blank lines into paragraphs, classifies each
// paragraph and splits it into sentences. Joining the segment texts with
// single spaces reproduces the input up to whitespace.
func (s *Segmenter) Segment(text string) ([]tts.Segment, tts.Metadata) {
	var segments []tts.Segment

	for _, para := range s.paragraphRegex.Split(text, -1) {
		if strings.TrimSpace(para) == "" {
			continue
		}
		segments = append(segments, s.paragraph(para)...)
	}

	return segments, s.metadata(text, segments)
}

func (s *Segmenter) paragraph(raw string) []tts.Segment {
	lines := nonEmptyLines(raw)
	flat := strings.Join(strings.Fields(raw), " ")
	kind := s.classify(lines[0], flat)

	var sentences []string
	if kind == kindList {
		for _, item := range s.listItems(lines) {
			marker := s.listMarkerRegex.FindString(item)
			parts := splitSentences(item[len(marker):])
			if len(parts) > 0 && marker != "" {
				parts[0] = strings.TrimSpace(marker) + " " + parts[0]
			}
			sentences = append(sentences, parts...)
		}
	} else {
		sentences = splitSentences(flat)
	}

	segments := make([]tts.Segment, 0, len(sentences))
	for i, text := range sentences {
		seg := tts.Segment{
			Text:         text,
			Type:         segmentType(kind),
			Emphasis:     tts.EmphasisNormal,
			PauseAfterMs: PauseSentence,
		}

		switch kind {
		case kindHeading:
			seg.Emphasis = tts.EmphasisStrong
			seg.PauseAfterMs = PauseHeading
		case kindQuote:
			seg.Emphasis = tts.EmphasisSoft
		case kindList:
			seg.PauseAfterMs = PauseList
		}
		if i == 0 && kind != kindQuote {
			seg.Emphasis = tts.EmphasisStrong
		}

		question, exclamation := terminalMarks(text)
		if question {
			seg.PitchShift = questionPitchShift
		}
		if exclamation {
			seg.SpeedModifier = exclamationSpeedMod
		}
		if (question || exclamation) && seg.PauseAfterMs < PauseEmphatic {
			seg.PauseAfterMs = PauseEmphatic
		}

		segments = append(segments, seg)
	}

	if n := len(segments); n > 0 {
		segments[n-1].PauseAfterMs = PauseParagraph
		if kind == kindBody && n == 1 && !hasTerminal(segments[0].Text) {
			segments[0].Type = tts.SegmentParagraph
		}
	}
	return segments
}

// classify applies list, quote, heading and body checks in that order.
func (s *Segmenter) classify(firstLine, flat string) paragraphKind {
	switch {
	case s.listMarkerRegex.MatchString(firstLine):
		return kindList
	case isQuoted(flat):
		return kindQuote
	case s.isHeading(flat):
		return kindHeading
	default:
		return kindBody
	}
}

func (s *Segmenter) isHeading(flat string) bool {
	runes := utf8.RuneCountInString(flat)

	if runes <= maxKeywordHeadingRunes {
		for _, kw := range s.headingKeywords {
			if len(flat) < len(kw) || !strings.EqualFold(flat[:len(kw)], kw) {
				continue
			}
			rest := flat[len(kw):]
			if next, _ := utf8.DecodeRuneInString(rest); rest != "" && unicode.IsLetter(next) {
				continue
			}
			if s.headingShapeRegex.MatchString(rest) || !hasTerminal(flat) {
				return true
			}
		}
	}

	return runes <= maxShortHeadingRunes &&
		len(strings.Fields(flat)) <= maxShortHeadingWords &&
		!hasTerminal(flat)
}

// listItems groups lines into items. A line without a marker continues the
// previous item.
func (s *Segmenter) listItems(lines []string) []string {
	var items []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if len(items) > 0 && !s.listMarkerRegex.MatchString(line) {
			items[len(items)-1] += " " + line
			continue
		}
		items = append(items, line)
	}
	return items
}

func (s *Segmenter) metadata(text string, segments []tts.Segment) tts.Metadata {
	words := len(strings.Fields(text))

	var pauses time.Duration
	for _, seg := range segments {
		pauses += seg.Pause()
	}

	return tts.Metadata{
		WordCount:         words,
		SentenceCount:     len(s.terminalRegex.FindAllStringIndex(text, -1)),
		EstimatedDuration: tts.EstimateSpeech(words) + pauses,
	}
}

// splitSentences breaks text after runs of terminal punctuation, plus any
// closing quotes or brackets, that are followed by whitespace or the end
// of the text. Initials such as "J. K." and ellipses followed by a lower
// case word do not end a sentence.
func splitSentences(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0

	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}

		end := i + 1
		for end < len(runes) && isTerminal(runes[end]) {
			end++
		}
		for end < len(runes) && isCloser(runes[end]) {
			end++
		}
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			i = end - 1
			continue
		}
		if isInitial(runes, i, end) || continuesAfterEllipsis(runes, i, end) {
			i = end - 1
			continue
		}

		if sentence := strings.TrimSpace(string(runes[start:end])); sentence != "" {
			out = append(out, sentence)
		}
		start = end
		i = end - 1
	}

	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		out = append(out, rest)
	}
	return out
}

// isInitial reports whether the single dot at i follows a lone capital
// letter, as in "J. K. Rowling" or "U.S. Army".
func isInitial(runes []rune, i, end int) bool {
	if runes[i] != '.' || end-i > 1 && isTerminal(runes[i+1]) {
		return false
	}
	if i < 1 || !unicode.IsUpper(runes[i-1]) {
		return false
	}
	return i < 2 || unicode.IsSpace(runes[i-2]) || runes[i-2] == '.'
}

func continuesAfterEllipsis(runes []rune, i, end int) bool {
	dots := 0
	for j := i; j < end && (runes[j] == '.' || runes[j] == '…'); j++ {
		if runes[j] == '…' {
			dots += 3
		} else {
			dots++
		}
	}
	if dots < 3 {
		return false
	}

	next := end
	for next < len(runes) && unicode.IsSpace(runes[next]) {
		next++
	}
	return next < len(runes) && unicode.IsLower(runes[next])
}

func isTerminal(r rune) bool {
	return strings.ContainsRune(terminals, r)
}

func isCloser(r rune) bool {
	return strings.ContainsRune(closers, r)
}

func hasTerminal(text string) bool {
	trimmed := strings.TrimRightFunc(text, isCloser)
	last, _ := utf8.DecodeLastRuneInString(trimmed)
	return isTerminal(last)
}

// terminalMarks inspects the trailing punctuation run of a sentence.
func terminalMarks(text string) (question, exclamation bool) {
	trimmed := strings.TrimRightFunc(text, isCloser)
	for len(trimmed) > 0 {
		r, size := utf8.DecodeLastRuneInString(trimmed)
		if !isTerminal(r) {
			break
		}
		switch r {
		case '?':
			question = true
		case '!':
			exclamation = true
		}
		trimmed = trimmed[:len(trimmed)-size]
	}
	return question, exclamation
}

func isQuoted(flat string) bool {
	if strings.HasPrefix(flat, ">") {
		return true
	}
	first, _ := utf8.DecodeRuneInString(flat)
	if !strings.ContainsRune(openQuotes, first) {
		return false
	}
	trimmed := strings.TrimRight(flat, terminals)
	if utf8.RuneCountInString(trimmed) < 2 {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(trimmed)
	return strings.ContainsRune(closeQuotes, last)
}

func nonEmptyLines(raw string) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimSpace(line))
		}
	}
	return lines
}

func segmentType(kind paragraphKind) tts.SegmentType {
	switch kind {
	case kindHeading:
		return tts.SegmentHeading
	case kindList:
		return tts.SegmentList
	case kindQuote:
		return tts.SegmentQuote
	default:
		return tts.SegmentSentence
	}
}
