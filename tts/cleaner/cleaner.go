// Package cleaner removes layout artifacts left behind by document text
// extraction and rewrites web addresses into speakable form.
package cleaner

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Cleaner strips extraction artifacts from text.
type Cleaner struct {
	// Layout patterns
	pageNumberRegex *regexp.Regexp
	pageLabelRegex  *regexp.Regexp
	pageOfRegex     *regexp.Regexp
	hyphenRegex     *regexp.Regexp
	spaceRegex      *regexp.Regexp
	lineEdgeRegex   *regexp.Regexp
	bulletLineRegex *regexp.Regexp
	newlinesRegex   *regexp.Regexp
	punctSpaceRegex *regexp.Regexp

	// Reference patterns
	urlRegex         *regexp.Regexp
	emailRegex       *regexp.Regexp
	bracketCiteRegex *regexp.Regexp
	parenCiteRegex   *regexp.Regexp
	footnoteRegex    *regexp.Regexp

	ligatures *strings.Replacer
}

// New creates a Cleaner with compiled patterns.
func New() *Cleaner {
	return &Cleaner{
		pageNumberRegex: regexp.MustCompile(`(?m)^[ \t]*(?:[-–—][ \t]*)?\d{1,4}(?:[ \t]*[-–—])?[ \t]*$\n?`),
		pageLabelRegex:  regexp.MustCompile(`(?mi)^[ \t]*(?:page|strona|str\.)[ \t]+\d{1,4}[ \t]*$\n?`),
		pageOfRegex:     regexp.MustCompile(`(?i)\b(?:page[ \t]+\d+[ \t]+of[ \t]+\d+|strona[ \t]+\d+[ \t]+z[ \t]+\d+)\b`),
		hyphenRegex:     regexp.MustCompile(`(\p{L})-[ \t]*\n[ \t]*(\p{Ll})`),
		spaceRegex:      regexp.MustCompile(`[ \t\f\v\x{00a0}\x{2000}-\x{200a}\x{202f}\x{3000}]+`),
		lineEdgeRegex:   regexp.MustCompile(`(?m)^ +| +$`),
		bulletLineRegex: regexp.MustCompile(`(?m)^[•◦▪▫●○■□‣⁃∙·*\-–—]+$\n?`),
		newlinesRegex:   regexp.MustCompile(`\n{3,}`),
		punctSpaceRegex: regexp.MustCompile(` +([.,;:!?])`),

		urlRegex:         regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>"'\x{201c}\x{201d}]+`),
		emailRegex:       regexp.MustCompile(`\b[\p{L}\p{N}._%+\-]+@[\p{L}\p{N}.\-]+\.\p{L}{2,}\b`),
		bracketCiteRegex: regexp.MustCompile(`[ \t]*\[\d{1,3}(?:[ \t]*[-–,][ \t]*\d{1,3})*\]`),
		parenCiteRegex:   regexp.MustCompile(`[ \t]*\(\d{1,3}(?:[ \t]*[-–,][ \t]*\d{1,3})*\)`),
		footnoteRegex:    regexp.MustCompile(`[¹²³⁴⁵⁶⁷⁸⁹⁰†‡]+`),

		ligatures: strings.NewReplacer(
			"\r\n", "\n",
			"\r", "\n",
			"\u00ad", "",
			"ﬀ", "ff",
			"ﬁ", "fi",
			"ﬂ", "fl",
			"ﬃ", "ffi",
			"ﬄ", "ffl",
			"ﬅ", "st",
			"ﬆ", "st",
		),
	}
}

var defaultCleaner = New()

// Clean removes artifacts using the default Cleaner.
func Clean(text string) string {
	return defaultCleaner.Clean(text)
}

// Clean removes page numbers, hyphenation breaks, stray bullets, citation
// markers and footnote glyphs, rewrites URLs and emails, and normalizes
// whitespace. Rules are applied until the text stops changing, so
// Clean(Clean(x)) == Clean(x).
func (c *Cleaner) Clean(text string) string {
	text = norm.NFC.String(c.ligatures.Replace(text))

	// Each changing pass removes or respells at least one artifact, so the
	// input length bounds the number of passes.
	for passes := len(text) + 1; passes > 0; passes-- {
		next := c.pass(text)
		if next == text {
			break
		}
		text = next
	}
	return text
}

func (c *Cleaner) pass(text string) string {
	text = c.pageNumberRegex.ReplaceAllString(text, "")
	text = c.pageLabelRegex.ReplaceAllString(text, "")
	text = c.pageOfRegex.ReplaceAllString(text, "")
	text = c.hyphenRegex.ReplaceAllString(text, "$1$2")
	text = c.normalizeSpace(text)
	text = c.bulletLineRegex.ReplaceAllString(text, "")

	text = c.emailRegex.ReplaceAllStringFunc(text, speakEmail)
	text = c.urlRegex.ReplaceAllStringFunc(text, speakURL)

	text = c.bracketCiteRegex.ReplaceAllString(text, "")
	text = c.parenCiteRegex.ReplaceAllString(text, "")
	text = c.footnoteRegex.ReplaceAllString(text, "")

	text = c.normalizeSpace(text)
	text = c.punctSpaceRegex.ReplaceAllString(text, "$1")
	text = c.newlinesRegex.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func (c *Cleaner) normalizeSpace(text string) string {
	text = c.spaceRegex.ReplaceAllString(text, " ")
	return c.lineEdgeRegex.ReplaceAllString(text, "")
}

// trailingPunct is sentence punctuation that belongs to the surrounding
// text rather than to an address.
const trailingPunct = ".,;:!?)]}"

// speakURL reduces a URL to its host, e.g. "https://www.example.com/a?b"
// becomes "example dot com".
func speakURL(raw string) string {
	trimmed := strings.TrimRight(raw, trailingPunct)
	tail := raw[len(trimmed):]

	host := trimmed
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	if i := strings.LastIndex(host, "@"); i >= 0 {
		host = host[i+1:]
	}
	if i := strings.Index(host, ":"); i >= 0 {
		host = host[:i]
	}
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	host = strings.Trim(host, ".")
	if host == "" {
		return tail
	}
	return dotted(host) + tail
}

// speakEmail spells out an address as "user at domain dot tld".
func speakEmail(raw string) string {
	at := strings.LastIndex(raw, "@")
	if at < 0 {
		return raw
	}
	return dotted(raw[:at]) + " at " + dotted(raw[at+1:])
}

func dotted(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '.' })
	return strings.Join(parts, " dot ")
}
