package expander

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/keczkasz/studywave/tts"
)

// Plural form indexes shared by currency and fraction tables.
const (
	formOne = iota
	formFew
	formMany
)

// numberRules rewrites grouped numbers, money, percentages, clock times,
// fractions, ordinals and decimals. Rules run in that order.
type numberRules struct {
	groupedComma   *regexp.Regexp
	groupedSpace   *regexp.Regexp
	currencyPrefix *regexp.Regexp
	currencySuffix *regexp.Regexp
	percent        *regexp.Regexp
	clock          *regexp.Regexp
	fraction       *regexp.Regexp
	englishOrdinal *regexp.Regexp
	polishOrdinal  *regexp.Regexp
	englishDecimal *regexp.Regexp
	polishDecimal  *regexp.Regexp
}

var groupSpaces = strings.NewReplacer("\u00a0", "", "\u202f", "")

func newNumberRules() *numberRules {
	return &numberRules{
		groupedComma:   regexp.MustCompile(`\b\d{1,3}(?:,\d{3})+\b`),
		groupedSpace:   regexp.MustCompile(`\b\d{1,3}(?:[\x{00a0}\x{202f}]\d{3})+\b`),
		currencyPrefix: regexp.MustCompile(`([$€£¥])[ \x{00a0}]?(\d+)(?:[.,](\d{1,2}))?`),
		currencySuffix: regexp.MustCompile(`(\d+)(?:[.,](\d{1,2}))?[ \x{00a0}]?(zł|PLN|USD|EUR|GBP|JPY)`),
		percent:        regexp.MustCompile(`(\d+(?:[.,]\d+)?)[ \x{00a0}]?%`),
		clock:          regexp.MustCompile(`([01]?\d|2[0-3]):([0-5]\d)(?:[ \x{00a0}]?([aApP])\.?[mM]\b)?`),
		fraction:       regexp.MustCompile(`(\d{1,2})/(\d{1,2})`),
		englishOrdinal: regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`),
		polishOrdinal:  regexp.MustCompile(`(\d{1,2})-(szy|gi|ci|ty|my|sty)`),
		englishDecimal: regexp.MustCompile(`(\d+)\.(\d+)`),
		polishDecimal:  regexp.MustCompile(`(\d+),(\d+)`),
	}
}

func (r *numberRules) expand(text string, lang tts.Language) string {
	if !strings.ContainsAny(text, "0123456789") {
		return text
	}

	if lang == tts.LanguageEnglish {
		text = r.groupedComma.ReplaceAllStringFunc(text, func(s string) string {
			return strings.ReplaceAll(s, ",", "")
		})
	}
	text = r.groupedSpace.ReplaceAllStringFunc(text, func(s string) string {
		return groupSpaces.Replace(s)
	})

	text = replaceMatches(r.currencyPrefix, text, func(text string, m []int) (string, bool) {
		if digitAfter(text, m[1]) || continuesNumber(text, m[1]) {
			return "", false
		}
		code := currencySymbols[group(text, m, 1)]
		return money(lang, code, group(text, m, 2), group(text, m, 3)), true
	})

	text = replaceMatches(r.currencySuffix, text, func(text string, m []int) (string, bool) {
		if digitBefore(text, m[0]) || extendsNumber(text, m[0]) {
			return "", false
		}
		if next, ok := runeAt(text, m[1]); ok && unicode.IsLetter(next) {
			return "", false
		}
		code := currencyCodes[group(text, m, 3)]
		return money(lang, code, group(text, m, 1), group(text, m, 2)), true
	})

	word := "percent"
	if lang == tts.LanguagePolish {
		word = "procent"
	}
	text = r.percent.ReplaceAllString(text, "$1 "+word)

	text = replaceMatches(r.clock, text, func(text string, m []int) (string, bool) {
		if prev, ok := runeBefore(text, m[0]); ok && (isDigit(prev) || prev == ':') {
			return "", false
		}
		if next, ok := runeAt(text, m[1]); ok && (isDigit(next) || next == ':') {
			return "", false
		}
		return clockTime(lang, group(text, m, 1), group(text, m, 2), group(text, m, 3)), true
	})

	text = replaceMatches(r.fraction, text, func(text string, m []int) (string, bool) {
		if prev, ok := runeBefore(text, m[0]); ok && (isDigit(prev) || prev == '/') {
			return "", false
		}
		if next, ok := runeAt(text, m[1]); ok && (isDigit(next) || next == '/') {
			return "", false
		}
		return fraction(lang, group(text, m, 1), group(text, m, 2))
	})

	if lang == tts.LanguagePolish {
		text = replaceMatches(r.polishOrdinal, text, func(text string, m []int) (string, bool) {
			if digitBefore(text, m[0]) {
				return "", false
			}
			if next, ok := runeAt(text, m[1]); ok && unicode.IsLetter(next) {
				return "", false
			}
			n, _ := strconv.Atoi(group(text, m, 1))
			if n < 1 {
				return "", false
			}
			return ordinal(polishOrdinals, polishTensOrdinal, polishTensOrdinal, n), true
		})
		return replaceMatches(r.polishDecimal, text, func(text string, m []int) (string, bool) {
			return decimal(lang, text, m)
		})
	}

	text = replaceMatches(r.englishOrdinal, text, func(text string, m []int) (string, bool) {
		n, _ := strconv.Atoi(group(text, m, 1))
		if n < 1 {
			return "", false
		}
		return ordinal(englishOrdinals, englishTens, englishTensOrdinal, n), true
	})
	return replaceMatches(r.englishDecimal, text, func(text string, m []int) (string, bool) {
		return decimal(lang, text, m)
	})
}

// replaceMatches calls fn for every match of re. Matches for which fn
// reports false are left untouched.
func replaceMatches(re *regexp.Regexp, text string, fn func(text string, m []int) (string, bool)) string {
	matches := re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		repl, ok := fn(text, m)
		if !ok {
			continue
		}
		b.WriteString(text[last:m[0]])
		b.WriteString(repl)
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

func group(text string, m []int, i int) string {
	if 2*i+1 >= len(m) || m[2*i] < 0 {
		return ""
	}
	return text[m[2*i]:m[2*i+1]]
}

func money(lang tts.Language, code, major, minor string) string {
	names := currencyNames[lang][code]
	major = trimZeros(major)
	out := major + " " + names.form(pluralForm(major, lang))

	if len(minor) == 1 {
		minor += "0"
	}
	if minor == "" || minor == "00" {
		return out
	}
	if names.minorOne == "" {
		return decimalWords(lang, major, minor) + " " + names.many
	}
	minor = trimZeros(minor)
	return out + " " + minor + " " + names.minorForm(pluralForm(minor, lang))
}

func (c currency) form(i int) string {
	switch i {
	case formOne:
		return c.one
	case formFew:
		return c.few
	default:
		return c.many
	}
}

func (c currency) minorForm(i int) string {
	switch i {
	case formOne:
		return c.minorOne
	case formFew:
		return c.minorFew
	default:
		return c.minorMany
	}
}

// pluralForm picks the grammatical number for a quantity written in ASCII
// digits. English only distinguishes one from many.
func pluralForm(digits string, lang tts.Language) int {
	d := trimZeros(digits)
	if d == "1" {
		return formOne
	}
	if lang != tts.LanguagePolish {
		return formMany
	}

	n := int(d[len(d)-1] - '0')
	if len(d) >= 2 {
		n += int(d[len(d)-2]-'0') * 10
	}
	last := n % 10
	if last >= 2 && last <= 4 && (n < 12 || n > 14) {
		return formFew
	}
	return formMany
}

func clockTime(lang tts.Language, hour, minute, meridiem string) string {
	out := trimZeros(hour)
	zero := " oh "
	if lang == tts.LanguagePolish {
		zero = " zero "
	}

	switch {
	case minute == "00":
	case minute[0] == '0':
		out += zero + minute[1:]
	default:
		out += " " + minute
	}

	if meridiem != "" {
		out += " " + strings.ToLower(meridiem) + "m"
	}
	return out
}

func fraction(lang tts.Language, num, den string) (string, bool) {
	if den[0] == '0' {
		return "", false
	}
	d, _ := strconv.Atoi(den)
	num = trimZeros(num)

	if lang == tts.LanguagePolish {
		forms, ok := polishFractions[d]
		if !ok {
			return num + " łamane przez " + den, true
		}
		return num + " " + forms[pluralForm(num, lang)], true
	}

	forms, ok := englishFractions[d]
	if !ok {
		return num + " over " + den, true
	}
	if num == "1" {
		return num + " " + forms[0], true
	}
	return num + " " + forms[1], true
}

// ordinal spells 1 to 99. Compound ordinals use a cardinal tens word in
// English ("twenty first") and an ordinal one in Polish ("dwudziesty
// pierwszy").
func ordinal(units, compoundTens, roundTens []string, n int) string {
	switch {
	case n < 20:
		return units[n]
	case n%10 == 0:
		return roundTens[n/10]
	default:
		return compoundTens[n/10] + " " + units[n%10]
	}
}

// decimal rewrites "3.14" as "3 point 1 4". Dotted sequences such as
// version numbers and dates are skipped.
func decimal(lang tts.Language, text string, m []int) (string, bool) {
	if digitBefore(text, m[0]) || extendsNumber(text, m[0]) || continuesNumber(text, m[1]) {
		return "", false
	}
	return decimalWords(lang, group(text, m, 1), group(text, m, 2)), true
}

func decimalWords(lang tts.Language, whole, frac string) string {
	sep := " point "
	if lang == tts.LanguagePolish {
		sep = " przecinek "
	}
	digits := make([]string, 0, len(frac))
	for _, r := range frac {
		digits = append(digits, string(r))
	}
	return whole + sep + strings.Join(digits, " ")
}

func trimZeros(digits string) string {
	d := strings.TrimLeft(digits, "0")
	if d == "" {
		return "0"
	}
	return d
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func digitBefore(text string, i int) bool {
	r, ok := runeBefore(text, i)
	return ok && isDigit(r)
}

func digitAfter(text string, i int) bool {
	r, ok := runeAt(text, i)
	return ok && isDigit(r)
}

// continuesNumber reports whether a separator followed by a digit starts
// at i.
func continuesNumber(text string, i int) bool {
	r, ok := runeAt(text, i)
	if !ok || (r != '.' && r != ',') {
		return false
	}
	return digitAfter(text, i+1)
}

// extendsNumber reports whether a digit followed by a separator ends at i.
func extendsNumber(text string, i int) bool {
	r, ok := runeBefore(text, i)
	if !ok || (r != '.' && r != ',') {
		return false
	}
	return digitBefore(text, i-1)
}
