package expander

import "github.com/keczkasz/studywave/tts"

// abbreviation is a table entry. Entries whose key starts with an upper
// case letter match case-insensitively; lower case keys also match with a
// capitalized first letter.
type abbreviation struct {
	key          string
	expansion    string
	beforeNumber bool // only expands when a number follows, e.g. "No. 5"
	sentenceEnd  bool // a trailing dot may also end the sentence
}

var englishAbbreviations = []abbreviation{
	{key: "Dr.", expansion: "Doctor"},
	{key: "Mr.", expansion: "Mister"},
	{key: "Mrs.", expansion: "Missus"},
	{key: "Ms.", expansion: "Miz"},
	{key: "Prof.", expansion: "Professor"},
	{key: "Jr.", expansion: "Junior"},
	{key: "Sr.", expansion: "Senior"},
	{key: "Dept.", expansion: "Department"},
	{key: "Univ.", expansion: "University"},
	{key: "Inc.", expansion: "Incorporated", sentenceEnd: true},
	{key: "Ltd.", expansion: "Limited", sentenceEnd: true},
	{key: "Fig.", expansion: "Figure", beforeNumber: true},
	{key: "Figs.", expansion: "Figures", beforeNumber: true},
	{key: "Vol.", expansion: "Volume", beforeNumber: true},
	{key: "No.", expansion: "Number", beforeNumber: true},
	{key: "Ch.", expansion: "Chapter", beforeNumber: true},
	{key: "Eq.", expansion: "Equation", beforeNumber: true},
	{key: "Sec.", expansion: "Section", beforeNumber: true},
	{key: "e.g.", expansion: "for example"},
	{key: "i.e.", expansion: "that is"},
	{key: "etc.", expansion: "et cetera", sentenceEnd: true},
	{key: "et al.", expansion: "and others", sentenceEnd: true},
	{key: "vs.", expansion: "versus"},
	{key: "approx.", expansion: "approximately"},
	{key: "cf.", expansion: "compare"},
	{key: "p.", expansion: "page", beforeNumber: true},
	{key: "pp.", expansion: "pages", beforeNumber: true},
}

var polishAbbreviations = []abbreviation{
	{key: "dr", expansion: "doktor"},
	{key: "dr.", expansion: "doktor"},
	{key: "prof.", expansion: "profesor"},
	{key: "hab.", expansion: "habilitowany"},
	{key: "mgr", expansion: "magister"},
	{key: "inż.", expansion: "inżynier"},
	{key: "np.", expansion: "na przykład"},
	{key: "tzn.", expansion: "to znaczy"},
	{key: "tj.", expansion: "to jest"},
	{key: "itd.", expansion: "i tak dalej", sentenceEnd: true},
	{key: "itp.", expansion: "i tym podobne", sentenceEnd: true},
	{key: "m.in.", expansion: "między innymi"},
	{key: "ok.", expansion: "około"},
	{key: "ul.", expansion: "ulica"},
	{key: "al.", expansion: "aleja"},
	{key: "wg", expansion: "według"},
	{key: "tzw.", expansion: "tak zwany"},
	{key: "godz.", expansion: "godzina"},
	{key: "zob.", expansion: "zobacz"},
	{key: "por.", expansion: "porównaj"},
	{key: "ww.", expansion: "wyżej wymieniony"},
	{key: "jw.", expansion: "jak wyżej"},
	{key: "ds.", expansion: "do spraw"},
	{key: "im.", expansion: "imienia"},
	{key: "św.", expansion: "święty"},
	{key: "tys.", expansion: "tysięcy"},
	{key: "mln", expansion: "milionów"},
	{key: "mld", expansion: "miliardów"},
	{key: "proc.", expansion: "procent"},
	{key: "nr", expansion: "numer", beforeNumber: true},
	{key: "pkt", expansion: "punkt", beforeNumber: true},
	{key: "str.", expansion: "strona", beforeNumber: true},
	{key: "s.", expansion: "strona", beforeNumber: true},
	{key: "rys.", expansion: "rysunek", beforeNumber: true},
	{key: "tab.", expansion: "tabela", beforeNumber: true},
	{key: "rozdz.", expansion: "rozdział", beforeNumber: true},
}

// currency describes the spoken names of a currency.
type currency struct {
	one, few, many                string // major unit forms
	minorOne, minorFew, minorMany string // minor unit forms, empty for none
}

// currencyNames is keyed by language and then by ISO code.
var currencyNames = map[tts.Language]map[string]currency{
	tts.LanguageEnglish: {
		"USD": {one: "dollar", few: "dollars", many: "dollars", minorOne: "cent", minorFew: "cents", minorMany: "cents"},
		"EUR": {one: "euro", few: "euros", many: "euros", minorOne: "cent", minorFew: "cents", minorMany: "cents"},
		"GBP": {one: "pound", few: "pounds", many: "pounds", minorOne: "penny", minorFew: "pence", minorMany: "pence"},
		"JPY": {one: "yen", few: "yen", many: "yen"},
		"PLN": {one: "zloty", few: "zlotys", many: "zlotys", minorOne: "grosz", minorFew: "groszy", minorMany: "groszy"},
	},
	tts.LanguagePolish: {
		"USD": {one: "dolar", few: "dolary", many: "dolarów", minorOne: "cent", minorFew: "centy", minorMany: "centów"},
		"EUR": {one: "euro", few: "euro", many: "euro", minorOne: "cent", minorFew: "centy", minorMany: "centów"},
		"GBP": {one: "funt", few: "funty", many: "funtów", minorOne: "pens", minorFew: "pensy", minorMany: "pensów"},
		"JPY": {one: "jen", few: "jeny", many: "jenów"},
		"PLN": {one: "złoty", few: "złote", many: "złotych", minorOne: "grosz", minorFew: "grosze", minorMany: "groszy"},
	},
}

var currencySymbols = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"¥": "JPY",
}

var currencyCodes = map[string]string{
	"zł":  "PLN",
	"PLN": "PLN",
	"USD": "USD",
	"EUR": "EUR",
	"GBP": "GBP",
	"JPY": "JPY",
}

var englishOrdinals = []string{
	"", "first", "second", "third", "fourth", "fifth", "sixth", "seventh", "eighth", "ninth",
	"tenth", "eleventh", "twelfth", "thirteenth", "fourteenth", "fifteenth", "sixteenth",
	"seventeenth", "eighteenth", "nineteenth",
}

var englishTens = []string{"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety"}

var englishTensOrdinal = []string{
	"", "", "twentieth", "thirtieth", "fortieth", "fiftieth", "sixtieth", "seventieth", "eightieth", "ninetieth",
}

var polishOrdinals = []string{
	"", "pierwszy", "drugi", "trzeci", "czwarty", "piąty", "szósty", "siódmy", "ósmy", "dziewiąty",
	"dziesiąty", "jedenasty", "dwunasty", "trzynasty", "czternasty", "piętnasty", "szesnasty",
	"siedemnasty", "osiemnasty", "dziewiętnasty",
}

var polishTensOrdinal = []string{
	"", "", "dwudziesty", "trzydziesty", "czterdziesty", "pięćdziesiąty", "sześćdziesiąty",
	"siedemdziesiąty", "osiemdziesiąty", "dziewięćdziesiąty",
}

// englishFractions holds singular and plural denominators 2 to 10.
var englishFractions = map[int][2]string{
	2:  {"half", "halves"},
	3:  {"third", "thirds"},
	4:  {"quarter", "quarters"},
	5:  {"fifth", "fifths"},
	6:  {"sixth", "sixths"},
	7:  {"seventh", "sevenths"},
	8:  {"eighth", "eighths"},
	9:  {"ninth", "ninths"},
	10: {"tenth", "tenths"},
}

// polishFractions holds the one, few and many forms of denominators 2 to
// 10.
var polishFractions = map[int][3]string{
	2:  {"druga", "drugie", "drugich"},
	3:  {"trzecia", "trzecie", "trzecich"},
	4:  {"czwarta", "czwarte", "czwartych"},
	5:  {"piąta", "piąte", "piątych"},
	6:  {"szósta", "szóste", "szóstych"},
	7:  {"siódma", "siódme", "siódmych"},
	8:  {"ósma", "ósme", "ósmych"},
	9:  {"dziewiąta", "dziewiąte", "dziewiątych"},
	10: {"dziesiąta", "dziesiąte", "dziesiątych"},
}
