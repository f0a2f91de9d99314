// Package voice holds the personality catalog and maps personalities onto
// the voices a host synthesizer reports.
package voice

import "github.com/keczkasz/studywave/tts"

// DefaultPersonalityID is used when nothing else is configured.
const DefaultPersonalityID = "en-emma"

// Catalog is the fixed set of personalities: for each language a calm
// narrator and a lively reader of each gender.
var Catalog = []tts.Personality{
	{
		ID:          "en-emma",
		DisplayName: "Emma",
		Language:    tts.LanguageEnglish,
		Gender:      tts.GenderFemale,
		Style:       tts.StyleCalm,
		BasePitch:   1.0,
		BaseRate:    0.95,
		Description: "Calm narrator with an even pace, suited to long reading sessions",
	},
	{
		ID:          "en-olivia",
		DisplayName: "Olivia",
		Language:    tts.LanguageEnglish,
		Gender:      tts.GenderFemale,
		Style:       tts.StyleLively,
		BasePitch:   1.1,
		BaseRate:    1.1,
		Description: "Bright and lively, good for quick reviews",
	},
	{
		ID:          "en-james",
		DisplayName: "James",
		Language:    tts.LanguageEnglish,
		Gender:      tts.GenderMale,
		Style:       tts.StyleCalm,
		BasePitch:   0.9,
		BaseRate:    0.95,
		Description: "Deep, steady lecturer voice",
	},
	{
		ID:          "en-oliver",
		DisplayName: "Oliver",
		Language:    tts.LanguageEnglish,
		Gender:      tts.GenderMale,
		Style:       tts.StyleLively,
		BasePitch:   1.0,
		BaseRate:    1.1,
		Description: "Energetic tutor voice",
	},
	{
		ID:          "pl-zofia",
		DisplayName: "Zofia",
		Language:    tts.LanguagePolish,
		Gender:      tts.GenderFemale,
		Style:       tts.StyleCalm,
		BasePitch:   1.0,
		BaseRate:    0.95,
		Description: "Spokojna lektorka o równym tempie",
	},
	{
		ID:          "pl-maja",
		DisplayName: "Maja",
		Language:    tts.LanguagePolish,
		Gender:      tts.GenderFemale,
		Style:       tts.StyleLively,
		BasePitch:   1.1,
		BaseRate:    1.1,
		Description: "Żywa i energiczna, do szybkich powtórek",
	},
	{
		ID:          "pl-jan",
		DisplayName: "Jan",
		Language:    tts.LanguagePolish,
		Gender:      tts.GenderMale,
		Style:       tts.StyleCalm,
		BasePitch:   0.9,
		BaseRate:    0.95,
		Description: "Niski, spokojny głos wykładowcy",
	},
	{
		ID:          "pl-piotr",
		DisplayName: "Piotr",
		Language:    tts.LanguagePolish,
		Gender:      tts.GenderMale,
		Style:       tts.StyleLively,
		BasePitch:   1.0,
		BaseRate:    1.1,
		Description: "Energiczny głos korepetytora",
	},
}

// Name tokens used to guess the gender of host voices that do not report
// one.
var (
	femaleTokens = map[tts.Language][]string{
		tts.LanguageEnglish: {
			"female", "woman", "zira", "samantha", "victoria", "karen", "moira",
			"tessa", "fiona", "susan", "hazel", "aria", "jenny", "emma", "olivia",
			"libby", "sonia", "serena", "allison", "ava", "kate", "salli", "joanna",
			"amy", "lessac", "kristin", "ljspeech",
		},
		tts.LanguagePolish: {
			"female", "zofia", "zosia", "maja", "agnieszka", "ewa", "paulina",
			"marta", "kasia", "katarzyna", "ola", "aleksandra", "anna", "gosia",
		},
	}
	maleTokens = map[tts.Language][]string{
		tts.LanguageEnglish: {
			"male", "david", "mark", "daniel", "alex", "fred", "george", "guy",
			"ryan", "thomas", "james", "oliver", "arthur", "brian", "matthew",
			"joey", "justin", "aaron", "joe", "kusal", "norman",
		},
		tts.LanguagePolish: {
			"male", "jan", "piotr", "marek", "jacek", "krzysztof", "adam",
			"tomasz", "pawel", "paweł", "michal", "michał", "darkman",
		},
	}
	qualityTokens = []string{
		"google", "microsoft", "natural", "neural", "premium", "enhanced",
		"wavenet", "siri",
	}
)
