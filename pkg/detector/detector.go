// Package detector guesses the language of article text.
package detector

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

// minDetectRunes is the shortest text worth running the detector on.
const minDetectRunes = 20

// supported is kept small: building a detector over every language loads
// all models into memory.
var supported = []lingua.Language{
	lingua.English,
	lingua.Korean,
	lingua.Japanese,
	lingua.Chinese,
	lingua.German,
	lingua.French,
	lingua.Spanish,
}

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

func languageDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(supported...).
			WithLowAccuracyMode().
			Build()
	})
	return detector
}

// DetectLanguage returns the ISO-639-1 code (lowercase) of text, or "" when
// the text is too short or no language is reliably detected.
func DetectLanguage(text string) string {
	if len([]rune(strings.TrimSpace(text))) < minDetectRunes {
		return ""
	}

	language, ok := languageDetector().DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(language.IsoCode639_1().String())
}

// IsEnglish reports whether code names English.
func IsEnglish(code string) bool {
	return code == "en"
}
