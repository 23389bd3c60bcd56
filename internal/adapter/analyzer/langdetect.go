package analyzer

import (
	"strings"
	"unicode"

	"healthsense/internal/domain"
)

// LanguageDetector classifies a question among the seven supported language
// tags. Classification is unicode-script voting; the two script-sharing
// pairs (Hindi/Marathi on Devanagari, English/Spanish on Latin) are split by
// function-word lookup.
type LanguageDetector struct{}

func NewLanguageDetector() *LanguageDetector {
	return &LanguageDetector{}
}

// Detect returns the language tag for the given text. Empty or
// unclassifiable input falls back to English.
func (d *LanguageDetector) Detect(text string) string {
	var devanagari, bengali, tamil, telugu, latin int

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Devanagari, r):
			devanagari++
		case unicode.Is(unicode.Bengali, r):
			bengali++
		case unicode.Is(unicode.Tamil, r):
			tamil++
		case unicode.Is(unicode.Telugu, r):
			telugu++
		case unicode.IsLetter(r) && r < 0x250:
			latin++
		}
	}

	best, count := domain.LangEnglish, latin
	if devanagari > count {
		best, count = domain.LangHindi, devanagari
	}
	if bengali > count {
		best, count = domain.LangBengali, bengali
	}
	if tamil > count {
		best, count = domain.LangTamil, tamil
	}
	if telugu > count {
		best, count = domain.LangTelugu, telugu
	}
	if count == 0 {
		return domain.LangEnglish
	}

	switch best {
	case domain.LangHindi:
		return disambiguate(text, marathiMarkers, domain.LangMarathi, domain.LangHindi)
	case domain.LangEnglish:
		return disambiguate(text, spanishMarkers, domain.LangSpanish, domain.LangEnglish)
	}
	return best
}

// disambiguate returns marked if enough marker words are present, otherwise
// the default tag for the script.
func disambiguate(text string, markers map[string]struct{}, marked, fallback string) string {
	hits := 0
	for _, w := range splitWords(text) {
		if _, ok := markers[strings.ToLower(w)]; ok {
			hits++
		}
	}
	if hits > 0 {
		return marked
	}
	return fallback
}

// marathiMarkers are Marathi function words and verb endings that do not
// occur in standard Hindi.
var marathiMarkers = wordSet(
	"आहे", "आहेत", "नाही", "काय", "कसे", "कशी", "मला", "तुम्ही",
	"आणि", "किंवा", "मध्ये", "पाहिजे", "करावे", "होते", "झाले", "आरोग्य",
)

// spanishMarkers are common Spanish function words that are not English.
var spanishMarkers = wordSet(
	"el", "la", "los", "las", "una", "qué", "cómo", "cuáles",
	"es", "son", "para", "por", "del", "síntomas", "prevención",
	"de", "y", "cuál", "debo", "puedo", "salud", "enfermedad",
)

func wordSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[strings.ToLower(w)] = struct{}{}
	}
	return m
}

// Label returns a human-readable name for a language tag.
func Label(lang string) string {
	switch lang {
	case domain.LangEnglish:
		return "English"
	case domain.LangHindi:
		return "Hindi"
	case domain.LangMarathi:
		return "Marathi"
	case domain.LangBengali:
		return "Bengali"
	case domain.LangTamil:
		return "Tamil"
	case domain.LangTelugu:
		return "Telugu"
	case domain.LangSpanish:
		return "Spanish"
	}
	return "English"
}

// Supported reports whether lang is one of the seven supported tags.
func Supported(lang string) bool {
	for _, l := range domain.SupportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}
