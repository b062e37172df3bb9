package speech

import (
	"strings"

	"golang.org/x/text/language"
)

// Supported synthesis languages. Anything else falls back to English.
var supported = []language.Tag{
	language.English,
	language.German,
	language.Spanish,
	language.French,
}

var matcher = language.NewMatcher(supported)

// Stopwords that separate the supported non-English languages from English
// in a single spoken line. English needs no list: it is the fallback.
var stopwords = map[string][]string{
	"de": {"der", "die", "das", "und", "ist", "nicht", "ein", "eine", "wir", "ich", "du", "mit", "für", "aber"},
	"es": {"el", "la", "los", "las", "es", "un", "una", "que", "y", "no", "con", "para", "pero", "como"},
	"fr": {"le", "la", "les", "est", "un", "une", "et", "que", "ne", "pas", "avec", "pour", "mais", "nous"},
}

// DetectLanguage picks the synthesis language. An explicit metadata value
// wins; otherwise the first dialogue line is scored against per-language
// stopword lists; English is the default.
func DetectLanguage(metadata, firstLine string) string {
	if tag := parseTag(metadata); tag != "" {
		return tag
	}
	if detected := detectFromText(firstLine); detected != "" {
		return detected
	}
	return "en"
}

func parseTag(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	tag, err := language.Parse(value)
	if err != nil {
		return ""
	}
	_, index, confidence := matcher.Match(tag)
	if confidence == language.No {
		return ""
	}
	base, _ := supported[index].Base()
	return base.String()
}

func detectFromText(text string) string {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return ""
	}
	present := make(map[string]struct{}, len(words))
	for _, word := range words {
		present[strings.Trim(word, ".,;:!?¿¡\"'()")] = struct{}{}
	}

	best, bestHits := "", 0
	for lang, list := range stopwords {
		hits := 0
		for _, stopword := range list {
			if _, ok := present[stopword]; ok {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = lang, hits
		}
	}
	// One incidental hit is noise; two distinct stopwords is a signal.
	if bestHits >= 2 {
		return best
	}
	return ""
}
