package speech

import (
	"strings"

	"vibecast/internal/podcast"
)

// VoiceMap assigns one voice ID per canonical speaker slot.
type VoiceMap map[string]string

// Multilingual voices: the synthesis model handles the language, so the same
// pair serves every supported language.
var defaultVoices = map[string]VoiceMap{
	"en": {podcast.Speaker1: "uYXf8XasLslADfZ2MB4u", podcast.Speaker2: "66PBrqxlmGTw9isOc21D"},
	"de": {podcast.Speaker1: "uYXf8XasLslADfZ2MB4u", podcast.Speaker2: "66PBrqxlmGTw9isOc21D"},
	"es": {podcast.Speaker1: "uYXf8XasLslADfZ2MB4u", podcast.Speaker2: "66PBrqxlmGTw9isOc21D"},
	"fr": {podcast.Speaker1: "uYXf8XasLslADfZ2MB4u", podcast.Speaker2: "66PBrqxlmGTw9isOc21D"},
}

// VoicesFor resolves the voice pair for a language, applying per-slot
// overrides. An override is taken verbatim when it looks like a real voice ID.
func VoicesFor(lang, speaker1Override, speaker2Override string) VoiceMap {
	base, ok := defaultVoices[strings.ToLower(strings.TrimSpace(lang))]
	if !ok {
		base = defaultVoices["en"]
	}
	voices := VoiceMap{
		podcast.Speaker1: base[podcast.Speaker1],
		podcast.Speaker2: base[podcast.Speaker2],
	}
	if isVoiceID(speaker1Override) {
		voices[podcast.Speaker1] = strings.TrimSpace(speaker1Override)
	}
	if isVoiceID(speaker2Override) {
		voices[podcast.Speaker2] = strings.TrimSpace(speaker2Override)
	}
	return voices
}

// Service voice IDs are opaque 20-character strings; anything longer than ten
// characters is taken at face value rather than second-guessed.
func isVoiceID(value string) bool {
	return len(strings.TrimSpace(value)) > 10
}
