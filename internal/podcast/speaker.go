package podcast

import "strings"

// Canonical speaker slots. Every document speaker tag maps onto one of these
// two so that voice assignment stays a two-voice problem.
const (
	Speaker1 = "speaker_1"
	Speaker2 = "speaker_2"
)

var speakerAliases = map[string]string{
	"speaker_1": Speaker1,
	"lisa":      Speaker1,
	"emma":      Speaker1,
	"student":   Speaker1,
	"learner":   Speaker1,
	"speaker_2": Speaker2,
	"alex":      Speaker2,
	"teacher":   Speaker2,
	"expert":    Speaker2,
	"senior":    Speaker2,
}

// NormalizeSpeaker maps a free-form speaker tag onto a canonical slot.
// Unknown tags alternate by dialogue index so unmapped scripts still get
// two voices.
func NormalizeSpeaker(tag string, index int) string {
	key := strings.ToLower(strings.TrimSpace(tag))
	if slot, ok := speakerAliases[key]; ok {
		return slot
	}
	if index%2 == 0 {
		return Speaker1
	}
	return Speaker2
}
