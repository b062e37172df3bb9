package speech

import "testing"

func TestDetectLanguageMetadataWins(t *testing.T) {
	tests := []struct {
		metadata string
		want     string
	}{
		{"en", "en"},
		{"de", "de"},
		{"es-MX", "es"},
		{"fr-FR", "fr"},
		{"German", "de"},
	}
	for _, tc := range tests {
		got := DetectLanguage(tc.metadata, "der die das und ist nicht")
		if got != tc.want {
			t.Errorf("DetectLanguage(%q, ...) = %q, want %q", tc.metadata, got, tc.want)
		}
	}
}

func TestDetectLanguageFromFirstLine(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"Hallo, das ist eine Einführung und wir beginnen jetzt", "de"},
		{"Hola, el sistema es una cache que guarda los resultados", "es"},
		{"Bonjour, le cache est une structure avec les résultats", "fr"},
		{"Hello and welcome to the show about caching", "en"},
	}
	for _, tc := range tests {
		if got := DetectLanguage("", tc.line); got != tc.want {
			t.Errorf("DetectLanguage(\"\", %q) = %q, want %q", tc.line, got, tc.want)
		}
	}
}

func TestDetectLanguageDefaultsToEnglish(t *testing.T) {
	if got := DetectLanguage("", ""); got != "en" {
		t.Fatalf("empty input should default to en, got %q", got)
	}
	if got := DetectLanguage("xx-unknown", "short"); got != "en" {
		t.Fatalf("unknown metadata should default to en, got %q", got)
	}
	// A single incidental stopword is not enough signal.
	if got := DetectLanguage("", "la cafeteria serves coffee daily here always"); got != "en" {
		t.Fatalf("one stopword hit should not flip the language, got %q", got)
	}
}
