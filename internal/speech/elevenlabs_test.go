package speech

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vibecast/internal/services"
)

func TestClientSynthesize(t *testing.T) {
	var gotPath, gotKey, gotFormat string
	var gotBody synthesisRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		gotFormat = r.URL.Query().Get("output_format")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Write([]byte("mp3 bytes"))
	}))
	defer server.Close()

	client := NewClient(ClientOptions{
		APIKey:  "secret",
		BaseURL: server.URL,
	})
	audio, err := client.Synthesize(context.Background(), "hello there", "voice123456789012345")
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if string(audio) != "mp3 bytes" {
		t.Fatalf("unexpected audio %q", audio)
	}
	if gotPath != "/v1/text-to-speech/voice123456789012345" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotKey != "secret" {
		t.Fatalf("unexpected api key header %q", gotKey)
	}
	if gotFormat != "mp3_44100_128" {
		t.Fatalf("unexpected output format %q", gotFormat)
	}
	if gotBody.ModelID != "eleven_multilingual_v2" {
		t.Fatalf("unexpected model %q", gotBody.ModelID)
	}
	vs := gotBody.VoiceSettings
	if vs.Stability != 0.5 || vs.SimilarityBoost != 0.75 || vs.Style != 0 || !vs.UseSpeakerBoost {
		t.Fatalf("unexpected voice settings %+v", vs)
	}
}

func TestClientSynthesizeClassifiesHTTPErrors(t *testing.T) {
	tests := []struct {
		status int
		marker error
	}{
		{http.StatusUnauthorized, services.ErrValidation},
		{http.StatusTooManyRequests, services.ErrValidation},
		{http.StatusInternalServerError, services.ErrUnavailable},
	}
	for _, tc := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tc.status)
		}))
		client := NewClient(ClientOptions{APIKey: "k", BaseURL: server.URL})
		_, err := client.Synthesize(context.Background(), "text", "voice123456789012345")
		server.Close()
		if !errors.Is(err, tc.marker) {
			t.Errorf("status %d: expected marker %v, got %v", tc.status, tc.marker, err)
		}
		if err == nil || !strings.Contains(err.Error(), "nope") {
			t.Errorf("status %d: error should carry the response body, got %v", tc.status, err)
		}
	}
}

func TestClientSynthesizeRequiresAPIKey(t *testing.T) {
	client := NewClient(ClientOptions{})
	_, err := client.Synthesize(context.Background(), "text", "voice123456789012345")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestClientSynthesizeRejectsEmptyAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()
	client := NewClient(ClientOptions{APIKey: "k", BaseURL: server.URL})
	if _, err := client.Synthesize(context.Background(), "text", "voice123456789012345"); err == nil {
		t.Fatal("expected error for empty audio body")
	}
}
