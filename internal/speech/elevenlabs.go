package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vibecast/internal/services"
)

// Service synthesizes one line of text with one voice.
type Service interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// ClientOptions configures the voice service client.
type ClientOptions struct {
	APIKey       string
	BaseURL      string
	Model        string
	OutputFormat string
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// Client talks to the ElevenLabs text-to-speech API.
type Client struct {
	apiKey       string
	baseURL      string
	model        string
	outputFormat string
	http         *http.Client
}

// NewClient builds a voice service client, applying defaults for zero values.
func NewClient(opts ClientOptions) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.elevenlabs.io"
	}
	model := opts.Model
	if model == "" {
		model = "eleven_multilingual_v2"
	}
	format := opts.OutputFormat
	if format == "" {
		format = "mp3_44100_128"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 2 * time.Minute
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		apiKey:       opts.APIKey,
		baseURL:      base,
		model:        model,
		outputFormat: format,
		http:         httpClient,
	}
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// Synthesize sends one line to the voice service and returns the audio bytes.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "speech", "synthesize", "no api key configured", nil)
	}

	payload, err := json.Marshal(synthesisRequest{
		Text:    text,
		ModelID: c.model,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Style:           0,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "speech", "synthesize", "encode request", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s",
		c.baseURL, url.PathEscape(voiceID), url.QueryEscape(c.outputFormat))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "speech", "synthesize", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "speech", "synthesize", "voice service request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		marker := services.ErrUnavailable
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			marker = services.ErrValidation
		}
		return nil, services.Wrap(marker, "speech", "synthesize",
			fmt.Sprintf("voice service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "speech", "synthesize", "read audio body", err)
	}
	if len(audio) == 0 {
		return nil, services.Wrap(services.ErrUnavailable, "speech", "synthesize", "voice service returned empty audio", nil)
	}
	return audio, nil
}
