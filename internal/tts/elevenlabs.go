package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"enigma/internal/audio"
)

const (
	DefaultElevenLabsURL = "https://api.elevenlabs.io"
	elevenLabsModel      = "eleven_multilingual_v2"
)

// ElevenLabs synthesizes speech through the ElevenLabs HTTP API and plays
// the returned MP3.
type ElevenLabs struct {
	APIKey  string
	BaseURL string
	VoiceID string
	HTTP    *http.Client

	play func(ctx context.Context, r io.ReadCloser) error
}

func NewElevenLabs(apiKey, baseURL, voiceID string, client *http.Client) *ElevenLabs {
	if baseURL == "" {
		baseURL = DefaultElevenLabsURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &ElevenLabs{
		APIKey:  strings.TrimSpace(apiKey),
		BaseURL: strings.TrimRight(baseURL, "/"),
		VoiceID: strings.TrimSpace(voiceID),
		HTTP:    client,
		play:    audio.PlayMP3,
	}
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("elevenlabs: status %d: %s", e.Status, e.Message)
}

type synthesizeRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Synthesize returns MP3 bytes for text.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if e.APIKey == "" {
		return nil, fmt.Errorf("elevenlabs: missing API key")
	}
	if e.VoiceID == "" {
		return nil, fmt.Errorf("elevenlabs: voice id is required")
	}

	payload, err := json.Marshal(synthesizeRequest{Text: text, ModelID: elevenLabsModel})
	if err != nil {
		return nil, err
	}

	u := e.BaseURL + "/v1/text-to-speech/" + url.PathEscape(e.VoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", e.APIKey)
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}
	return body, nil
}

func (e *ElevenLabs) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	mp3, err := e.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	return e.play(ctx, io.NopCloser(bytes.NewReader(mp3)))
}
