package tts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestElevenLabsSpeak(t *testing.T) {
	var gotKey, gotPath string
	var gotBody synthesizeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("xi-api-key")
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3fake"))
	}))
	defer srv.Close()

	e := NewElevenLabs("key", srv.URL+"/", "voice 1", srv.Client())
	var played []byte
	e.play = func(_ context.Context, r io.ReadCloser) error {
		played, _ = io.ReadAll(r)
		return nil
	}

	if err := e.Speak(context.Background(), "  Starting spotify. "); err != nil {
		t.Fatal(err)
	}

	if gotKey != "key" || gotPath != "/v1/text-to-speech/voice 1" {
		t.Errorf("key %q path %q", gotKey, gotPath)
	}
	if gotBody.Text != "Starting spotify." || gotBody.ModelID == "" {
		t.Errorf("body = %+v", gotBody)
	}
	if string(played) != "ID3fake" {
		t.Errorf("played %q", played)
	}
}

func TestElevenLabsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	e := NewElevenLabs("bad", srv.URL, "v", srv.Client())
	e.play = func(context.Context, io.ReadCloser) error {
		t.Error("nothing should be played")
		return nil
	}

	err := e.Speak(context.Background(), "hello")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Errorf("err = %v", err)
	}
}

func TestElevenLabsSkipsEmptyText(t *testing.T) {
	e := NewElevenLabs("", "", "", nil)
	if err := e.Speak(context.Background(), "   "); err != nil {
		t.Errorf("Speak = %v", err)
	}
}

func TestNewBackends(t *testing.T) {
	if s, err := New(Options{Backend: "none"}); err != nil || s != (Silent{}) {
		t.Errorf("none = %v, %v", s, err)
	}
	if _, err := New(Options{Backend: "festival"}); err == nil {
		t.Error("unknown backend accepted")
	}
}
