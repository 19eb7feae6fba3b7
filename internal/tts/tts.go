// Package tts turns reply text into sound.
package tts

import (
	"context"
	"fmt"
	"net/http"
)

type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Silent discards everything; used for text-only setups and tests.
type Silent struct{}

func (Silent) Speak(context.Context, string) error { return nil }

type Options struct {
	Backend string // espeak, elevenlabs, none
	Voice   string

	ElevenLabsKey   string
	ElevenLabsURL   string
	ElevenLabsVoice string
	HTTP            *http.Client
}

func New(opt Options) (Speaker, error) {
	switch opt.Backend {
	case "", "espeak":
		return NewEspeak(opt.Voice, 0), nil
	case "elevenlabs":
		return NewElevenLabs(opt.ElevenLabsKey, opt.ElevenLabsURL, opt.ElevenLabsVoice, opt.HTTP), nil
	case "none":
		return Silent{}, nil
	}
	return nil, fmt.Errorf("unknown tts backend %q", opt.Backend)
}
