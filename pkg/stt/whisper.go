// Package stt wraps whisper.cpp for offline speech recognition.
package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"runtime"
	"strings"
	"sync"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

type Options struct {
	Language      string // "auto", "en", "sv", ...
	Translate     bool   // translate to English
	Threads       int    // <=0 means NumCPU
	InitialPrompt string // biases spelling, e.g. the wake word
	BeamSize      int    // 0 keeps greedy decoding
}

type Segment struct {
	Text     string
	StartSec float64
	EndSec   float64
}

type Result struct {
	Text     string
	Segments []Segment
	Language string
}

// Transcriber owns one loaded model. Calls are serialized; whisper contexts
// are heavy and the daemon only ever has one speaker.
type Transcriber struct {
	mu    sync.Mutex
	model whisper.Model
	opt   Options
}

func NewTranscriber(modelPath string, opt Options) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("empty model path")
	}
	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", modelPath, err)
	}
	return &Transcriber{model: m, opt: opt}, nil
}

func (t *Transcriber) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.model == nil {
		return nil
	}
	err := t.model.Close()
	t.model = nil
	return err
}

// Transcribe returns the cleaned text of 16 kHz mono PCM.
func (t *Transcriber) Transcribe(ctx context.Context, pcm16k []float32) (string, error) {
	res, err := t.TranscribePCM(ctx, pcm16k)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (t *Transcriber) TranscribePCM(ctx context.Context, pcm16k []float32) (Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.model == nil {
		return Result{}, errors.New("transcriber closed")
	}
	if len(pcm16k) == 0 {
		return Result{}, errors.New("no audio samples provided")
	}

	wctx, err := t.model.NewContext()
	if err != nil {
		return Result{}, fmt.Errorf("new context: %w", err)
	}

	lang := t.opt.Language
	if lang == "" {
		lang = "auto"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return Result{}, fmt.Errorf("set language %q: %w", lang, err)
	}
	wctx.SetTranslate(t.opt.Translate)

	threads := t.opt.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	wctx.SetThreads(uint(threads))

	if t.opt.InitialPrompt != "" {
		wctx.SetInitialPrompt(t.opt.InitialPrompt)
	}
	if t.opt.BeamSize > 0 {
		wctx.SetBeamSize(t.opt.BeamSize)
	}

	if err := wctx.Process(pcm16k, nil, nil, nil); err != nil {
		return Result{}, fmt.Errorf("process: %w", err)
	}

	var (
		segs  []Segment
		parts []string
	)
	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		s, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("next segment: %w", err)
		}

		segs = append(segs, Segment{
			Text:     s.Text,
			StartSec: s.Start.Seconds(),
			EndSec:   s.End.Seconds(),
		})
		if text := Clean(s.Text); text != "" {
			parts = append(parts, text)
		}
	}

	detected := wctx.DetectedLanguage()
	if detected == "" {
		detected = wctx.Language()
	}

	return Result{
		Text:     strings.Join(parts, " "),
		Segments: segs,
		Language: detected,
	}, nil
}

var nonSpeech = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)|\*[^*]*\*`)

// Clean drops whisper's non-speech annotations such as [BLANK_AUDIO] or
// (music) and collapses whitespace.
func Clean(text string) string {
	text = nonSpeech.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}
