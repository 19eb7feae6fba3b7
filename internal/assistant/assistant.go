// Package assistant runs the voice session around the dispatch loop:
// wake-word listening, push-to-talk, manual commands and speaking replies.
package assistant

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"enigma/internal/agent"
	"enigma/internal/tts"
)

const Greeting = "Hello, are you there?"

var (
	ErrNoAudio      = errors.New("audio input is disabled")
	ErrNothingHeard = errors.New("nothing was heard")
	ErrEmptyCommand = errors.New("empty command")
)

type Dispatcher interface {
	Handle(ctx context.Context, req agent.Request) agent.Result
	Busy() bool
}

type Recorder interface {
	Record(ctx context.Context) ([]float32, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, pcm16k []float32) (string, error)
}

type Notifier interface {
	Listening(ctx context.Context)
}

type Ducker interface {
	Duck(ctx context.Context) error
	Restore(ctx context.Context) error
}

// Decoder turns an audio file into 16 kHz mono samples.
type Decoder func(ctx context.Context, path string) ([]float32, error)

type Deps struct {
	Agent   Dispatcher
	Speaker tts.Speaker

	// Audio input; both nil in text-only mode.
	Recorder    Recorder
	Transcriber Transcriber
	Decode      Decoder

	Notifier Notifier
	Ducker   Ducker

	WakeWord     string
	Backoff      time.Duration
	SpeakTimeout time.Duration
}

type Assistant struct {
	agent    Dispatcher
	speaker  tts.Speaker
	rec      Recorder
	stt      Transcriber
	decode   Decoder
	notifier Notifier
	ducker   Ducker

	wake         string
	backoff      time.Duration
	speakTimeout time.Duration

	paused   atomic.Bool
	speaking atomic.Bool
	speakMu  sync.Mutex
	speakWg  sync.WaitGroup
}

func New(d Deps) (*Assistant, error) {
	if d.Agent == nil {
		return nil, errors.New("assistant: agent is required")
	}
	if d.Speaker == nil {
		d.Speaker = tts.Silent{}
	}
	if (d.Recorder == nil) != (d.Transcriber == nil) {
		return nil, errors.New("assistant: recorder and transcriber go together")
	}
	if d.WakeWord == "" {
		return nil, errors.New("assistant: wake word is required")
	}
	if d.Backoff <= 0 {
		d.Backoff = time.Second
	}
	if d.SpeakTimeout <= 0 {
		d.SpeakTimeout = 2 * time.Minute
	}

	return &Assistant{
		agent:        d.Agent,
		speaker:      d.Speaker,
		rec:          d.Recorder,
		stt:          d.Transcriber,
		decode:       d.Decode,
		notifier:     d.Notifier,
		ducker:       d.Ducker,
		wake:         strings.ToLower(strings.TrimSpace(d.WakeWord)),
		backoff:      d.Backoff,
		speakTimeout: d.SpeakTimeout,
	}, nil
}

func (a *Assistant) Pause() {
	if !a.paused.Swap(true) {
		log.Info("Listening paused")
	}
}

func (a *Assistant) Resume() {
	if a.paused.Swap(false) {
		log.Info("Listening resumed")
	}
}

func (a *Assistant) Paused() bool {
	return a.paused.Load()
}

// Busy is true while a command is dispatched or a reply is spoken.
func (a *Assistant) Busy() bool {
	return a.agent.Busy() || a.speaking.Load()
}

func (a *Assistant) AudioEnabled() bool {
	return a.rec != nil
}

// Listen is the wake-word loop. It returns when ctx is done.
func (a *Assistant) Listen(ctx context.Context) error {
	if a.rec == nil {
		return ErrNoAudio
	}
	log.Info("Waiting for wake word", "word", a.wake)

	for ctx.Err() == nil {
		if a.Paused() || a.Busy() {
			wait(ctx, 200*time.Millisecond)
			continue
		}

		text, err := a.hear(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if !errors.Is(err, ErrNothingHeard) {
				log.Error("Listening failed", "err", err)
				wait(ctx, a.backoff)
			}
			continue
		}

		cmd, ok := a.wakeCommand(text)
		if !ok {
			log.Debug("Ignored, no wake word", "text", text)
			continue
		}
		log.Info("Heard", "text", text)

		// A trigger may have slipped in between the checks above.
		if a.agent.Busy() {
			log.Debug("Dropped, dispatch in progress", "text", text)
			continue
		}
		a.dispatch(ctx, cmd, "voice")
	}
	return nil
}

// wakeCommand reports whether text addresses the assistant and what to
// dispatch. The whole utterance is kept as context for the model.
func (a *Assistant) wakeCommand(text string) (string, bool) {
	lower := strings.ToLower(text)
	if !strings.Contains(lower, a.wake) {
		return "", false
	}

	rest := strings.ReplaceAll(lower, a.wake, "")
	rest = strings.TrimFunc(rest, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	if rest == "" {
		return Greeting, true
	}
	return text, true
}

// Trigger is push-to-talk: record one utterance and dispatch it without
// the wake word.
func (a *Assistant) Trigger(ctx context.Context) (agent.Result, error) {
	if a.rec == nil {
		return agent.Result{}, ErrNoAudio
	}
	if a.notifier != nil {
		a.notifier.Listening(ctx)
	}

	text, err := a.hear(ctx)
	if err != nil {
		return agent.Result{}, err
	}
	log.Info("Heard", "text", text)
	return a.dispatch(ctx, text, "trigger"), nil
}

// Submit dispatches a typed command.
func (a *Assistant) Submit(ctx context.Context, text, source string) (agent.Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return agent.Result{}, ErrEmptyCommand
	}
	return a.dispatch(ctx, text, source), nil
}

// TranscribeFile dispatches the speech found in an audio file.
func (a *Assistant) TranscribeFile(ctx context.Context, path string) (agent.Result, error) {
	if a.stt == nil || a.decode == nil {
		return agent.Result{}, ErrNoAudio
	}

	pcm, err := a.decode(ctx, path)
	if err != nil {
		return agent.Result{}, fmt.Errorf("decode %s: %w", path, err)
	}
	text, err := a.transcribe(ctx, pcm)
	if err != nil {
		return agent.Result{}, err
	}
	log.Info("Transcribed file", "path", path, "text", text)
	return a.dispatch(ctx, text, "audio"), nil
}

func (a *Assistant) hear(ctx context.Context) (string, error) {
	pcm, err := a.rec.Record(ctx)
	if err != nil {
		return "", fmt.Errorf("record: %w", err)
	}
	return a.transcribe(ctx, pcm)
}

func (a *Assistant) transcribe(ctx context.Context, pcm []float32) (string, error) {
	if len(pcm) == 0 {
		return "", ErrNothingHeard
	}
	text, err := a.stt.Transcribe(ctx, pcm)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNothingHeard
	}
	return text, nil
}

func (a *Assistant) dispatch(ctx context.Context, text, source string) agent.Result {
	res := a.agent.Handle(ctx, agent.Request{Text: text, Source: source})
	log.Info("Reply", "source", source, "output", res.Output)
	a.say(res.Output)
	return res
}

// say speaks text in the background. Replies are spoken one at a time and
// other audio is ducked meanwhile.
func (a *Assistant) say(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}

	a.speakWg.Add(1)
	go func() {
		defer a.speakWg.Done()

		a.speakMu.Lock()
		defer a.speakMu.Unlock()
		a.speaking.Store(true)
		defer a.speaking.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), a.speakTimeout)
		defer cancel()

		if a.ducker != nil {
			if err := a.ducker.Duck(ctx); err != nil {
				log.Debug("Ducking failed", "err", err)
			}
			defer func() {
				if err := a.ducker.Restore(context.Background()); err != nil {
					log.Warn("Restoring volume failed", "err", err)
				}
			}()
		}

		if err := a.speaker.Speak(ctx, text); err != nil {
			log.Error("Failed to voice out", "err", err)
		}
	}()
}

// Wait blocks until every queued reply has been spoken.
func (a *Assistant) Wait() {
	a.speakWg.Wait()
}

func wait(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
