package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// The speaker is process-global, so it is opened once at a fixed rate and
// every stream is resampled to it.
const playbackRate = beep.SampleRate(44100)

var (
	speakerOnce sync.Once
	speakerErr  error
	playMu      sync.Mutex
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(playbackRate, playbackRate.N(time.Second/10))
	})
	return speakerErr
}

// PlayMP3 decodes r and blocks until playback ends or ctx is done.
// Concurrent calls queue up.
func PlayMP3(ctx context.Context, r io.ReadCloser) error {
	streamer, format, err := mp3.Decode(r)
	if err != nil {
		r.Close()
		return fmt.Errorf("decode mp3: %w", err)
	}
	defer streamer.Close()

	if err := initSpeaker(); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	playMu.Lock()
	defer playMu.Unlock()

	var s beep.Streamer = streamer
	if format.SampleRate != playbackRate {
		s = beep.Resample(4, format.SampleRate, playbackRate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}
