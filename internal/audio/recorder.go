package audio

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	SampleRate = 16000
	frameSize  = 320 // 20ms
)

// VAD holds the voice activity thresholds used to cut an utterance.
type VAD struct {
	Threshold  float64       // frame RMS above this counts as speech
	Silence    time.Duration // trailing silence that ends an utterance
	MaxLength  time.Duration // hard cap on one utterance
	WaitSpeech time.Duration // give up when nobody starts talking
}

func DefaultVAD() VAD {
	return VAD{
		Threshold:  0.015,
		Silence:    600 * time.Millisecond,
		MaxLength:  10 * time.Second,
		WaitSpeech: 8 * time.Second,
	}
}

func frames(d time.Duration) int {
	return int(d / (time.Second * frameSize / SampleRate))
}

// segmenter applies a VAD to a stream of frames. It is separate from the
// device so the cut logic can run on synthetic audio.
type segmenter struct {
	vad      VAD
	out      []float32
	speaking bool
	quiet    int
	seen     int
}

// feed consumes one frame and reports whether the utterance is complete.
func (s *segmenter) feed(frame []float32) bool {
	s.seen++

	if frameRMS(frame) > s.vad.Threshold {
		s.speaking = true
		s.quiet = 0
		s.out = append(s.out, frame...)
	} else if s.speaking {
		s.quiet++
		if s.quiet >= frames(s.vad.Silence) {
			return true
		}
		s.out = append(s.out, frame...)
	} else if s.vad.WaitSpeech > 0 && s.seen >= frames(s.vad.WaitSpeech) {
		return true
	}

	return s.speaking && len(s.out) >= frames(s.vad.MaxLength)*frameSize
}

// Recorder captures utterances from the default input device.
type Recorder struct {
	mu  sync.Mutex
	vad VAD
}

func NewRecorder(vad VAD) *Recorder {
	return &Recorder{vad: vad}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() error {
	return portaudio.Terminate()
}

// Record returns one utterance as 16 kHz mono PCM. It returns no samples when
// nobody spoke before the VAD gave up waiting.
func (r *Recorder) Record(ctx context.Context) ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	buf := make([]float32, frameSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	seg := &segmenter{vad: r.vad, out: make([]float32, 0, SampleRate*3)}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stream.Read(); err != nil {
			return nil, err
		}
		if seg.feed(buf) {
			break
		}
	}

	return seg.out, nil
}

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
