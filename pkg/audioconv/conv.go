// Package audioconv turns audio files into the 16 kHz mono float PCM whisper
// expects.
package audioconv

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

const TargetRate = 16000

var (
	ErrUnsupported = errors.New("unsupported audio format (wav, mp3, ogg vorbis/opus)")
	ErrEmpty       = errors.New("no audio samples")
)

type format int

const (
	formatUnknown format = iota
	formatWAV
	formatMP3
	formatOgg
)

// Clip is decoded interleaved PCM scaled to [-1, 1].
type Clip struct {
	Samples  []float32
	Rate     int
	Channels int
}

// Mono16k downmixes and resamples the clip for transcription.
func (c Clip) Mono16k() []float32 {
	return resample(downmix(c.Samples, c.Channels), c.Rate, TargetRate)
}

type Options struct {
	// MaxDuration cuts longer recordings; zero keeps everything.
	MaxDuration time.Duration
}

func ConvertFile(ctx context.Context, path string, opt Options) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pcm, err := Convert(ctx, f, opt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pcm, nil
}

// Convert detects the container from its magic bytes, so file names and
// extensions do not matter.
func Convert(ctx context.Context, r io.ReadSeeker, opt Options) ([]float32, error) {
	kind, err := sniff(r)
	if err != nil {
		return nil, err
	}

	var clip Clip
	switch kind {
	case formatWAV:
		clip, err = decodeWAV(r)
	case formatMP3:
		clip, err = decodeMP3(r)
	case formatOgg:
		clip, err = decodeOgg(r)
	default:
		return nil, ErrUnsupported
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := clip.Mono16k()
	if opt.MaxDuration > 0 {
		if limit := int(opt.MaxDuration.Seconds() * TargetRate); len(out) > limit {
			out = out[:limit]
		}
	}
	if len(out) == 0 {
		return nil, ErrEmpty
	}
	return out, nil
}

func sniff(r io.ReadSeeker) (format, error) {
	head := make([]byte, 12)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		if errors.Is(err, io.EOF) {
			return formatUnknown, ErrEmpty
		}
		return formatUnknown, err
	}
	head = head[:n]
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return formatUnknown, err
	}

	switch {
	case bytes.HasPrefix(head, []byte("RIFF")) && len(head) >= 12 && string(head[8:12]) == "WAVE":
		return formatWAV, nil
	case bytes.HasPrefix(head, []byte("OggS")):
		return formatOgg, nil
	case bytes.HasPrefix(head, []byte("ID3")):
		return formatMP3, nil
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return formatMP3, nil
	}
	return formatUnknown, ErrUnsupported
}

func decodeWAV(r io.ReadSeeker) (Clip, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Clip{}, errors.New("invalid wav")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Clip{}, fmt.Errorf("wav: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return Clip{}, ErrEmpty
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}
	scale := 1.0 / float64(int64(1)<<(depth-1))

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(clamp(float64(v)*scale, -1, 1))
	}

	clip := Clip{Samples: samples, Rate: int(dec.SampleRate), Channels: int(dec.NumChans)}
	if clip.Channels <= 0 {
		clip.Channels = 1
	}
	if clip.Rate <= 0 {
		clip.Rate = 44100
	}
	return clip, nil
}

// decodeMP3 reads go-mp3 output, which is always 16-bit little endian stereo.
func decodeMP3(r io.Reader) (Clip, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return Clip{}, fmt.Errorf("mp3: %w", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return Clip{}, fmt.Errorf("mp3: %w", err)
	}

	return Clip{Samples: pcm16LE(raw), Rate: dec.SampleRate(), Channels: 2}, nil
}

// decodeOgg tries Vorbis first and falls back to Opus on the same stream.
func decodeOgg(r io.ReadSeeker) (Clip, error) {
	samples, f, vorbisErr := oggvorbis.ReadAll(r)
	if vorbisErr == nil && f != nil && f.Channels > 0 && f.SampleRate > 0 {
		return Clip{Samples: samples, Rate: f.SampleRate, Channels: f.Channels}, nil
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return Clip{}, err
	}
	clip, opusErr := decodeOpus(r)
	if opusErr != nil {
		return Clip{}, fmt.Errorf("ogg: not vorbis (%v) nor opus (%w)", vorbisErr, opusErr)
	}
	return clip, nil
}

func decodeOpus(r io.ReadSeeker) (Clip, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return Clip{}, err
	}
	defer dec.Destroy()

	ch := dec.ChannelCount()
	if ch <= 0 {
		ch = 1
	}

	// Opus always decodes at 48 kHz.
	var samples []float32
	buf := make([]int16, 24000*ch)
	for {
		n, err := dec.Read(buf)
		for _, v := range buf[:n*ch] {
			samples = append(samples, float32(v)/32768)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Clip{}, err
		}
	}

	return Clip{Samples: samples, Rate: 48000, Channels: ch}, nil
}

func pcm16LE(raw []byte) []float32 {
	out := make([]float32, len(raw)/2)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(raw[2*i:]))) / 32768
	}
	return out
}

func downmix(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}

	out := make([]float32, len(in)/channels)
	for i := range out {
		var sum float64
		for _, v := range in[i*channels : (i+1)*channels] {
			sum += float64(v)
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

// resample is linear interpolation; good enough for speech.
func resample(in []float32, from, to int) []float32 {
	if from == to || from <= 0 || len(in) == 0 {
		return in
	}

	step := float64(from) / float64(to)
	out := make([]float32, int(math.Ceil(float64(len(in))*float64(to)/float64(from))))
	last := len(in) - 1

	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= last {
			out[i] = in[last]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = in[j]*(1-frac) + in[j+1]*frac
	}
	return out
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
