package audio

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const maxVolume = 150

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

type SinkInput struct {
	ID      int
	Volume  int
	AppName string
}

// Mixer is the PulseAudio/PipeWire surface the ducker needs.
type Mixer interface {
	SinkInputs(ctx context.Context) ([]SinkInput, error)
	SetVolume(ctx context.Context, id, percent int) error
}

// Pactl drives the mixer through the pactl command.
type Pactl struct{}

func (Pactl) SinkInputs(ctx context.Context) ([]SinkInput, error) {
	out, err := exec.CommandContext(ctx, "pactl", "list", "sink-inputs").Output()
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}
	return parseSinkInputs(string(out)), nil
}

func (Pactl) SetVolume(ctx context.Context, id, percent int) error {
	percent = max(0, min(maxVolume, percent))
	arg := strconv.Itoa(percent) + "%"
	return exec.CommandContext(ctx, "pactl", "set-sink-input-volume", strconv.Itoa(id), arg).Run()
}

func parseSinkInputs(text string) []SinkInput {
	var res []SinkInput

	blocks := strings.Split(text, "Sink Input #")
	for _, block := range blocks[1:] {
		head, body, ok := strings.Cut(block, "\n")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(head))
		if err != nil {
			continue
		}

		s := SinkInput{ID: id}
		for _, line := range strings.Split(body, "\n") {
			line = strings.TrimSpace(line)

			if strings.HasPrefix(line, "Volume:") && s.Volume == 0 {
				if m := percentRe.FindStringSubmatch(line); m != nil {
					s.Volume, _ = strconv.Atoi(m[1])
				}
			}
			if rest, ok := strings.CutPrefix(line, "application.name = "); ok && s.AppName == "" {
				s.AppName = strings.Trim(rest, `"`)
			}
		}

		if s.Volume == 0 && s.AppName == "" {
			continue
		}
		res = append(res, s)
	}

	return res
}

type fade struct {
	id       int
	from, to int
}

// Ducker lowers every other application's volume while the assistant
// speaks and restores it afterwards. Streams named in self are left alone.
type Ducker struct {
	mixer   Mixer
	self    []string
	floor   int
	factor  float64
	fadeFor time.Duration

	mu       sync.Mutex
	active   bool
	original map[int]int
}

func NewDucker(mixer Mixer, self []string, factor float64, floor int, fadeFor time.Duration) *Ducker {
	return &Ducker{
		mixer:    mixer,
		self:     append([]string(nil), self...),
		floor:    max(0, min(maxVolume, floor)),
		factor:   factor,
		fadeFor:  fadeFor,
		original: make(map[int]int),
	}
}

func (d *Ducker) Duck(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return nil
	}

	streams, err := d.mixer.SinkInputs(ctx)
	if err != nil {
		return err
	}

	d.original = make(map[int]int)
	var fades []fade
	for _, s := range streams {
		if d.isSelf(s) {
			continue
		}
		to := math.Round(float64(s.Volume) * d.factor)
		to = math.Max(float64(d.floor), math.Min(maxVolume, to))

		d.original[s.ID] = s.Volume
		fades = append(fades, fade{id: s.ID, from: s.Volume, to: int(to)})
	}

	if err := d.run(ctx, fades); err != nil {
		return err
	}
	d.active = true
	return nil
}

// Restore fades ducked streams back. Streams that appeared after Duck are
// not touched.
func (d *Ducker) Restore(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}

	streams, err := d.mixer.SinkInputs(ctx)
	if err != nil {
		return err
	}

	var fades []fade
	for _, s := range streams {
		if orig, ok := d.original[s.ID]; ok && !d.isSelf(s) {
			fades = append(fades, fade{id: s.ID, from: s.Volume, to: orig})
		}
	}

	if err := d.run(ctx, fades); err != nil {
		return err
	}
	d.original = make(map[int]int)
	d.active = false
	return nil
}

func (d *Ducker) isSelf(s SinkInput) bool {
	for _, name := range d.self {
		if s.AppName == name {
			return true
		}
	}
	return false
}

// run steps every stream linearly from its start to its target volume.
func (d *Ducker) run(ctx context.Context, fades []fade) error {
	if len(fades) == 0 {
		return nil
	}

	const stepEvery = 10 * time.Millisecond
	steps := max(1, int(d.fadeFor/stepEvery))
	pause := d.fadeFor / time.Duration(steps)

	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		frac := float64(i) / float64(steps)
		for _, f := range fades {
			v := int(math.Round(float64(f.from) + float64(f.to-f.from)*frac))
			if err := d.mixer.SetVolume(ctx, f.id, v); err != nil {
				return fmt.Errorf("set volume of %d: %w", f.id, err)
			}
		}
		if i < steps && pause > 0 {
			time.Sleep(pause)
		}
	}
	return nil
}
