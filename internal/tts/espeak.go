package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <espeak-ng/speak_lib.h>

static int
espeak_say(const char *text, const char *voice, int rate)
{
	if (!text || !voice)
	{ return -1; }

	if (espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0) < 0)
	{ return -2; }

	espeak_VOICE specs = { .languages = voice };
	espeak_SetVoiceByProperties(&specs);
	if (rate > 0)
	{ espeak_SetParameter(espeakRATE, rate, 0); }

	espeak_Synth(text, 0, 0, POS_CHARACTER, 0, espeakCHARS_AUTO, NULL, NULL);
	espeak_Synchronize();
	espeak_Terminate();

	return 0;
}
*/
import "C"

import (
	"context"
	"fmt"
	"sync"
	"unsafe"
)

// Espeak speaks through libespeak-ng on the default sound device. The
// library keeps global state, so calls are serialized.
type Espeak struct {
	mu    sync.Mutex
	voice string
	rate  int
}

func NewEspeak(voice string, rate int) *Espeak {
	if voice == "" {
		voice = "en"
	}
	return &Espeak{voice: voice, rate: rate}
}

// Speak blocks until the utterance is played. Synthesis cannot be
// interrupted once started; ctx is only checked before.
func (e *Espeak) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	cvoice := C.CString(e.voice)
	defer C.free(unsafe.Pointer(cvoice))

	if rc := C.espeak_say(ctext, cvoice, C.int(e.rate)); rc != 0 {
		return fmt.Errorf("espeak_say failed: %d", int(rc))
	}
	return nil
}
