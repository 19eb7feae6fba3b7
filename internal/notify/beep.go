package notify

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"os/exec"

	"enigma/internal/audio"
)

// Notifier tells the user the assistant is listening: a short sound and a
// desktop notification.
type Notifier struct {
	beepPath string
	appName  string

	lookPath func(string) (string, error)
	run      func(ctx context.Context, name string, args ...string) error
}

func New(beepPath, appName string) *Notifier {
	return &Notifier{
		beepPath: beepPath,
		appName:  appName,
		lookPath: exec.LookPath,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

// Beep plays the listening sound and waits for it to finish.
func (n *Notifier) Beep(ctx context.Context) error {
	if n.beepPath == "" {
		return nil
	}
	f, err := os.Open(n.beepPath)
	if err != nil {
		return fmt.Errorf("open beep: %w", err)
	}
	return audio.PlayMP3(ctx, f)
}

var ErrNoNotifier = errors.New("notify-send not found")

// Notify shows msg through the freedesktop notification daemon (mako, dunst,
// gnome-shell, ...).
func (n *Notifier) Notify(ctx context.Context, msg string) error {
	if _, err := n.lookPath("notify-send"); err != nil {
		return ErrNoNotifier
	}
	return n.run(ctx, "notify-send", "-a", n.appName, "-t", "2000", n.appName, msg)
}

// Listening signals the start of a recording. Failures are only logged; a
// missing sound must never block the microphone.
func (n *Notifier) Listening(ctx context.Context) {
	if err := n.Beep(ctx); err != nil {
		log.Debug("Beep failed", "err", err)
	}
	if err := n.Notify(ctx, "Listening..."); err != nil {
		log.Debug("Notification failed", "err", err)
	}
}
