package desktop

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/tidwall/gjson"
)

var ErrUnsupported = errors.New("desktop: not supported in this session")

// Runner executes an external program and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Desktop drives the local session through the usual command line helpers
// (swaymsg, xdotool, wtype, grim, scrot, playerctl, xdg-open).
type Desktop struct {
	run      Runner
	lookPath func(string) (string, error)
	getenv   func(string) string
	goos     string
}

func New() *Desktop {
	return &Desktop{
		run:      execRunner,
		lookPath: exec.LookPath,
		getenv:   os.Getenv,
		goos:     runtime.GOOS,
	}
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) && len(ee.Stderr) > 0 {
			return out, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(ee.Stderr)))
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func (d *Desktop) has(bin string) bool {
	_, err := d.lookPath(bin)
	return err == nil
}

func (d *Desktop) wayland() bool {
	return d.getenv("WAYLAND_DISPLAY") != ""
}

// ActiveWindowTitle returns the title of the focused window.
func (d *Desktop) ActiveWindowTitle(ctx context.Context) (string, error) {
	if d.getenv("SWAYSOCK") != "" && d.has("swaymsg") {
		out, err := d.run(ctx, "swaymsg", "-t", "get_tree", "-r")
		if err != nil {
			return "", err
		}
		if title, ok := focusedTitle(out); ok {
			return title, nil
		}
		return "", errors.New("no focused node in sway tree")
	}

	if d.getenv("DISPLAY") != "" && d.has("xdotool") {
		out, err := d.run(ctx, "xdotool", "getactivewindow", "getwindowname")
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(out)), nil
	}

	return "", ErrUnsupported
}

func focusedTitle(tree []byte) (string, bool) {
	if !gjson.ValidBytes(tree) {
		return "", false
	}
	return focusedNode(gjson.ParseBytes(tree))
}

func focusedNode(node gjson.Result) (string, bool) {
	if node.Get("focused").Bool() {
		return node.Get("name").String(), true
	}
	for _, key := range []string{"nodes", "floating_nodes"} {
		for _, child := range node.Get(key).Array() {
			if name, ok := focusedNode(child); ok {
				return name, true
			}
		}
	}
	return "", false
}

// SendKeys presses a combo such as "ctrl+a" in the focused window.
func (d *Desktop) SendKeys(ctx context.Context, combo string) error {
	parts := strings.Split(strings.ToLower(combo), "+")
	key := parts[len(parts)-1]
	mods := parts[:len(parts)-1]

	switch {
	case d.wayland() && d.has("wtype"):
		args := make([]string, 0, 2*len(mods)*2+2)
		for _, m := range mods {
			args = append(args, "-M", m)
		}
		args = append(args, "-k", key)
		for i := len(mods) - 1; i >= 0; i-- {
			args = append(args, "-m", mods[i])
		}
		_, err := d.run(ctx, "wtype", args...)
		return err

	case d.has("xdotool"):
		_, err := d.run(ctx, "xdotool", "key", "--clearmodifiers", strings.Join(parts, "+"))
		return err
	}

	return ErrUnsupported
}

func (d *Desktop) ReadClipboard() (string, error) {
	return clipboard.ReadAll()
}

func (d *Desktop) WriteClipboard(text string) error {
	return clipboard.WriteAll(text)
}

// Launch starts a program detached from the daemon. Targets that are not
// executables on PATH are handed to the desktop opener.
func (d *Desktop) Launch(ctx context.Context, target string) error {
	fields := strings.Fields(target)
	if len(fields) == 0 {
		return errors.New("empty launch target")
	}

	if d.has(fields[0]) {
		cmd := exec.Command(fields[0], fields[1:]...)
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("start %s: %w", fields[0], err)
		}
		go func() {
			if err := cmd.Wait(); err != nil {
				log.Debug("Launched program exited", "target", target, "err", err)
			}
		}()
		return nil
	}

	return d.Open(ctx, target)
}

// Open hands a file path or URI to the session's default handler.
func (d *Desktop) Open(ctx context.Context, target string) error {
	var name string
	var args []string

	switch d.goos {
	case "darwin":
		name, args = "open", []string{target}
	case "windows":
		name, args = "cmd", []string{"/c", "start", "", target}
	default:
		name, args = "xdg-open", []string{target}
	}

	_, err := d.run(ctx, name, args...)
	return err
}

// Screenshot writes a PNG of the whole screen to path.
func (d *Desktop) Screenshot(ctx context.Context, path string) error {
	var attempts [][]string

	switch {
	case d.goos == "darwin":
		attempts = append(attempts, []string{"screencapture", "-x", path})
	case d.wayland():
		attempts = append(attempts, []string{"grim", path})
	default:
		attempts = append(attempts,
			[]string{"scrot", "-o", path},
			[]string{"gnome-screenshot", "-f", path},
		)
	}

	var lastErr error = ErrUnsupported
	for _, a := range attempts {
		if !d.has(a[0]) {
			continue
		}
		if _, err := d.run(ctx, a[0], a[1:]...); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	return lastErr
}

// Player sends a command to the MPRIS player, e.g. Player(ctx, "play").
func (d *Desktop) Player(ctx context.Context, args ...string) error {
	if !d.has("playerctl") {
		return ErrUnsupported
	}
	_, err := d.run(ctx, "playerctl", args...)
	return err
}
