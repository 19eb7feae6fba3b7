package tools

import (
	"context"
	"fmt"
	log "log/slog"
	"net/url"
	"strings"
	"time"
)

// DefaultApps maps spoken application names onto launch targets.
var DefaultApps = map[string]string{
	"calculator": "gnome-calculator",
	"notes":      "gedit",
	"notepad":    "gedit",
	"files":      "nautilus",
	"explorer":   "nautilus",
	"browser":    "firefox",
	"chrome":     "google-chrome",
	"spotify":    "spotify",
	"word":       "libreoffice --writer",
	"excel":      "libreoffice --calc",
	"powerpoint": "libreoffice --impress",
	"terminal":   "x-terminal-emulator",
}

type system struct {
	desk Automation
	apps map[string]string
	now  func() time.Time
}

type appArgs struct {
	AppName string `json:"app_name"`
}

func (a appArgs) Validate() error {
	return required("app_name", a.AppName)
}

type musicArgs struct {
	Query string `json:"query"`
}

func (a musicArgs) Validate() error {
	return required("query", a.Query)
}

func (s *system) currentTime(context.Context, NoArgs) (string, error) {
	return s.now().Format("Monday, 02 January 2006, 15:04"), nil
}

// target maps a spoken name through the configured table, then the default
// one. Unknown names are launched as given.
func (s *system) target(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if t, ok := s.apps[key]; ok {
		return t
	}
	if t, ok := DefaultApps[key]; ok {
		return t
	}
	return strings.TrimSpace(name)
}

func (s *system) openApplication(ctx context.Context, in appArgs) (string, error) {
	target := s.target(in.AppName)
	log.Info("Launching application", "app", in.AppName, "target", target)

	if err := s.desk.Launch(ctx, target); err != nil {
		return "", fmt.Errorf("launch %s: %w", target, err)
	}
	return fmt.Sprintf("Opening %s...", target), nil
}

// playMusic hands a Spotify search URI to the desktop and then asks the MPRIS
// player to start playback.
func (s *system) playMusic(ctx context.Context, in musicArgs) (string, error) {
	query := strings.TrimSpace(in.Query)
	uri := "spotify:search:" + url.PathEscape(query)

	if err := s.desk.Open(ctx, uri); err != nil {
		return "", fmt.Errorf("open spotify: %w", err)
	}
	if err := s.desk.Player(ctx, "--player=spotify", "play"); err != nil {
		log.Warn("Player did not start playback", "err", err)
		return fmt.Sprintf("Searching for '%s' on Spotify.", query), nil
	}
	return fmt.Sprintf("Playing '%s' on Spotify.", query), nil
}
