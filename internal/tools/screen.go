package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type screen struct {
	desk     Automation
	vision   Describer
	dir      string
	language string
	now      func() time.Time
}

func (s *screen) take(ctx context.Context, _ NoArgs) (string, error) {
	dir := s.dir
	if dir == "" {
		dir = DocumentsDir("")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, fmt.Sprintf("screenshot_%d.png", s.now().Unix()))
	if err := s.desk.Screenshot(ctx, path); err != nil {
		return "", fmt.Errorf("screenshot: %w", err)
	}
	return fmt.Sprintf("Screenshot saved as %s.", path), nil
}

func (s *screen) describe(ctx context.Context, _ NoArgs) (string, error) {
	if s.vision == nil {
		return "", errors.New("no vision model configured")
	}

	f, err := os.CreateTemp("", "enigma-screen-*.png")
	if err != nil {
		return "", err
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	if err := s.desk.Screenshot(ctx, path); err != nil {
		return "", fmt.Errorf("screenshot: %w", err)
	}
	png, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf("Describe briefly in %s what is on this screen and what the user seems to be doing.", s.language)
	return s.vision.Describe(ctx, prompt, png)
}
