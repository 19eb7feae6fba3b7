package tools

import (
	"context"
	"fmt"
	log "log/slog"
	"strings"
	"time"
	"unicode/utf8"
)

const readLimit = 2000

type editor struct {
	desk  Automation
	model Model
	delay time.Duration
}

type improveArgs struct {
	Instruction string `json:"instruction"`
}

func (a improveArgs) Validate() error {
	return required("instruction", a.Instruction)
}

type writeArgs struct {
	Text string `json:"text"`
}

func (a writeArgs) Validate() error {
	return required("text", a.Text)
}

// keys presses combo and waits for the focused application to react.
func (e *editor) keys(ctx context.Context, combo string) error {
	if err := e.desk.SendKeys(ctx, combo); err != nil {
		return fmt.Errorf("send %s: %w", combo, err)
	}
	return sleep(ctx, e.delay)
}

func (e *editor) copyAll(ctx context.Context) (string, error) {
	if err := e.keys(ctx, "ctrl+a"); err != nil {
		return "", err
	}
	if err := e.keys(ctx, "ctrl+c"); err != nil {
		return "", err
	}

	text, err := e.desk.ReadClipboard()
	if err != nil {
		return "", fmt.Errorf("read clipboard: %w", err)
	}
	return text, nil
}

func (e *editor) paste(ctx context.Context, text string) error {
	if err := e.desk.WriteClipboard(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	if err := sleep(ctx, e.delay); err != nil {
		return err
	}
	return e.keys(ctx, "ctrl+v")
}

func (e *editor) improve(ctx context.Context, in improveArgs) (string, error) {
	original, err := e.copyAll(ctx)
	if err != nil {
		return "", err
	}
	log.Debug("Read active document", "chars", utf8.RuneCountInString(original))

	if strings.TrimSpace(original) == "" {
		return "Could not find any text in the active window.", nil
	}

	fixed, err := e.model.Complete(ctx, rewritePrompt(in.Instruction, original))
	if err != nil {
		return "", err
	}
	fixed = strings.TrimSpace(fixed)
	if fixed == "" {
		return "The AI could not process the text.", nil
	}

	if err := e.paste(ctx, fixed); err != nil {
		return "", err
	}

	return fmt.Sprintf("The text was updated (%d characters)", utf8.RuneCountInString(fixed)), nil
}

func (e *editor) read(ctx context.Context, _ NoArgs) (string, error) {
	text, err := e.copyAll(ctx)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "The active window has no text.", nil
	}
	if utf8.RuneCountInString(text) > readLimit {
		text = string([]rune(text)[:readLimit])
	}
	return text, nil
}

func (e *editor) write(ctx context.Context, in writeArgs) (string, error) {
	if err := e.paste(ctx, in.Text); err != nil {
		return "", err
	}
	return fmt.Sprintf("Wrote %d characters to the active window.", utf8.RuneCountInString(in.Text)), nil
}

func rewritePrompt(instruction, text string) string {
	return fmt.Sprintf(`You are an expert proofreader who improves text.

INSTRUCTION FROM THE USER: %s

CRITICAL RULES:
1. Improve the text following the instruction
2. Keep ALL content, never remove sentences
3. Keep the author's voice and tone
4. Fix spelling, grammar and structure
5. Make the text easier to read
6. Return ONLY the improved text. NOTHING ELSE.

ORIGINAL TEXT:
%s

IMPROVED TEXT:`, instruction, text)
}
