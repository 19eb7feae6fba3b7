package console

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"enigma/internal/ipc"
)

func TestParseInput(t *testing.T) {
	for _, tc := range []struct {
		in    string
		want  ipc.Request
		local bool
		quit  bool
	}{
		{in: "open spotify", want: ipc.Request{Cmd: ipc.CmdCommand, Text: "open spotify"}},
		{in: "/trigger", want: ipc.Request{Cmd: ipc.CmdTrigger}},
		{in: "/PAUSE", want: ipc.Request{Cmd: ipc.CmdPause}},
		{in: "/audio  memo.ogg", want: ipc.Request{Cmd: ipc.CmdAudio, Path: "memo.ogg"}},
		{in: "/audio", local: true},
		{in: "/help", local: true},
		{in: "/dance", local: true},
		{in: "/quit", quit: true},
	} {
		req, local, quit := parseInput(tc.in)
		if req != tc.want || (local != "") != tc.local || quit != tc.quit {
			t.Errorf("parseInput(%q) = %+v, %q, %v", tc.in, req, local, quit)
		}
	}
}

func ready(t *testing.T, send Sender) model {
	t.Helper()
	m := newModel(context.Background(), send, Options{Name: "Enigma", Socket: "/tmp/enigma.sock"})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(model)
}

func enter(m model, text string) (model, tea.Cmd) {
	m.textInput.SetValue(text)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(model), cmd
}

func TestCommandRoundTrip(t *testing.T) {
	var got ipc.Request
	m := ready(t, func(_ context.Context, req ipc.Request) (ipc.Response, error) {
		got = req
		return ipc.Response{OK: true, Output: "Starting spotify."}, nil
	})

	m, cmd := enter(m, "open spotify")
	if !m.isLoading || cmd == nil {
		t.Fatal("enter did not start a request")
	}

	// Enter while loading is ignored.
	if _, again := enter(m, "second"); again != nil {
		t.Error("second command accepted while loading")
	}

	msg := m.sendCmd(ipc.Request{Cmd: ipc.CmdCommand, Text: "open spotify"})()
	if got.Text != "open spotify" {
		t.Errorf("sent %+v", got)
	}

	next, _ := m.Update(msg)
	m = next.(model)
	if m.isLoading {
		t.Error("still loading after the reply")
	}
	last := m.messages[len(m.messages)-1]
	if !strings.Contains(last, "Starting spotify.") {
		t.Errorf("last message = %q", last)
	}
}

func TestRenderFailures(t *testing.T) {
	m := ready(t, nil)

	out := m.render(responseMsg{err: errors.New("connection refused")})
	if !strings.Contains(out, "daemon unreachable: connection refused") {
		t.Errorf("dial error = %q", out)
	}
	out = m.render(responseMsg{resp: ipc.Response{Error: "audio input is disabled"}})
	if !strings.Contains(out, "audio input is disabled") {
		t.Errorf("daemon error = %q", out)
	}
	out = m.render(responseMsg{resp: ipc.Response{OK: true, History: []string{"User: hi", "AI: hello"}}})
	if !strings.Contains(out, "User: hi") || !strings.Contains(out, "AI: hello") {
		t.Errorf("history = %q", out)
	}
}

func TestLocalCommands(t *testing.T) {
	m := ready(t, func(context.Context, ipc.Request) (ipc.Response, error) {
		t.Error("local command reached the daemon")
		return ipc.Response{}, nil
	})

	m, cmd := enter(m, "/help")
	if cmd != nil || !strings.Contains(m.messages[len(m.messages)-1], "/trigger") {
		t.Errorf("help not shown: %q", m.messages)
	}

	m, _ = enter(m, "/clear")
	if len(m.messages) != 1 {
		t.Errorf("clear left %d messages", len(m.messages))
	}

	if _, cmd := enter(m, "/quit"); cmd == nil {
		t.Error("quit returned no command")
	}
}
