// Package console is a terminal front end that sends typed commands to the
// running daemon.
package console

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"enigma/internal/ipc"
)

var (
	clrBrand  = lipgloss.Color("#7D56F4")
	clrSubtle = lipgloss.Color("#626262")

	brand = lipgloss.NewStyle().Foreground(clrBrand).Bold(true)
	dim   = lipgloss.NewStyle().Foreground(clrSubtle)
	fail  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	you   = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
)

// Sender delivers one request to the daemon.
type Sender func(ctx context.Context, req ipc.Request) (ipc.Response, error)

type Options struct {
	Name    string
	Socket  string
	Timeout time.Duration
}

type responseMsg struct {
	resp ipc.Response
	err  error
}

type model struct {
	ctx     context.Context
	send    Sender
	name    string
	timeout time.Duration

	viewport  viewport.Model
	textInput textinput.Model
	spinner   spinner.Model
	messages  []string
	isLoading bool
	ready     bool
	width     int
	height    int
}

func newModel(ctx context.Context, send Sender, opts Options) model {
	ti := textinput.New()
	ti.Placeholder = "Type a command or /help..."
	ti.Focus()
	ti.CharLimit = 1000
	ti.Width = 80

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(clrBrand)

	if opts.Name == "" {
		opts.Name = "Enigma"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Minute
	}

	return model{
		ctx:       ctx,
		send:      send,
		name:      opts.Name,
		timeout:   opts.Timeout,
		textInput: ti,
		spinner:   s,
		messages:  []string{brand.Render(opts.Name+" console") + dim.Render("  socket "+opts.Socket)},
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var tiCmd, vpCmd, spCmd tea.Cmd

	m.textInput, tiCmd = m.textInput.Update(msg)
	m.spinner, spCmd = m.spinner.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.isLoading {
				return m, nil
			}
			input := strings.TrimSpace(m.textInput.Value())
			if input == "" {
				return m, nil
			}
			m.textInput.SetValue("")

			req, local, quit := parseInput(input)
			if quit {
				return m, tea.Quit
			}
			if local != "" {
				if local == "clear" {
					m.messages = m.messages[:1]
				} else {
					m.messages = append(m.messages, local)
				}
				m.refresh()
				return m, nil
			}

			m.messages = append(m.messages, you.Render("you › ")+input)
			m.isLoading = true
			m.refresh()
			return m, tea.Batch(m.sendCmd(req), m.spinner.Tick)
		}

	case tea.WindowSizeMsg:
		m.applyWindowSize(msg.Width, msg.Height)

	case responseMsg:
		m.isLoading = false
		m.messages = append(m.messages, m.render(msg))
		m.refresh()
		return m, nil
	}

	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

func (m model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if m.isLoading {
		b.WriteString(m.spinner.View() + " ")
	} else {
		b.WriteString(brand.Render("› "))
	}
	b.WriteString(m.textInput.View())
	b.WriteString("\n")
	b.WriteString(dim.Render("/help for commands, esc to quit"))
	return b.String()
}

func (m *model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(strings.Join(m.messages, "\n\n"))
	m.viewport.GotoBottom()
}

func (m *model) applyWindowSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.width, m.height = width, height
	m.textInput.Width = max(width-8, 1)

	vpWidth, vpHeight := max(width-2, 1), max(height-2, 1)
	if !m.ready {
		m.viewport = viewport.New(vpWidth, vpHeight)
		m.ready = true
		m.refresh()
		return
	}
	m.viewport.Width = vpWidth
	m.viewport.Height = vpHeight
}

func (m model) sendCmd(req ipc.Request) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, m.timeout)
		defer cancel()
		resp, err := m.send(ctx, req)
		return responseMsg{resp: resp, err: err}
	}
}

func (m model) render(msg responseMsg) string {
	switch {
	case msg.err != nil:
		return fail.Render(fmt.Sprintf("daemon unreachable: %v", msg.err))
	case !msg.resp.OK:
		return fail.Render(msg.resp.Error)
	case len(msg.resp.History) > 0:
		return dim.Render(strings.Join(msg.resp.History, "\n"))
	case msg.resp.Output == "":
		return dim.Render("ok")
	}
	return brand.Render(m.name+" › ") + msg.resp.Output
}

// parseInput maps a line to a daemon request. Slash commands that need no
// daemon come back as local text; "clear" is handled by the caller.
func parseInput(input string) (req ipc.Request, local string, quit bool) {
	if !strings.HasPrefix(input, "/") {
		return ipc.Request{Cmd: ipc.CmdCommand, Text: input}, "", false
	}

	verb, arg, _ := strings.Cut(strings.TrimPrefix(input, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(verb) {
	case "quit", "exit":
		return req, "", true
	case "clear":
		return req, "clear", false
	case "help":
		return req, helpText, false
	case "audio":
		if arg == "" {
			return req, fail.Render("usage: /audio <file>"), false
		}
		return ipc.Request{Cmd: ipc.CmdAudio, Path: arg}, "", false
	case ipc.CmdTrigger, ipc.CmdPause, ipc.CmdResume, ipc.CmdHistory, ipc.CmdStatus:
		return ipc.Request{Cmd: strings.ToLower(verb)}, "", false
	}
	return req, fail.Render("unknown command /" + verb), false
}

var helpText = strings.Join([]string{
	brand.Render("Commands:"),
	"  /trigger        record one voice command",
	"  /audio <file>   dispatch the speech in an audio file",
	"  /pause /resume  stop or restart wake-word listening",
	"  /history        show the conversation log",
	"  /status         daemon state",
	"  /clear          clear the screen",
	"  /quit           leave",
	dim.Render("  Any other text is sent as a command."),
}, "\n")

var ErrNoTTY = errors.New("console needs an interactive terminal")

// Run starts the console against the daemon socket.
func Run(ctx context.Context, opts Options) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return ErrNoTTY
	}

	send := func(ctx context.Context, req ipc.Request) (ipc.Response, error) {
		return ipc.Send(ctx, opts.Socket, req)
	}
	p := tea.NewProgram(newModel(ctx, send, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
