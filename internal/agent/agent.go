package agent

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"enigma/internal/tools"
)

// Model is the language model endpoint: text in, text out.
type Model interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// WindowTitler reports the focused window; failures are tolerated.
type WindowTitler interface {
	ActiveWindowTitle(ctx context.Context) (string, error)
}

// State is one step of a dispatch, recorded in Result.Trail.
type State string

const (
	AwaitingModel      State = "awaiting_model"
	ModelReplied       State = "model_replied"
	ToolShaped         State = "tool_shaped"
	NotToolShaped      State = "not_tool_shaped"
	KnownTool          State = "known_tool"
	UnknownTool        State = "unknown_tool"
	Dispatched         State = "dispatched"
	SearchReformulated State = "search_reformulated"
	Formatted          State = "formatted"
	Fallback           State = "fallback"
	Done               State = "done"
)

const (
	// DefaultHistoryWindow is how many history entries each prompt carries.
	DefaultHistoryWindow = 4
	dataRecordLen        = 100
)

// Request is one utterance or typed command.
type Request struct {
	Text   string
	Source string // voice, ipc, http, bus, ...
}

// Result is what every invocation ends in. Failures are reported inside
// Output; there is no separate error channel. Model text is passed through
// verbatim, so Output is empty when the model said nothing.
type Result struct {
	Output string
	Tool   tools.ToolID
	Trail  []State
}

func (r *Result) step(s State) {
	r.Trail = append(r.Trail, s)
}

// Options shape the instruction block and the history window.
type Options struct {
	Name          string
	Language      string
	HistoryWindow int
}

// Agent is the dispatch loop. One Agent is built at startup and shared by
// every entry point; invocations are serialized.
type Agent struct {
	model         Model
	tools         *tools.Registry
	aliases       *tools.Aliases
	window        WindowTitler
	history       *History
	instructions  string
	language      string
	historyWindow int

	mu   sync.Mutex
	busy atomic.Bool
}

func New(model Model, reg *tools.Registry, aliases *tools.Aliases, window WindowTitler, opts Options) (*Agent, error) {
	if model == nil || reg == nil || aliases == nil {
		return nil, errors.New("agent: model, registry and aliases are required")
	}
	if opts.Name == "" {
		opts.Name = "Enigma"
	}
	if opts.Language == "" {
		opts.Language = "English"
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = DefaultHistoryWindow
	}

	instructions, err := Instructions(opts.Name, opts.Language, reg.Catalog())
	if err != nil {
		return nil, err
	}

	return &Agent{
		model:         model,
		tools:         reg,
		aliases:       aliases,
		window:        window,
		history:       NewHistory(),
		instructions:  instructions,
		language:      opts.Language,
		historyWindow: opts.HistoryWindow,
	}, nil
}

func (a *Agent) History() *History {
	return a.history
}

// Busy reports whether a dispatch is running. It is the soft check the
// listening loop uses before recording; Handle itself is the real gate.
func (a *Agent) Busy() bool {
	return a.busy.Load()
}

// Handle runs one utterance through the loop and always returns a reply.
func (a *Agent) Handle(ctx context.Context, req Request) Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.busy.Store(true)
	defer a.busy.Store(false)

	lg := log.With("req", uuid.NewString()[:8], "source", req.Source)
	start := time.Now()

	res := a.handle(ctx, lg, req)
	res.step(Done)

	lg.Info("Dispatch done", "tool", res.Tool, "trail", res.Trail, "took", time.Since(start))
	return res
}

func (a *Agent) handle(ctx context.Context, lg *log.Logger, req Request) Result {
	var res Result
	res.step(AwaitingModel)

	prompt := BuildPrompt(a.instructions, a.windowTitle(ctx, lg), a.history.Window(a.historyWindow), req.Text)

	raw, err := a.model.Complete(ctx, prompt)
	if err != nil {
		lg.Error("Model call failed", "err", err)
		res.Output = fmt.Sprintf("Error: %v", err)
		return res
	}
	res.step(ModelReplied)
	lg.Debug("Model reply", "raw", raw)

	cmd, err := Parse(raw)
	if err != nil {
		if errors.Is(err, ErrNotToolShaped) {
			res.step(NotToolShaped)
		} else {
			res.step(ToolShaped)
			lg.Debug("Tool-shaped reply did not parse", "err", err)
		}
		return a.fallback(res, req, raw)
	}
	res.step(ToolShaped)

	id, ok := a.aliases.Resolve(cmd.Name)
	if !ok {
		res.step(UnknownTool)
		lg.Warn("Model picked an unknown tool", "name", cmd.Name)
		return a.fallback(res, req, raw)
	}
	res.step(KnownTool)
	if string(id) != cmd.Name {
		lg.Debug("Alias corrected", "from", cmd.Name, "to", id)
	}

	tool, _ := a.tools.Lookup(id)
	out := a.invoke(ctx, lg, tool, cmd.Args)
	res.Tool = id
	res.step(Dispatched)

	a.history.Append("User: "+req.Text, "AI (Data): "+truncate(out, dataRecordLen)+"...")

	switch id {
	case tools.SearchWeb:
		answer, err := a.model.Complete(ctx, SummaryPrompt(req.Text, out, a.language))
		if err != nil {
			lg.Error("Summary call failed", "err", err)
			res.Output = fmt.Sprintf("Error: %v", err)
			return res
		}
		// The summary is the answer as given, empty or not.
		res.Output = answer
		res.step(SearchReformulated)
		return res

	case tools.ImproveActiveDocument:
		res.Output = "Text updated: " + out

	case tools.OpenApplication:
		res.Output = fmt.Sprintf("Starting %s.", appName(cmd.Args))

	default:
		res.Output = "Done: " + out
	}

	res.step(Formatted)
	return res
}

func (a *Agent) fallback(res Result, req Request, raw string) Result {
	a.history.Append("User: "+req.Text, "AI: "+raw)
	res.Output = raw
	res.step(Fallback)
	return res
}

// invoke runs the tool and folds any failure, including a panic, into text.
func (a *Agent) invoke(ctx context.Context, lg *log.Logger, tool tools.Tool, args tools.Args) (out string) {
	id := tool.ID()

	defer func() {
		if r := recover(); r != nil {
			lg.Error("Tool panicked", "tool", id, "panic", r)
			out = fmt.Sprintf("Tool %s failed: internal error", id)
		}
	}()

	lg.Info("Invoking tool", "tool", id, "args", args)

	res, err := tool.Invoke(ctx, args)
	if err != nil {
		var aerr *tools.ArgumentError
		if errors.As(err, &aerr) {
			lg.Warn("Tool rejected arguments", "tool", id, "err", aerr.Err)
			return fmt.Sprintf("Tool %s rejected its arguments: %v", id, aerr.Err)
		}
		lg.Error("Tool failed", "tool", id, "err", err)
		return fmt.Sprintf("Tool %s failed: %v", id, err)
	}

	return res
}

func (a *Agent) windowTitle(ctx context.Context, lg *log.Logger) string {
	if a.window == nil {
		return unknownWindow
	}
	title, err := a.window.ActiveWindowTitle(ctx)
	if err != nil {
		lg.Debug("No active window title", "err", err)
		return unknownWindow
	}
	if strings.TrimSpace(title) == "" {
		return unknownWindow
	}
	return title
}

func appName(args tools.Args) string {
	var in struct {
		AppName string `json:"app_name"`
	}
	if err := tools.DecodeArgs(args, &in); err != nil || strings.TrimSpace(in.AppName) == "" {
		return "the application"
	}
	return in.AppName
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
