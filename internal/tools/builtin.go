package tools

import (
	"context"
	"errors"
	"time"
)

// Automation is the slice of the desktop the tools drive.
type Automation interface {
	SendKeys(ctx context.Context, combo string) error
	ReadClipboard() (string, error)
	WriteClipboard(text string) error
	Launch(ctx context.Context, target string) error
	Open(ctx context.Context, target string) error
	Screenshot(ctx context.Context, path string) error
	Player(ctx context.Context, args ...string) error
}

// Model is a plain text completion endpoint.
type Model interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Describer answers a prompt about a PNG image.
type Describer interface {
	Describe(ctx context.Context, prompt string, png []byte) (string, error)
}

// Searcher returns search results formatted as plain text.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Deps is everything the built-in tools need from the outside world.
type Deps struct {
	Desktop Automation
	Model   Model
	Vision  Describer
	Search  Searcher

	// Apps maps spoken names ("calculator") to launch targets.
	Apps map[string]string

	DocumentsDir   string
	ScreenshotsDir string
	Language       string

	// KeyDelay is the wait between synthetic keystrokes and clipboard reads.
	KeyDelay time.Duration
	Now      func() time.Time
}

func (d *Deps) defaults() error {
	if d.Desktop == nil || d.Model == nil || d.Search == nil {
		return errors.New("tools: desktop, model and search are required")
	}
	if d.Language == "" {
		d.Language = "English"
	}
	if d.KeyDelay == 0 {
		d.KeyDelay = 150 * time.Millisecond
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return nil
}

// Default builds the registry of every built-in tool.
func Default(d Deps) (*Registry, error) {
	if err := d.defaults(); err != nil {
		return nil, err
	}

	ed := &editor{desk: d.Desktop, model: d.Model, delay: d.KeyDelay}
	docs := &documents{
		dir:      d.DocumentsDir,
		desk:     d.Desktop,
		model:    d.Model,
		search:   d.Search,
		language: d.Language,
		now:      d.Now,
	}
	sys := &system{desk: d.Desktop, apps: d.Apps, now: d.Now}
	scr := &screen{
		desk:     d.Desktop,
		vision:   d.Vision,
		dir:      d.ScreenshotsDir,
		language: d.Language,
		now:      d.Now,
	}

	return NewRegistry(
		Typed(ImproveActiveDocument,
			"Reads the text in the active window, improves it following the instruction and pastes it back.",
			`{"name": "improve_active_document", "parameters": {"instruction": "Fix spelling and structure"}}`,
			ed.improve),
		Typed(ReadActiveDocument,
			"Reads the text in the active window.",
			`{"name": "read_active_document", "parameters": {}}`,
			ed.read),
		Typed(WriteToDocument,
			"Types text into the active window.",
			`{"name": "write_to_document", "parameters": {"text": "Hello"}}`,
			ed.write),
		Typed(GetCurrentTime,
			"Returns the current date and time.",
			`{"name": "get_current_time", "parameters": {}}`,
			sys.currentTime),
		Typed(OpenApplication,
			"Opens a program on the computer, e.g. chrome, spotify, calculator.",
			`{"name": "open_application", "parameters": {"app_name": "spotify"}}`,
			sys.openApplication),
		Typed(PlayMusic,
			"Plays music on Spotify matching a search term.",
			`{"name": "play_music", "parameters": {"query": "jazz"}}`,
			sys.playMusic),
		Typed(CreateWordDocument,
			"Creates a document with the given content and opens it.",
			`{"name": "create_word_document", "parameters": {"filename": "Report", "content": "..."}}`,
			docs.createDocument),
		Typed(CreateNotesDocument,
			"Writes notes into a new document and opens it. No web search.",
			`{"name": "create_notes_document", "parameters": {"content": "...", "filename": "Notes"}}`,
			docs.createNotes),
		Typed(CreateResearchDocument,
			"Searches the web about a topic, summarises it and writes a document.",
			`{"name": "create_research_document", "parameters": {"topic": "...", "filename": "Research"}}`,
			docs.createResearch),
		Typed(SearchWeb,
			"Searches the web for current facts, news and people.",
			`{"name": "search_web", "parameters": {"query": "..."}}`,
			searchTool(d.Search)),
		Typed(CreateDocumentation,
			"Creates a text file with the given content.",
			`{"name": "create_documentation", "parameters": {"file_path": "report.txt", "content": "..."}}`,
			docs.createTextFile),
		Typed(TakeScreenshot,
			"Takes a screenshot of the whole screen and saves it.",
			`{"name": "take_screenshot", "parameters": {}}`,
			scr.take),
		Typed(DescribeScreen,
			"Looks at the screen and describes what is on it.",
			`{"name": "describe_screen", "parameters": {}}`,
			scr.describe),
	)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
