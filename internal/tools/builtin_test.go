package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type fakeDesk struct {
	keys      []string
	clipboard string
	opened    []string
	launched  []string
	player    [][]string
	shotErr   error
	openErr   error
}

func (f *fakeDesk) SendKeys(_ context.Context, combo string) error {
	f.keys = append(f.keys, combo)
	return nil
}

func (f *fakeDesk) ReadClipboard() (string, error) {
	return f.clipboard, nil
}

func (f *fakeDesk) WriteClipboard(text string) error {
	f.clipboard = text
	return nil
}

func (f *fakeDesk) Launch(_ context.Context, target string) error {
	f.launched = append(f.launched, target)
	return nil
}

func (f *fakeDesk) Open(_ context.Context, target string) error {
	f.opened = append(f.opened, target)
	return f.openErr
}

func (f *fakeDesk) Screenshot(_ context.Context, path string) error {
	if f.shotErr != nil {
		return f.shotErr
	}
	return os.WriteFile(path, []byte("\x89PNG fake"), 0o644)
}

func (f *fakeDesk) Player(_ context.Context, args ...string) error {
	f.player = append(f.player, args)
	return nil
}

type fakeModel struct {
	reply   string
	prompts []string
}

func (m *fakeModel) Complete(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.reply, nil
}

type fakeSearch struct {
	out string
	err error
}

func (s *fakeSearch) Search(context.Context, string) (string, error) {
	return s.out, s.err
}

type fakeVision struct {
	png []byte
}

func (v *fakeVision) Describe(_ context.Context, _ string, png []byte) (string, error) {
	v.png = png
	return "A terminal with Go code.", nil
}

type env struct {
	reg    *Registry
	desk   *fakeDesk
	model  *fakeModel
	search *fakeSearch
	vision *fakeVision
	dir    string
}

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{
		desk:   &fakeDesk{},
		model:  &fakeModel{},
		search: &fakeSearch{},
		vision: &fakeVision{},
		dir:    t.TempDir(),
	}
	reg, err := Default(Deps{
		Desktop:        e.desk,
		Model:          e.model,
		Vision:         e.vision,
		Search:         e.search,
		Apps:           map[string]string{"editor": "code"},
		DocumentsDir:   e.dir,
		ScreenshotsDir: filepath.Join(e.dir, "shots"),
		KeyDelay:       time.Nanosecond,
		Now:            func() time.Time { return time.Date(2026, 10, 12, 14, 5, 0, 0, time.Local) },
	})
	if err != nil {
		t.Fatal(err)
	}
	e.reg = reg
	return e
}

func (e *env) invoke(t *testing.T, id ToolID, args Args) string {
	t.Helper()
	tool, ok := e.reg.Lookup(id)
	if !ok {
		t.Fatalf("tool %s not registered", id)
	}
	out, err := tool.Invoke(context.Background(), args)
	if err != nil {
		t.Fatalf("%s: %v", id, err)
	}
	return out
}

func TestImproveActiveDocument(t *testing.T) {
	e := newEnv(t)
	e.desk.clipboard = "this text have erors"
	e.model.reply = "  This text has errors.  "

	out := e.invoke(t, ImproveActiveDocument, Args{"instruction": "fix it"})

	if out != "The text was updated (22 characters)" {
		t.Errorf("out = %q", out)
	}
	if got := strings.Join(e.desk.keys, " "); got != "ctrl+a ctrl+c ctrl+v" {
		t.Errorf("keys = %s", got)
	}
	if e.desk.clipboard != "This text has errors." {
		t.Errorf("clipboard = %q", e.desk.clipboard)
	}
	if !strings.Contains(e.model.prompts[0], "INSTRUCTION FROM THE USER: fix it") ||
		!strings.Contains(e.model.prompts[0], "this text have erors") {
		t.Errorf("prompt = %q", e.model.prompts[0])
	}
}

func TestImproveActiveDocumentEmptySelection(t *testing.T) {
	e := newEnv(t)

	out := e.invoke(t, ImproveActiveDocument, Args{"instruction": "fix it"})

	if out != "Could not find any text in the active window." {
		t.Errorf("out = %q", out)
	}
	if len(e.model.prompts) != 0 {
		t.Error("model called without text")
	}
}

func TestReadAndWriteActiveDocument(t *testing.T) {
	e := newEnv(t)
	e.desk.clipboard = strings.Repeat("a", 2500)

	if out := e.invoke(t, ReadActiveDocument, Args{}); len(out) != 2000 {
		t.Errorf("read returned %d chars", len(out))
	}

	out := e.invoke(t, WriteToDocument, Args{"text": "hello"})
	if out != "Wrote 5 characters to the active window." || e.desk.clipboard != "hello" {
		t.Errorf("write = %q, clipboard %q", out, e.desk.clipboard)
	}
}

func TestGetCurrentTime(t *testing.T) {
	e := newEnv(t)
	if out := e.invoke(t, GetCurrentTime, Args{}); out != "Monday, 12 October 2026, 14:05" {
		t.Errorf("out = %q", out)
	}
}

func TestOpenApplicationMapsNames(t *testing.T) {
	e := newEnv(t)

	e.invoke(t, OpenApplication, Args{"app_name": "Calculator"})
	e.invoke(t, OpenApplication, Args{"app_name": "editor"})
	e.invoke(t, OpenApplication, Args{"app_name": "blender"})

	want := []string{"gnome-calculator", "code", "blender"}
	if strings.Join(e.desk.launched, ",") != strings.Join(want, ",") {
		t.Errorf("launched = %v, want %v", e.desk.launched, want)
	}
}

func TestPlayMusic(t *testing.T) {
	e := newEnv(t)

	out := e.invoke(t, PlayMusic, Args{"query": "daft punk"})

	if out != "Playing 'daft punk' on Spotify." {
		t.Errorf("out = %q", out)
	}
	if len(e.desk.opened) != 1 || e.desk.opened[0] != "spotify:search:daft%20punk" {
		t.Errorf("opened = %v", e.desk.opened)
	}
	if len(e.desk.player) != 1 || e.desk.player[0][1] != "play" {
		t.Errorf("player = %v", e.desk.player)
	}
}

func TestCreateNotesDocument(t *testing.T) {
	e := newEnv(t)

	out := e.invoke(t, CreateNotesDocument, Args{"content": "buy milk", "filename": "Shop: list?"})

	if out != "Notes document 'Shop list.md' created and opened." {
		t.Errorf("out = %q", out)
	}
	body, err := os.ReadFile(filepath.Join(e.dir, "Shop list.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(body), "# Notes\n\nbuy milk\n") ||
		!strings.Contains(string(body), "Created by Enigma • 2026-10-12 14:05") {
		t.Errorf("body = %q", body)
	}
	if len(e.desk.opened) != 1 {
		t.Errorf("opened = %v", e.desk.opened)
	}
}

func TestCreateWordDocumentOpenFailure(t *testing.T) {
	e := newEnv(t)
	e.desk.openErr = errors.New("xdg-open: not found")

	out := e.invoke(t, CreateWordDocument, Args{"content": "report body"})

	want := "The document 'Document.md' was created at " + filepath.Join(e.dir, "Document.md") + "."
	if out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestCreateResearchDocument(t *testing.T) {
	e := newEnv(t)
	e.search.out = "Source: NASA\nInfo: Apollo 11 landed in 1969.\n\n"
	e.model.reply = "## Landing\nApollo 11 landed on the Moon."

	out := e.invoke(t, CreateResearchDocument, Args{"topic": "apollo program"})

	if out != "Research on 'apollo program' created and opened: Research.md" {
		t.Errorf("out = %q", out)
	}
	body, err := os.ReadFile(filepath.Join(e.dir, "Research.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(body), "# Apollo program\n") || !strings.Contains(string(body), "Apollo 11 landed on the Moon.") {
		t.Errorf("body = %q", body)
	}
	if !strings.Contains(e.model.prompts[0], "Apollo 11 landed in 1969.") {
		t.Error("search data missing from summary prompt")
	}
}

func TestCreateResearchDocumentNoResults(t *testing.T) {
	e := newEnv(t)
	e.search.err = ErrNoResults

	out := e.invoke(t, CreateResearchDocument, Args{"topic": "xyzzy"})

	if out != "Could not find information about 'xyzzy'. Try another topic." {
		t.Errorf("out = %q", out)
	}
}

func TestCreateDocumentation(t *testing.T) {
	e := newEnv(t)

	out := e.invoke(t, CreateDocumentation, Args{"file_path": "docs/report", "content": "hello"})

	path := filepath.Join(e.dir, "docs", "report.txt")
	if out != "The file '"+path+"' has been created!" {
		t.Errorf("out = %q", out)
	}
	if b, err := os.ReadFile(path); err != nil || string(b) != "hello" {
		t.Errorf("file = %q, %v", b, err)
	}

	e.invoke(t, CreateDocumentation, Args{"file_path": "readme.md", "content": "#"})
	if _, err := os.Stat(filepath.Join(e.dir, "readme.md")); err != nil {
		t.Error(err)
	}
}

func TestSearchWebTool(t *testing.T) {
	e := newEnv(t)

	if out := e.invoke(t, SearchWeb, Args{"query": "  "}); out != "No search term given." {
		t.Errorf("blank query = %q", out)
	}

	e.search.err = ErrNoResults
	if out := e.invoke(t, SearchWeb, Args{"query": "x"}); out != "Could not find information. Try another search term." {
		t.Errorf("no results = %q", out)
	}
}

func TestScreenTools(t *testing.T) {
	e := newEnv(t)

	out := e.invoke(t, TakeScreenshot, Args{})
	if !strings.HasPrefix(out, "Screenshot saved as "+filepath.Join(e.dir, "shots", "screenshot_")) {
		t.Errorf("out = %q", out)
	}

	if out := e.invoke(t, DescribeScreen, Args{}); out != "A terminal with Go code." {
		t.Errorf("describe = %q", out)
	}
	if !strings.HasPrefix(string(e.vision.png), "\x89PNG") {
		t.Error("vision model did not get the screenshot")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Meeting notes", "Meeting notes.md"},
		{"a/b\\c", "abc.md"},
		{"What? <now>|", "What now.md"},
		{"report.MD", "report.MD"},
		{"  ", "Notes.md"},
		{"..", "Notes.md"},
	}
	for _, tc := range tests {
		if got := SanitizeFilename(tc.in, "Notes", ".md"); got != tc.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
