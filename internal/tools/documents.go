package tools

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type documents struct {
	dir      string
	desk     Automation
	model    Model
	search   Searcher
	language string
	now      func() time.Time
}

type documentArgs struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

func (a documentArgs) Validate() error {
	return required("content", a.Content)
}

type notesArgs struct {
	Content  string `json:"content"`
	Filename string `json:"filename"`
}

func (a notesArgs) Validate() error {
	return required("content", a.Content)
}

type researchArgs struct {
	Topic    string `json:"topic"`
	Filename string `json:"filename"`
}

func (a researchArgs) Validate() error {
	return required("topic", a.Topic)
}

type textFileArgs struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

func (a textFileArgs) Validate() error {
	return required("file_path", a.FilePath)
}

var filenameReplacer = strings.NewReplacer("?", "", ":", "", "|", "", "<", "", ">", "", "/", "", "\\", "", "*", "", `"`, "")

// SanitizeFilename strips characters that are unsafe in file names and adds
// ext unless the name already carries it.
func SanitizeFilename(name, fallback, ext string) string {
	name = strings.TrimSpace(filenameReplacer.Replace(name))
	if name == "" || name == "." || name == ".." {
		name = fallback
	}
	if !strings.EqualFold(filepath.Ext(name), ext) {
		name += ext
	}
	return name
}

// DocumentsDir returns the first writable directory among preferred,
// ~/Documents, ~/Desktop and ~, falling back to the working directory.
func DocumentsDir(preferred string) string {
	candidates := []string{preferred}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, "Documents"),
			filepath.Join(home, "Desktop"),
			home,
		)
	}

	for _, dir := range candidates {
		if dir != "" && writable(dir) {
			return dir
		}
	}
	return "."
}

func writable(dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	f, err := os.CreateTemp(dir, ".enigma-*")
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(f.Name())
	return true
}

func (d *documents) save(name, body string) (string, error) {
	path := filepath.Join(DocumentsDir(d.dir), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	log.Info("Document saved", "path", path)
	return path, nil
}

// open shows the document to the user. A missing opener is not a failure;
// the file is already on disk.
func (d *documents) open(ctx context.Context, path string) bool {
	if err := d.desk.Open(ctx, path); err != nil {
		log.Warn("Could not open document", "path", path, "err", err)
		return false
	}
	return true
}

func (d *documents) stamp() string {
	return d.now().Format("2006-01-02 15:04")
}

func (d *documents) createDocument(ctx context.Context, in documentArgs) (string, error) {
	name := SanitizeFilename(in.Filename, "Document", ".md")
	body := fmt.Sprintf("# Document created by Enigma\n\n%s\n", in.Content)

	path, err := d.save(name, body)
	if err != nil {
		return "", err
	}
	if !d.open(ctx, path) {
		return fmt.Sprintf("The document '%s' was created at %s.", name, path), nil
	}
	return fmt.Sprintf("The document '%s' was created and opened.", name), nil
}

func (d *documents) createNotes(ctx context.Context, in notesArgs) (string, error) {
	name := SanitizeFilename(in.Filename, "Notes", ".md")
	body := fmt.Sprintf("# Notes\n\n%s\n\n---\n\nCreated by Enigma • %s\n", in.Content, d.stamp())

	path, err := d.save(name, body)
	if err != nil {
		return "", err
	}
	if !d.open(ctx, path) {
		return fmt.Sprintf("Notes document '%s' created at %s.", name, path), nil
	}
	return fmt.Sprintf("Notes document '%s' created and opened.", name), nil
}

func (d *documents) createResearch(ctx context.Context, in researchArgs) (string, error) {
	topic := strings.TrimSpace(in.Topic)
	name := SanitizeFilename(in.Filename, "Research", ".md")

	data, err := d.search.Search(ctx, topic)
	if errors.Is(err, ErrNoResults) {
		return fmt.Sprintf("Could not find information about '%s'. Try another topic.", topic), nil
	}
	if err != nil {
		return "", fmt.Errorf("search: %w", err)
	}

	summary, err := d.model.Complete(ctx, researchPrompt(topic, data, d.language))
	if err != nil {
		return "", fmt.Errorf("summarise: %w", err)
	}

	body := fmt.Sprintf("# %s\n\nResearch done: %s\n\n%s\n\n%s\n\nCreated by Enigma Research Assistant\n",
		capitalize(topic), d.stamp(), strings.TrimSpace(summary), strings.Repeat("=", 50))

	path, err := d.save(name, body)
	if err != nil {
		return "", err
	}
	d.open(ctx, path)

	return fmt.Sprintf("Research on '%s' created and opened: %s", topic, name), nil
}

func (d *documents) createTextFile(_ context.Context, in textFileArgs) (string, error) {
	path := filepath.Clean(strings.TrimSpace(in.FilePath))
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".txt" && ext != ".md" {
		path += ".txt"
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(DocumentsDir(d.dir), path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(in.Content), 0o644); err != nil {
		return "", err
	}

	return fmt.Sprintf("The file '%s' has been created!", path), nil
}

func researchPrompt(topic, data, language string) string {
	return fmt.Sprintf(`You are an expert at summarising information.

Your task: summarise the following information about '%s' clearly and in an organised way.

RULES:
1. Write in %s
2. Organise it in sections with headings
3. Make it easy to read and well structured
4. Keep all important information
5. Only the summary, NOTHING ELSE

INFORMATION TO SUMMARISE:
%s

SUMMARY:`, topic, language, data)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
