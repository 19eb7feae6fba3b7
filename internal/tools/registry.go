package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type ToolID string

const (
	ImproveActiveDocument  ToolID = "improve_active_document"
	ReadActiveDocument     ToolID = "read_active_document"
	WriteToDocument        ToolID = "write_to_document"
	GetCurrentTime         ToolID = "get_current_time"
	OpenApplication        ToolID = "open_application"
	PlayMusic              ToolID = "play_music"
	CreateWordDocument     ToolID = "create_word_document"
	CreateNotesDocument    ToolID = "create_notes_document"
	CreateResearchDocument ToolID = "create_research_document"
	SearchWeb              ToolID = "search_web"
	CreateDocumentation    ToolID = "create_documentation"
	TakeScreenshot         ToolID = "take_screenshot"
	DescribeScreen         ToolID = "describe_screen"
)

var ErrUnknownTool = errors.New("unknown tool")

// Args is the argument object exactly as the model produced it.
type Args map[string]any

// Tool is a named capability the model can select.
type Tool interface {
	ID() ToolID
	// Description is shown to the model in the tool catalog.
	Description() string
	// Usage is a complete JSON call example, e.g. {"name": "x", "parameters": {}}.
	Usage() string
	Invoke(ctx context.Context, args Args) (string, error)
}

// Registry is fixed after construction and safe for concurrent reads.
type Registry struct {
	order []ToolID
	byID  map[ToolID]Tool
}

func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{
		order: make([]ToolID, 0, len(tools)),
		byID:  make(map[ToolID]Tool, len(tools)),
	}

	for _, t := range tools {
		if t == nil {
			return nil, errors.New("nil tool")
		}
		id := t.ID()
		if id == "" {
			return nil, errors.New("tool with empty id")
		}
		if _, dup := r.byID[id]; dup {
			return nil, fmt.Errorf("duplicate tool %q", id)
		}
		r.byID[id] = t
		r.order = append(r.order, id)
	}

	return r, nil
}

func (r *Registry) Lookup(id ToolID) (Tool, bool) {
	t, ok := r.byID[id]
	return t, ok
}

func (r *Registry) Has(id ToolID) bool {
	_, ok := r.byID[id]
	return ok
}

// IDs returns tool ids in registration order.
func (r *Registry) IDs() []ToolID {
	return append([]ToolID(nil), r.order...)
}

func (r *Registry) Len() int {
	return len(r.order)
}

// Catalog renders one line per tool for the instruction block.
func (r *Registry) Catalog() string {
	var b strings.Builder
	for _, id := range r.order {
		t := r.byID[id]
		fmt.Fprintf(&b, "- %q: %s %s\n", id, t.Description(), t.Usage())
	}
	return b.String()
}
