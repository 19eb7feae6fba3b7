package agent

import (
	"encoding/json"
	"errors"
	"strings"

	"enigma/internal/tools"
)

var (
	ErrNotToolShaped = errors.New("reply is not tool-shaped")
	ErrMalformed     = errors.New("reply holds no usable JSON object")
)

// ParsedCommand is a tool selection lifted out of a model reply. Name is the
// raw name before alias correction.
type ParsedCommand struct {
	Name string
	Args tools.Args
}

// Parse extracts a tool call from free-form model text. A reply counts as a
// tool call only if it contains '{' and "name"; the span from the first '{'
// to the last '}' must then decode as an object with a string name.
func Parse(raw string) (ParsedCommand, error) {
	if !strings.Contains(raw, "{") || !strings.Contains(raw, "name") {
		return ParsedCommand{}, ErrNotToolShaped
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if end < start {
		return ParsedCommand{}, ErrMalformed
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &obj); err != nil {
		return ParsedCommand{}, ErrMalformed
	}

	name, ok := obj["name"].(string)
	if !ok || strings.TrimSpace(name) == "" {
		return ParsedCommand{}, ErrMalformed
	}

	return ParsedCommand{
		Name: strings.TrimSpace(name),
		Args: pickArgs(obj),
	}, nil
}

// pickArgs prefers a non-empty "arguments" object, then "parameters", and
// never returns nil. OpenAI-style models send "arguments" as a JSON string.
func pickArgs(obj map[string]any) tools.Args {
	if args := asObject(obj["arguments"]); len(args) > 0 {
		return args
	}
	if args := asObject(obj["parameters"]); args != nil {
		return args
	}
	return tools.Args{}
}

func asObject(v any) tools.Args {
	switch x := v.(type) {
	case map[string]any:
		return tools.Args(x)
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(x), &m); err == nil && m != nil {
			return tools.Args(m)
		}
	}
	return nil
}
