package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Validator is implemented by argument structs that have required fields.
type Validator interface {
	Validate() error
}

// ArgumentError means the model's arguments did not fit the tool. The tool
// itself was never run.
type ArgumentError struct {
	Tool ToolID
	Err  error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: invalid arguments: %v", e.Tool, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// DecodeArgs decodes the model's argument object into dst. Argument structs
// carry string fields only, so scalar values are stringified first; models
// regularly send 5 where "5" was asked for.
func DecodeArgs(args Args, dst any) error {
	flat := make(map[string]any, len(args))
	for k, v := range args {
		switch x := v.(type) {
		case nil:
			continue
		case float64:
			flat[k] = strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			flat[k] = strconv.FormatBool(x)
		default:
			flat[k] = v
		}
	}

	raw, err := json.Marshal(flat)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	if v, ok := dst.(Validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}

	return nil
}

type typedTool[T any] struct {
	id    ToolID
	desc  string
	usage string
	run   func(context.Context, T) (string, error)
}

// Typed builds a Tool whose arguments are decoded into T before run is called.
// A pointer to T is checked for Validator.
func Typed[T any](id ToolID, desc, usage string, run func(context.Context, T) (string, error)) Tool {
	return &typedTool[T]{id: id, desc: desc, usage: usage, run: run}
}

func (t *typedTool[T]) ID() ToolID          { return t.id }
func (t *typedTool[T]) Description() string { return t.desc }
func (t *typedTool[T]) Usage() string       { return t.usage }

func (t *typedTool[T]) Invoke(ctx context.Context, args Args) (string, error) {
	var in T
	if err := DecodeArgs(args, &in); err != nil {
		return "", &ArgumentError{Tool: t.id, Err: err}
	}
	return t.run(ctx, in)
}

// NoArgs is the argument type of tools that take nothing.
type NoArgs struct{}

func required(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", name)
	}
	return nil
}
