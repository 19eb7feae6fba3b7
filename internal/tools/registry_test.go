package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stub struct{ id ToolID }

func (s stub) ID() ToolID                                   { return s.id }
func (s stub) Description() string                          { return "does " + string(s.id) }
func (s stub) Usage() string                                { return "{}" }
func (s stub) Invoke(context.Context, Args) (string, error) { return "", nil }

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	if _, err := NewRegistry(stub{"a"}, stub{"b"}, stub{"a"}); err == nil {
		t.Fatal("expected duplicate error")
	}
	if _, err := NewRegistry(stub{""}); err == nil {
		t.Fatal("expected empty id error")
	}
}

func TestRegistryOrderAndCatalog(t *testing.T) {
	reg, err := NewRegistry(stub{"b"}, stub{"a"})
	if err != nil {
		t.Fatal(err)
	}

	ids := reg.IDs()
	if len(ids) != 2 || ids[0] != "b" || ids[1] != "a" {
		t.Errorf("IDs = %v", ids)
	}
	if got, want := reg.Catalog(), "- \"b\": does b {}\n- \"a\": does a {}\n"; got != want {
		t.Errorf("Catalog = %q, want %q", got, want)
	}
	if _, ok := reg.Lookup("c"); ok {
		t.Error("Lookup(c) found a tool")
	}
}

func TestAliasesResolve(t *testing.T) {
	reg, err := NewRegistry(stub{SearchWeb}, stub{ImproveActiveDocument}, stub{OpenApplication})
	if err != nil {
		t.Fatal(err)
	}
	al, err := NewAliases(reg, map[string]ToolID{"google": SearchWeb})
	if err != nil {
		t.Fatal(err)
	}

	tests := map[string]ToolID{
		"Fakta":            SearchWeb,
		"edit_document":    ImproveActiveDocument,
		"open_app":         OpenApplication,
		"google":           SearchWeb,
		"search_web":       SearchWeb,
		"open_application": OpenApplication,
	}
	for name, want := range tests {
		got, ok := al.Resolve(name)
		if !ok || got != want {
			t.Errorf("Resolve(%q) = %q, %v; want %q", name, got, ok, want)
		}
	}

	for _, name := range []string{"fakta", "launch_rocket", ""} {
		if got, ok := al.Resolve(name); ok {
			t.Errorf("Resolve(%q) = %q, want no match", name, got)
		}
	}
}

func TestCheckAliasesReportsDanglingTargets(t *testing.T) {
	reg, err := NewRegistry(stub{SearchWeb})
	if err != nil {
		t.Fatal(err)
	}

	err = CheckAliases(reg, map[string]ToolID{"Fakta": SearchWeb, "x": "nope", "open_app": OpenApplication})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "open_app->open_application, x->nope") {
		t.Errorf("err = %v", err)
	}

	if _, err := NewAliases(reg, nil); err == nil {
		t.Error("NewAliases accepted defaults pointing at unregistered tools")
	}
}

func TestDefaultAliasesMatchDefaultRegistry(t *testing.T) {
	reg, err := Default(Deps{Desktop: &fakeDesk{}, Model: &fakeModel{}, Search: &fakeSearch{}})
	if err != nil {
		t.Fatal(err)
	}
	if reg.Len() != 13 {
		t.Errorf("default registry has %d tools, want 13", reg.Len())
	}
	if err := CheckAliases(reg, DefaultAliases); err != nil {
		t.Fatal(err)
	}
}

func TestDecodeArgs(t *testing.T) {
	var in struct {
		Query string `json:"query"`
		Count string `json:"count"`
		Flag  string `json:"flag"`
	}
	err := DecodeArgs(Args{"query": "x", "count": float64(5), "flag": true, "extra": nil}, &in)
	if err != nil {
		t.Fatal(err)
	}
	if in.Query != "x" || in.Count != "5" || in.Flag != "true" {
		t.Errorf("decoded %+v", in)
	}
}

func TestTypedRejectsBadArguments(t *testing.T) {
	called := false
	tool := Typed(OpenApplication, "", "", func(context.Context, appArgs) (string, error) {
		called = true
		return "ok", nil
	})

	for _, args := range []Args{{}, {"app_name": "  "}, {"app_name": []any{"x"}}} {
		_, err := tool.Invoke(context.Background(), args)
		var aerr *ArgumentError
		if !errors.As(err, &aerr) || aerr.Tool != OpenApplication {
			t.Errorf("Invoke(%v) err = %v, want *ArgumentError", args, err)
		}
	}
	if called {
		t.Error("tool ran with invalid arguments")
	}

	out, err := tool.Invoke(context.Background(), Args{"app_name": "spotify"})
	if err != nil || out != "ok" {
		t.Errorf("Invoke = %q, %v", out, err)
	}
}
