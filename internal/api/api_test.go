package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"enigma/internal/agent"
	"enigma/internal/assistant"
	"enigma/internal/tools"
)

type fakeAssistant struct {
	paused    bool
	triggerFn func() (agent.Result, error)
	submitted []string
}

func (f *fakeAssistant) Submit(_ context.Context, text, source string) (agent.Result, error) {
	if strings.TrimSpace(text) == "" {
		return agent.Result{}, assistant.ErrEmptyCommand
	}
	f.submitted = append(f.submitted, source+":"+text)
	if text == "panic" {
		panic("tool exploded")
	}
	return agent.Result{Output: "Starting spotify.", Tool: tools.ToolID("open_application")}, nil
}

func (f *fakeAssistant) Trigger(context.Context) (agent.Result, error) { return f.triggerFn() }
func (f *fakeAssistant) Pause()                                        { f.paused = true }
func (f *fakeAssistant) Resume()                                       { f.paused = false }
func (f *fakeAssistant) Paused() bool                                  { return f.paused }
func (f *fakeAssistant) Busy() bool                                    { return false }
func (f *fakeAssistant) AudioEnabled() bool                            { return true }

func newServer(t *testing.T) (*httptest.Server, *fakeAssistant, *agent.History) {
	t.Helper()
	fa := &fakeAssistant{triggerFn: func() (agent.Result, error) {
		return agent.Result{}, assistant.ErrNothingHeard
	}}
	h := agent.NewHistory()
	srv := httptest.NewServer(New(fa, h).Handler())
	t.Cleanup(srv.Close)
	return srv, fa, h
}

func do(t *testing.T, method, url, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out map[string]any
	json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestCommand(t *testing.T) {
	srv, fa, _ := newServer(t)

	code, out := do(t, http.MethodPost, srv.URL+"/v1/command", `{"text":"open spotify"}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d, body %v", code, out)
	}
	if out["output"] != "Starting spotify." || out["tool"] != "open_application" {
		t.Errorf("body = %v", out)
	}
	if len(fa.submitted) != 1 || fa.submitted[0] != "http:open spotify" {
		t.Errorf("submitted = %q", fa.submitted)
	}
}

func TestCommandRejectsBadInput(t *testing.T) {
	srv, _, _ := newServer(t)

	for _, tc := range []struct {
		body string
		code string
	}{
		{`not json`, "invalid_json"},
		{`{"text":"  "}`, "empty_command"},
	} {
		status, out := do(t, http.MethodPost, srv.URL+"/v1/command", tc.body)
		if status != http.StatusBadRequest {
			t.Errorf("%s: status = %d", tc.body, status)
		}
		errObj, _ := out["error"].(map[string]any)
		if errObj["code"] != tc.code {
			t.Errorf("%s: body = %v", tc.body, out)
		}
	}
}

func TestPanicIsRecovered(t *testing.T) {
	srv, _, _ := newServer(t)

	status, _ := do(t, http.MethodPost, srv.URL+"/v1/command", `{"text":"panic"}`)
	if status != http.StatusInternalServerError {
		t.Errorf("status = %d", status)
	}
	if status, _ := do(t, http.MethodGet, srv.URL+"/healthz", ""); status != http.StatusOK {
		t.Errorf("server unhealthy after panic: %d", status)
	}
}

func TestTrigger(t *testing.T) {
	srv, fa, _ := newServer(t)

	status, _ := do(t, http.MethodPost, srv.URL+"/v1/trigger", "")
	if status != http.StatusUnprocessableEntity {
		t.Errorf("silence status = %d", status)
	}

	fa.triggerFn = func() (agent.Result, error) {
		return agent.Result{Output: "Done: 14:05"}, nil
	}
	status, out := do(t, http.MethodPost, srv.URL+"/v1/trigger", "")
	if status != http.StatusOK || out["output"] != "Done: 14:05" {
		t.Errorf("status %d body %v", status, out)
	}
}

func TestListening(t *testing.T) {
	srv, fa, _ := newServer(t)

	status, out := do(t, http.MethodPost, srv.URL+"/v1/listening/pause", "")
	if status != http.StatusOK || out["paused"] != true || !fa.paused {
		t.Errorf("pause: %d %v", status, out)
	}

	status, out = do(t, http.MethodPost, srv.URL+"/v1/listening/resume", "")
	if status != http.StatusOK || out["paused"] != false || fa.paused {
		t.Errorf("resume: %d %v", status, out)
	}

	if status, _ := do(t, http.MethodPost, srv.URL+"/v1/listening/sleep", ""); status != http.StatusNotFound {
		t.Errorf("unknown state status = %d", status)
	}
}

func TestHistoryAndHealth(t *testing.T) {
	srv, _, h := newServer(t)

	_, out := do(t, http.MethodGet, srv.URL+"/v1/history", "")
	if entries, ok := out["history"].([]any); !ok || len(entries) != 0 {
		t.Errorf("empty history = %v", out)
	}

	h.Append("User: hi", "AI: hello")
	_, out = do(t, http.MethodGet, srv.URL+"/v1/history", "")
	if entries, _ := out["history"].([]any); len(entries) != 2 || entries[1] != "AI: hello" {
		t.Errorf("history = %v", out)
	}

	status, out := do(t, http.MethodGet, srv.URL+"/healthz", "")
	if status != http.StatusOK || out["ok"] != true || out["history"] != float64(2) {
		t.Errorf("healthz = %d %v", status, out)
	}
}
