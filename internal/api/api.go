// Package api is the HTTP control surface of the daemon.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	log "log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"enigma/internal/agent"
	"enigma/internal/assistant"
)

const maxBody = 1 << 16

// Assistant is the part of the voice session the API drives.
type Assistant interface {
	Submit(ctx context.Context, text, source string) (agent.Result, error)
	Trigger(ctx context.Context) (agent.Result, error)
	Pause()
	Resume()
	Paused() bool
	Busy() bool
	AudioEnabled() bool
}

type Server struct {
	assistant Assistant
	history   *agent.History
}

func New(a Assistant, history *agent.History) *Server {
	return &Server{assistant: a, history: history}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(logging)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/command", s.handleCommand)
		r.Post("/trigger", s.handleTrigger)
		r.Post("/listening/{state}", s.handleListening)
		r.Get("/history", s.handleHistory)
	})

	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("HTTP listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	}
}

type commandRequest struct {
	Text string `json:"text"`
}

type commandResponse struct {
	Output string `json:"output"`
	Tool   string `json:"tool,omitempty"`
}

type statusResponse struct {
	OK       bool `json:"ok"`
	Busy     bool `json:"busy"`
	Paused   bool `json:"paused"`
	Audio    bool `json:"audio"`
	HistoryN int  `json:"history"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		OK:       true,
		Busy:     s.assistant.Busy(),
		Paused:   s.assistant.Paused(),
		Audio:    s.assistant.AudioEnabled(),
		HistoryN: s.history.Len(),
	})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json", "request body must be {\"text\": ...}")
		return
	}

	res, err := s.assistant.Submit(r.Context(), req.Text, "http")
	if errors.Is(err, assistant.ErrEmptyCommand) {
		writeErr(w, http.StatusBadRequest, "empty_command", "text is required")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "dispatch_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, commandResponse{Output: res.Output, Tool: string(res.Tool)})
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	res, err := s.assistant.Trigger(r.Context())
	switch {
	case errors.Is(err, assistant.ErrNoAudio):
		writeErr(w, http.StatusConflict, "audio_disabled", err.Error())
	case errors.Is(err, assistant.ErrNothingHeard):
		writeErr(w, http.StatusUnprocessableEntity, "nothing_heard", err.Error())
	case err != nil:
		writeErr(w, http.StatusInternalServerError, "trigger_failed", err.Error())
	default:
		writeJSON(w, http.StatusOK, commandResponse{Output: res.Output, Tool: string(res.Tool)})
	}
}

func (s *Server) handleListening(w http.ResponseWriter, r *http.Request) {
	switch strings.ToLower(chi.URLParam(r, "state")) {
	case "pause":
		s.assistant.Pause()
	case "resume":
		s.assistant.Resume()
	default:
		writeErr(w, http.StatusNotFound, "unknown_state", "state must be pause or resume")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": s.assistant.Paused()})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries := s.history.Snapshot()
	if entries == nil {
		entries = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"history": entries})
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func writeErr(w http.ResponseWriter, code int, errCode, message string) {
	writeJSON(w, code, map[string]apiError{"error": {Code: errCode, Message: message}})
}

func logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		log.Info("HTTP request",
			"req", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"took", time.Since(start),
		)
	})
}
