// Package gateway exposes the agent loop over HTTP: one-shot runs, an
// SSE streaming variant, tool discovery, and health.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cognos-ai/cognos/internal/agent"
	"github.com/cognos-ai/cognos/internal/memory"
	"github.com/cognos-ai/cognos/internal/tools"
)

// defaultUserID is used when the caller supplies no X-User-ID header.
const defaultUserID = "local"

// Server is the HTTP surface over the agent loop.
type Server struct {
	loop      *agent.Loop
	registry  *tools.Registry
	store     *memory.Store
	authToken string
	httpSrv   *http.Server
}

// Options configures a Server. Store may be nil; run telemetry is then
// not persisted.
type Options struct {
	Loop      *agent.Loop
	Registry  *tools.Registry
	Store     *memory.Store
	AuthToken string
}

// NewServer builds a server with its routes registered.
func NewServer(opts Options) *Server {
	s := &Server{
		loop:      opts.Loop,
		registry:  opts.Registry,
		store:     opts.Store,
		authToken: opts.AuthToken,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /tools", s.auth(s.handleTools))
	mux.HandleFunc("POST /agent/run", s.auth(s.handleRun))
	mux.HandleFunc("POST /agent/stream", s.auth(s.handleStream))
	s.httpSrv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the underlying handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// ListenAndServe serves on addr until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpSrv.Addr = addr

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpSrv.ListenAndServe()
	}()
	slog.Info("Gateway listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

// auth wraps a handler with optional bearer-token authentication.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken != "" {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if got != s.authToken {
				writeError(w, http.StatusUnauthorized, "invalid or missing token")
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": s.registry.Specs()})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	req, userID, ok := s.decodeRunRequest(w, r)
	if !ok {
		return
	}

	resp := s.loop.Run(r.Context(), userID, req)
	s.recordRun(userID, req, resp)
	writeJSON(w, http.StatusOK, resp)
}

// handleStream runs the request to completion, then emits one SSE event
// per step, one per tool trace, the final answer, and a done marker, in
// transcript order.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	req, userID, ok := s.decodeRunRequest(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	resp := s.loop.Run(r.Context(), userID, req)
	s.recordRun(userID, req, resp)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	emit := func(payload map[string]any) {
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	for _, step := range resp.Steps {
		emit(map[string]any{"step": step})
	}
	for _, tt := range resp.ToolTraces {
		emit(map[string]any{"tool_trace": tt})
	}
	emit(map[string]any{"final": resp.Answer})
	emit(map[string]any{"done": true})
}

func (s *Server) decodeRunRequest(w http.ResponseWriter, r *http.Request) (agent.RunRequest, string, bool) {
	var req agent.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return req, "", false
	}
	if err := req.Validate(s.loop.Policy()); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return req, "", false
	}

	userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if userID == "" {
		userID = defaultUserID
	}
	return req, userID, true
}

// recordRun persists one task event per completed run (best-effort).
func (s *Server) recordRun(userID string, req agent.RunRequest, resp agent.RunResponse) {
	if s.store == nil {
		return
	}
	outcome := "agent_run_completed"
	status := "success"
	if !resp.OK {
		outcome = "agent_run_failed"
		status = "error"
	}
	traceID, _ := resp.DecisionTrace["trace_id"].(string)
	err := s.store.WriteTaskEvent(memory.TaskEvent{
		UserID:    userID,
		TraceID:   traceID,
		Intent:    "agent_run",
		UserInput: req.Prompt,
		Outcome:   outcome,
		Status:    status,
		Extra: map[string]any{
			"answer":         resp.Answer,
			"error":          resp.Error,
			"steps_count":    len(resp.Steps),
			"tool_traces":    len(resp.ToolTraces),
			"decision_trace": resp.DecisionTrace,
		},
	})
	if err != nil {
		slog.Warn("Failed to record run", "user_id", userID, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
