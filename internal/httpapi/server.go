// Package httpapi exposes the orchestrator over HTTP: a JSON request/response
// API plus a server-sent-events stream for task transitions, signals, and
// artifact writes.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/loomworks/loom/internal/orchestrator"
	"github.com/loomworks/loom/internal/signalbus"
	"github.com/loomworks/loom/pkg/models"
)

// defaultMaxRequestBodyBytes is the default limit for request body size (1 MiB) to prevent OOM.
const defaultMaxRequestBodyBytes = 1 << 20

// Server is the HTTP surface over one orchestrator.
type Server struct {
	orch *orchestrator.Orchestrator
	hub  *SSEHub
}

// NewServer wires the API around the orchestrator and starts pumping its
// event stream into the SSE hub.
func NewServer(orch *orchestrator.Orchestrator) *Server {
	s := &Server{orch: orch, hub: NewSSEHub()}
	go func() {
		for ev := range orch.Events() {
			s.hub.PublishJSON(ev)
		}
	}()
	return s
}

// PublishEvent pushes an out-of-band event (e.g. a workspace watcher
// notification) onto the SSE stream.
func (s *Server) PublishEvent(v any) {
	s.hub.PublishJSON(v)
}

// Handler returns the fully routed and middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"ok": true})
	})

	mux.HandleFunc("POST /api/requirements", s.handleSubmit)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/tasks", s.handleTasks)
	mux.HandleFunc("GET /api/agents", s.handleAgents)
	mux.HandleFunc("GET /api/signals", s.handleSignals)
	mux.HandleFunc("POST /api/decisions", s.handleDecide)
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)
	mux.HandleFunc("POST /api/project/reset", s.handleReset)
	mux.HandleFunc("GET /api/archive", s.handleArchive)
	mux.HandleFunc("GET /api/workspace/files", s.handleListFiles)
	mux.HandleFunc("GET /api/workspace/files/{path...}", s.handleReadFile)
	mux.Handle("GET /api/events", s.hub.Handler())

	return corsMiddleware(bodyLimitMiddleware(defaultMaxRequestBodyBytes, mux))
}

type submitRequest struct {
	Text     string `json:"text"`
	Priority int    `json:"priority"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	groupID, err := s.orch.Submit(req.Text, req.Priority)
	if err != nil {
		if errors.Is(err, orchestrator.ErrEmptyRequirement) {
			writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{"task_group_id": groupID})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.orch.Status())
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.orch.Tasks(r.URL.Query().Get("group_id"))
	if err != nil {
		if errors.Is(err, orchestrator.ErrUnknownGroup) {
			writeJSONError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	writeJSON(w, map[string]any{"tasks": tasks})
}

func (s *Server) handleAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{"agents": s.orch.Agents()})
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	filter := models.SignalType(r.URL.Query().Get("type"))
	if filter != "" && !filter.Valid() {
		writeJSONError(w, http.StatusBadRequest, "unknown signal type")
		return
	}
	signals := s.orch.Bus().List(filter)
	if signals == nil {
		signals = []models.Signal{}
	}
	writeJSON(w, map[string]any{"signals": signals})
}

type decideRequest struct {
	SignalID     string `json:"signal_id"`
	ChosenOption string `json:"chosen_option"`
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SignalID == "" || req.ChosenOption == "" {
		writeJSONError(w, http.StatusUnprocessableEntity, "signal_id and chosen_option are required")
		return
	}

	sig, err := s.orch.ResolveDecision(req.SignalID, req.ChosenOption)
	if err != nil {
		switch {
		case errors.Is(err, signalbus.ErrUnknownSignal):
			writeJSONError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, signalbus.ErrAlreadyResolved):
			writeJSONError(w, http.StatusConflict, err.Error())
		default:
			writeJSONError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, sig)
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.orch.ComputeMetrics())
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	archivedTo, err := s.orch.Reset()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"archived_to": archivedTo})
}

func (s *Server) handleArchive(w http.ResponseWriter, _ *http.Request) {
	archives, err := s.orch.Workspace().Archives()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"archives": archives})
}

func (s *Server) handleListFiles(w http.ResponseWriter, _ *http.Request) {
	artifacts, err := s.orch.Artifacts()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"files": artifacts})
}

func (s *Server) handleReadFile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("path")
	content, err := s.orch.Workspace().ReadArtifact(name)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "no such artifact")
		return
	}
	writeJSON(w, map[string]any{
		"name":     name,
		"content":  content,
		"runnable": s.orch.ArtifactRunnable(name),
	})
}

// limitBody wraps r.Body with http.MaxBytesReader so handlers cannot read more than maxBytes.
func limitBody(w http.ResponseWriter, r *http.Request, maxBytes int64) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
}

// bodyLimitMiddleware limits request body size for POST, PUT, PATCH to prevent OOM.
func bodyLimitMiddleware(maxBytes int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			limitBody(w, r, maxBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware sets permissive CORS headers for browser dashboards served
// from another origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// writeJSONError sends a JSON body {"error": "message"} with the given status code.
func writeJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message})
}
