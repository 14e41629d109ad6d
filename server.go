package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"i4.energy/across/cellmon/modem"
	"i4.energy/across/cellmon/trace"
	"i4.energy/across/cellmon/viewmodel"
)

// Executor runs AT commands on a live modem.
type Executor interface {
	Exec(ctx context.Context, cmd string) (string, error)
}

// Server exposes the decoded state over HTTP. Modem is nil in replay
// mode.
type Server struct {
	Logger *slog.Logger
	Store  *viewmodel.Store
	Modem  Executor
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("GET /commands", s.handleCommands)
	mux.HandleFunc("GET /trace", s.handleTrace)
	mux.HandleFunc("POST /at", s.handleAT)
	mux.HandleFunc("POST /session", s.handleSession)
	mux.ServeHTTP(w, r)
}

func (s *Server) sendJSON(w http.ResponseWriter, v any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("Failed to write response", "error", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	s.sendJSON(w, ErrorResponse{Message: message}, statusCode)
}

// handleState returns the current state, or the state rewound to the
// RFC 3339 time given by the "at" query parameter.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	type StateResponse struct {
		Session uuid.UUID       `json:"session"`
		At      *time.Time      `json:"at,omitempty"`
		State   viewmodel.State `json:"state"`
	}

	resp := StateResponse{Session: s.Store.Session()}
	if at := r.URL.Query().Get("at"); at != "" {
		t, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			s.sendError(w, "invalid 'at' time: "+err.Error(), http.StatusBadRequest)
			return
		}
		resp.At = &t
		resp.State = s.Store.StateAt(t)
	} else {
		resp.State = s.Store.Snapshot()
	}
	s.sendJSON(w, resp, http.StatusOK)
}

// handleCommands lists the registered commands and their documentation.
func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	type CommandInfo struct {
		Command       string `json:"command"`
		Documentation string `json:"documentation,omitempty"`
	}

	registry := s.Store.Registry()
	var infos []CommandInfo
	for _, cmd := range registry.Commands() {
		proc, _ := registry.Lookup(cmd)
		infos = append(infos, CommandInfo{Command: cmd, Documentation: proc.Documentation})
	}
	s.sendJSON(w, infos, http.StatusOK)
}

// handleTrace exports the packet log of the session in the codec named
// by the "codec" query parameter, JSON Lines by default.
func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("codec")
	if name == "" {
		name = "jsonl"
	}
	codec, err := trace.NewCodec(name)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	contentType := "application/x-ndjson"
	if codec.Name() == "yaml" {
		contentType = "application/yaml"
	}
	w.Header().Set("Content-Type", contentType)
	if err := codec.Encode(w, s.Store.Packets()); err != nil {
		s.Logger.Error("Failed to export trace", "error", err)
	}
}

// handleAT executes one AT command on the live modem
func (s *Server) handleAT(w http.ResponseWriter, r *http.Request) {
	if s.Modem == nil {
		s.sendError(w, "no modem attached in replay mode", http.StatusServiceUnavailable)
		return
	}

	type ATRequest struct {
		Command string `json:"command"`
	}
	type ATResponse struct {
		Response string `json:"response"`
		Message  string `json:"message,omitempty"`
	}

	var req ATRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Command == "" {
		s.sendError(w, "'command' field is required", http.StatusBadRequest)
		return
	}

	response, err := s.Modem.Exec(r.Context(), req.Command)
	switch {
	case errors.Is(err, modem.ErrCommandFailed):
		s.Logger.Info("AT command failed", "command", req.Command, "response", response)
		s.sendJSON(w, ATResponse{Response: response, Message: err.Error()}, http.StatusUnprocessableEntity)
	case err != nil:
		s.Logger.Error("Failed to execute AT command", "error", err, "command", req.Command)
		s.sendError(w, err.Error(), http.StatusInternalServerError)
	default:
		s.sendJSON(w, ATResponse{Response: response}, http.StatusOK)
	}
}

// handleSession discards the packet log and starts a new session
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	type SessionResponse struct {
		Session uuid.UUID `json:"session"`
	}
	s.sendJSON(w, SessionResponse{Session: s.Store.Reset()}, http.StatusOK)
}
