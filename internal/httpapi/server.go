package httpapi

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rollinit/rollinit/internal/errors"
	sessionsvc "github.com/rollinit/rollinit/internal/services/session"
	"github.com/rollinit/rollinit/internal/ws"
)

// Server exposes the small REST surface used before a websocket is
// established: creating a session and probing one by join code.
type Server struct {
	sessions sessionsvc.Service
	hub      *ws.Hub
	router   *mux.Router
}

// ServerConfig holds configuration for the HTTP server
type ServerConfig struct {
	SessionService sessionsvc.Service
	Hub            *ws.Hub
}

// NewServer creates a new HTTP server
func NewServer(cfg *ServerConfig) *Server {
	if cfg.SessionService == nil {
		panic("session service is required")
	}
	if cfg.Hub == nil {
		panic("hub is required")
	}

	s := &Server{
		sessions: cfg.SessionService,
		hub:      cfg.Hub,
		router:   mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/api/sessions", s.handleCreateSession).Methods(http.MethodPost)
	s.router.HandleFunc("/api/sessions/{joinCode}", s.handleGetSession).Methods(http.MethodGet)
	s.router.HandleFunc("/api/sessions/{joinCode}/validate-password", s.handleValidatePassword).Methods(http.MethodPost)
	s.router.HandleFunc("/ws", s.hub.ServeWS)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
	JoinCode  string `json:"join_code"`
	DMToken   string `json:"dm_token"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.CreateSession(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createSessionResponse{
		SessionID: sess.ID,
		JoinCode:  sess.JoinCode,
		DMToken:   sess.DMToken,
	})
}

type sessionInfoResponse struct {
	JoinCode         string `json:"join_code"`
	IsLocked         bool   `json:"is_locked"`
	RequiresPassword bool   `json:"requires_password"`
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	joinCode := mux.Vars(r)["joinCode"]
	sess, err := s.sessions.GetByJoinCode(r.Context(), joinCode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionInfoResponse{
		JoinCode:         sess.JoinCode,
		IsLocked:         sess.IsLocked,
		RequiresPassword: sess.Password != "",
	})
}

type validatePasswordRequest struct {
	Password string `json:"password"`
}

type validatePasswordResponse struct {
	Valid bool `json:"valid"`
}

func (s *Server) handleValidatePassword(w http.ResponseWriter, r *http.Request) {
	joinCode := mux.Vars(r)["joinCode"]
	var req validatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Validation("malformed request body"))
		return
	}
	valid, err := s.sessions.ValidatePassword(r.Context(), joinCode, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, validatePasswordResponse{Valid: valid})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.CodeNotFound:
		status = http.StatusNotFound
	case errors.CodeValidation:
		status = http.StatusBadRequest
	case errors.CodePermissionDenied:
		status = http.StatusForbidden
	case errors.CodeAlreadyExists:
		status = http.StatusConflict
	case errors.CodeUnavailable:
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[http] encode response: %v", err)
	}
}
