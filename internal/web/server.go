// ABOUTME: HTTP shell mapping the session event stream onto a chunked response body.
// ABOUTME: Provides POST /chat with a <keywords> footer, GET /session, and GET /healthz.

package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/2389/hearth-gateway/internal/backend"
	"github.com/2389/hearth-gateway/internal/session"
)

// sessionCookie carries the opaque session identifier between requests.
const sessionCookie = "hearth_session"

// ChatRequest is the JSON request body for POST /chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// SessionResponse is the JSON response for GET /session.
type SessionResponse struct {
	SessionID string `json:"session_id"`
}

// Server exposes the conversation core over plain HTTP.
type Server struct {
	registry *session.Registry
	logger   *slog.Logger
	mux      *http.ServeMux
}

// NewServer wires the handlers. Pass nil logger for default.
func NewServer(registry *session.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		registry: registry,
		logger:   logger.With("component", "web"),
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("/chat", s.handleChat)
	s.mux.HandleFunc("/session", s.handleSession)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleChat handles POST /chat requests.
// The visible reply is streamed verbatim as a chunked text/plain body; once
// the stream completes, a structured footer with the extracted markers is
// appended: \n\n<keywords>["END_CHAT"]</keywords>. Mid-stream failure
// terminates the body without a footer.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	req, err := parseChatRequest(r.Body)
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Check streaming support before sending (fail fast)
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.logger.Error("streaming not supported")
		s.sendJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	sessionID := s.ensureSessionCookie(w, r)
	sess := s.registry.Resolve(sessionID)

	events, err := sess.Submit(r.Context(), req.Message)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionBusy):
			s.sendJSONError(w, http.StatusConflict, "a reply is already being generated for this session")
		case errors.Is(err, backend.ErrUnavailable):
			s.logger.Error("backend unavailable", "error", err)
			s.sendJSONError(w, http.StatusBadGateway, "failed to get response from model")
		default:
			s.logger.Error("submit failed", "error", err)
			s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")

	s.streamEvents(w, flusher, events, sessionID)
}

// streamEvents writes visible text as it arrives, then the keyword footer.
func (s *Server) streamEvents(w http.ResponseWriter, flusher http.Flusher, events <-chan *session.StreamEvent, sessionID string) {
	for evt := range events {
		switch evt.Event {
		case session.EventText:
			if _, err := io.WriteString(w, evt.Text); err != nil {
				s.logger.Debug("client went away mid-stream", "session_id", sessionID)
				return
			}
			flusher.Flush()

		case session.EventDone:
			names := make([]string, 0, len(evt.Markers))
			for _, m := range evt.Markers {
				names = append(names, m.Name)
			}
			footer, err := json.Marshal(names)
			if err != nil {
				s.logger.Error("failed to encode keyword footer", "error", err)
				return
			}
			fmt.Fprintf(w, "\n\n<keywords>%s</keywords>", footer)
			flusher.Flush()
			return

		case session.EventError:
			// Headers are long gone; all we can do is cut the body short.
			s.logger.Warn("stream failed mid-reply", "session_id", sessionID, "error", evt.Error)
			return
		}
	}
}

// handleSession handles GET /session requests, issuing the cookie if absent.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	sessionID := s.ensureSessionCookie(w, r)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SessionResponse{SessionID: sessionID})
}

// handleHealth handles GET /healthz requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "ok\n")
}

// ensureSessionCookie returns the request's session identifier, minting and
// setting a fresh one if the cookie is missing or empty.
func (s *Server) ensureSessionCookie(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.logger.Debug("issued session cookie", "session_id", id)
	return id
}

// parseChatRequest decodes and validates the chat request body.
func parseChatRequest(body io.Reader) (*ChatRequest, error) {
	var req ChatRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if req.Message == "" {
		return nil, fmt.Errorf("message is required")
	}
	return &req, nil
}

// sendJSONError writes a JSON error response with the given status code.
func (s *Server) sendJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
