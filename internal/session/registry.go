// ABOUTME: SessionRegistry maps session identifiers to ConversationSessions.
// ABOUTME: Create-on-first-use with single-winner creation; no eviction policy here.

package session

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/2389/hearth-gateway/internal/backend"
	"github.com/2389/hearth-gateway/internal/persona"
	"github.com/2389/hearth-gateway/internal/transcript"
)

// ErrUnknownSession indicates a lookup for an identifier the registry never
// created. Should not occur through the resolve-or-create path; handled
// defensively.
var ErrUnknownSession = errors.New("unknown session")

// Registry owns all live sessions, keyed by identifier. Sessions are created
// on first reference and live for the process lifetime; an external TTL/LRU
// collaborator may wrap the registry if eviction is needed.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	persona *persona.Persona
	gen     backend.Generator
	sink    transcript.Sink
	logger  *slog.Logger
}

// NewRegistry creates an empty registry. Pass nil logger for default.
func NewRegistry(p *persona.Persona, gen backend.Generator, sink transcript.Sink, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		persona:  p,
		gen:      gen,
		sink:     sink,
		logger:   logger,
	}
}

// Resolve returns the session for id, creating it if absent. Concurrent
// first-time resolution for the same id yields the same session: creation
// has a single winner under the write lock.
func (r *Registry) Resolve(id string) *Session {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check: another resolver may have won between the locks.
	if s, ok := r.sessions[id]; ok {
		return s
	}

	s = newSession(id, r.persona, r.gen, r.sink, r.logger)
	r.sessions[id] = s
	r.logger.Info("session created", "session_id", id, "total_sessions", len(r.sessions))
	return s
}

// Get returns the existing session for id, or ErrUnknownSession if the
// registry never created one.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrUnknownSession
	}
	return s, nil
}

// Len reports how many sessions are resident.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
