// ABOUTME: ConversationSession: owns one conversation's turn history and scan carry,
// ABOUTME: serializes submits, streams scrubbed events, and commits assistant turns atomically.

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/2389/hearth-gateway/internal/backend"
	"github.com/2389/hearth-gateway/internal/marker"
	"github.com/2389/hearth-gateway/internal/persona"
	"github.com/2389/hearth-gateway/internal/transcript"
)

// ErrSessionBusy indicates a submit arrived while a previous stream for the
// same session was still in flight. At most one generation runs per session.
var ErrSessionBusy = errors.New("session busy")

const eventBuffer = 16

// EventType indicates the kind of a StreamEvent.
type EventType int

const (
	// EventText carries visible text to forward to the client verbatim.
	EventText EventType = iota
	// EventDone is the terminal marker report of a successful stream.
	EventDone
	// EventError terminates a failed stream. No EventDone follows it.
	EventError
)

// StreamEvent is one unit of the lazy output sequence of a Submit call.
type StreamEvent struct {
	Event   EventType
	Text    string          // EventText: scrubbed visible text
	Markers []marker.Marker // EventDone: markers found, first-occurrence order
	Raw     string          // EventDone: full unscrubbed assistant reply
	Error   string          // EventError
	Done    bool            // set on EventDone and EventError
}

// Session serializes one conversation: a linear turn history plus the
// scanner carry threaded through the fragments of the in-flight stream.
// All mutation happens on the single goroutine driving the current stream;
// the mutex only guards the busy flag and history snapshots.
type Session struct {
	ID string

	mu        sync.Mutex
	turns     []backend.Turn
	scanCarry string
	inFlight  bool

	persona *persona.Persona
	gen     backend.Generator
	sink    transcript.Sink
	logger  *slog.Logger
}

func newSession(id string, p *persona.Persona, gen backend.Generator, sink transcript.Sink, logger *slog.Logger) *Session {
	return &Session{
		ID:      id,
		persona: p,
		gen:     gen,
		sink:    sink,
		logger:  logger.With("component", "session", "session_id", id),
	}
}

// History returns a copy of the turn history.
func (s *Session) History() []backend.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]backend.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Submit appends the user turn, invokes the backend, and returns the event
// stream for this reply. Exactly one terminal event is delivered: EventDone
// on success, EventError on mid-stream failure. Returns ErrSessionBusy if a
// previous stream has not finished, or a backend.ErrUnavailable-wrapped
// error if the backend rejects the request before yielding anything.
func (s *Session) Submit(ctx context.Context, userText string) (<-chan *StreamEvent, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrSessionBusy
	}
	s.inFlight = true
	s.turns = append(s.turns, backend.Turn{Role: backend.RoleUser, Content: userText})

	// Prompt order is storage order: fixed system instruction, then the full
	// history including the turn just appended.
	prompt := make([]backend.Turn, 0, len(s.turns)+1)
	prompt = append(prompt, backend.Turn{Role: backend.RoleSystem, Content: s.persona.SystemPrompt})
	prompt = append(prompt, s.turns...)
	s.mu.Unlock()

	frags, err := s.gen.Chat(ctx, prompt, s.persona.Temperature)
	if err != nil {
		s.logger.Warn("backend rejected submit", "error", err)
		s.finishFailed(prompt, "", err)
		return nil, fmt.Errorf("invoking backend: %w", err)
	}

	out := make(chan *StreamEvent, eventBuffer)
	go s.run(ctx, prompt, frags, out)
	return out, nil
}

// run drives one stream: scan fragments, forward visible text, and commit
// or roll back at the end.
func (s *Session) run(ctx context.Context, prompt []backend.Turn, frags <-chan backend.Fragment, out chan<- *StreamEvent) {
	defer close(out)

	set := s.persona.MarkerSet()
	carry := ""
	var raw strings.Builder
	var found []marker.Marker
	seen := make(map[string]bool)

	for frag := range frags {
		if frag.Err != nil {
			s.finishFailed(prompt, raw.String(), frag.Err)
			s.emitTerminal(ctx, out, &StreamEvent{Event: EventError, Error: frag.Err.Error(), Done: true})
			return
		}

		raw.WriteString(frag.Text)

		visible, matched, newCarry := set.Scan(frag.Text, carry)
		carry = newCarry
		s.setCarry(newCarry)

		for _, m := range matched {
			if !seen[m.Name] {
				seen[m.Name] = true
				found = append(found, m)
			}
		}

		if visible != "" {
			if !s.emit(ctx, out, &StreamEvent{Event: EventText, Text: visible}) {
				// Consumer is gone: no partial commit, stop pulling fragments.
				s.finishFailed(prompt, raw.String(), ctx.Err())
				return
			}
		}
	}

	// The backend stops producing once ctx ends; a cleanly closed fragment
	// channel after cancellation is still a cancelled stream, not a commit.
	if ctx.Err() != nil {
		s.finishFailed(prompt, raw.String(), ctx.Err())
		return
	}

	// A carry that never completed a marker was genuine content.
	if tail := set.Flush(carry); tail != "" {
		if !s.emit(ctx, out, &StreamEvent{Event: EventText, Text: tail}) {
			s.finishFailed(prompt, raw.String(), ctx.Err())
			return
		}
	}

	full := raw.String()
	s.mu.Lock()
	s.scanCarry = ""
	// The unscrubbed reply is committed, markers included, for audit fidelity.
	s.turns = append(s.turns, backend.Turn{Role: backend.RoleAssistant, Content: full})
	history := make([]backend.Turn, len(s.turns))
	copy(history, s.turns)
	s.inFlight = false
	s.mu.Unlock()

	s.appendTranscript(&transcript.Record{
		Timestamp: time.Now(),
		SessionID: s.ID,
		Prompt:    prompt,
		History:   history,
		Response:  full,
		Markers:   markerNames(found),
	})

	s.logger.Debug("stream committed",
		"turns", len(history),
		"markers", markerNames(found),
		"response_len", len(full),
	)

	s.emitTerminal(ctx, out, &StreamEvent{Event: EventDone, Markers: found, Raw: full, Done: true})
}

// finishFailed rolls back the in-flight state without committing an
// assistant turn and records the failed attempt. The user turn stays in
// history; only the assistant turn is atomic.
func (s *Session) finishFailed(prompt []backend.Turn, raw string, cause error) {
	s.mu.Lock()
	s.scanCarry = ""
	s.inFlight = false
	history := make([]backend.Turn, len(s.turns))
	copy(history, s.turns)
	s.mu.Unlock()

	errText := "stream cancelled"
	if cause != nil {
		errText = cause.Error()
	}

	s.appendTranscript(&transcript.Record{
		Timestamp: time.Now(),
		SessionID: s.ID,
		Prompt:    prompt,
		History:   history,
		Response:  raw,
		Error:     errText,
	})

	s.logger.Warn("stream failed", "error", errText, "partial_len", len(raw))
}

func (s *Session) setCarry(carry string) {
	s.mu.Lock()
	s.scanCarry = carry
	s.mu.Unlock()
}

// emit forwards an event, cooperating with consumer backpressure.
// Reports false if the consumer's context ended first.
func (s *Session) emit(ctx context.Context, out chan<- *StreamEvent, evt *StreamEvent) bool {
	select {
	case out <- evt:
		return true
	case <-ctx.Done():
		return false
	}
}

// emitTerminal best-effort delivers the terminal event; a departed consumer
// is not an error.
func (s *Session) emitTerminal(ctx context.Context, out chan<- *StreamEvent, evt *StreamEvent) {
	select {
	case out <- evt:
	case <-ctx.Done():
	}
}

// appendTranscript never fails the stream: the log sink is a collaborator,
// not part of the core's correctness.
func (s *Session) appendTranscript(rec *transcript.Record) {
	if s.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.sink.Append(ctx, rec); err != nil {
		s.logger.Error("failed to append transcript", "error", err)
	}
}

func markerNames(markers []marker.Marker) []string {
	if len(markers) == 0 {
		return nil
	}
	names := make([]string, len(markers))
	for i, m := range markers {
		names[i] = m.Name
	}
	return names
}
