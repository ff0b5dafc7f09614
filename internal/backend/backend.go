// ABOUTME: Generative backend contract: turns in, a finite stream of raw text fragments out.
// ABOUTME: Defines the error taxonomy for unreachable vs mid-stream failures.

package backend

import (
	"context"
	"errors"
)

// Turn roles, as sent to the backend and stored in history.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrUnavailable indicates the backend could not be reached or rejected the
// request before yielding any output.
var ErrUnavailable = errors.New("backend unavailable")

// ErrInterrupted indicates the backend failed after yielding partial output.
var ErrInterrupted = errors.New("backend stream interrupted")

// Turn is one message in a conversation, in the order it was appended.
// Immutable once created.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Fragment is one unit of raw backend output. A Fragment with a non-nil Err
// is terminal: no further fragments follow it. A closed channel without an
// Err fragment means the stream completed normally.
type Fragment struct {
	Text string
	Err  error
}

// Generator produces a finite lazy stream of raw text fragments for a prompt.
// It may fail before yielding anything (returned error) or mid-stream
// (terminal Err fragment). Cancelling ctx stops the stream promptly.
type Generator interface {
	Chat(ctx context.Context, turns []Turn, temperature float64) (<-chan Fragment, error)
}
