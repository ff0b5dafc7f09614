// ABOUTME: Append-only conversation transcript records, one per completed or failed stream.
// ABOUTME: Defines the Record shape and the Sink interface implemented by sqlite and file sinks.

package transcript

import (
	"context"
	"time"

	"github.com/2389/hearth-gateway/internal/backend"
)

// Record is one transcript entry. Prompt is the exact turn list sent to the
// backend, History the session's full turn list after the exchange, and
// Response the raw unscrubbed assistant output (markers included, for audit).
type Record struct {
	Timestamp time.Time      `json:"timestamp"`
	SessionID string         `json:"session_id"`
	Prompt    []backend.Turn `json:"prompt_sent"`
	History   []backend.Turn `json:"full_history_after_turn"`
	Response  string         `json:"raw_assistant_response"`
	Markers   []string       `json:"markers,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Sink is an append-only transcript collaborator. Durability and rotation
// are the sink's own concern; callers only append.
type Sink interface {
	Append(ctx context.Context, rec *Record) error
	Close() error
}
