// Package session owns conversation state and the streaming reply lifecycle.
//
// # Overview
//
// A Session holds one conversation: a linear history of user and
// assistant turns plus the marker-scanner carry for the in-flight reply.
// The Registry maps opaque session identifiers to Sessions, creating
// them on first reference.
//
// # Submitting a Turn
//
// Submit appends the user turn, invokes the backend with the full
// prompt (system instruction first, then every stored turn), and
// returns a channel of events:
//
//	events, err := sess.Submit(ctx, "hello")
//	if err != nil { ... } // ErrSessionBusy, or backend rejection
//	for evt := range events {
//	    switch evt.Event {
//	    case session.EventText:  // scrubbed visible text, forward verbatim
//	    case session.EventDone:  // markers found + full raw reply
//	    case session.EventError: // stream failed mid-reply
//	    }
//	}
//
// Exactly one terminal event is delivered per stream. Visible text has
// complete marker tags removed; a trailing false prefix is flushed as
// ordinary text at the end.
//
// # Exclusivity
//
// At most one generation runs per session. A Submit that arrives while
// a previous stream is still in flight returns ErrSessionBusy without
// touching the history.
//
// # Commit Semantics
//
// The assistant turn commits atomically when the stream completes: the
// full unscrubbed reply is appended, the carry resets, and the
// transcript record is written. If the stream fails or the consumer's
// context ends first, nothing is committed; the user turn remains, so a
// retry resends it against the same history. Transcript writes are
// best-effort and never fail the stream.
package session
