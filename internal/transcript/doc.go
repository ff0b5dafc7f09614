// Package transcript persists one record per completed or failed reply.
//
// # Overview
//
// A Record captures the prompt that was sent, the resulting history,
// the raw unscrubbed response, the markers found, and the error if the
// stream failed. Sinks are append-only:
//
//   - SQLiteSink: durable store with per-session lookup (BySession)
//   - FileSink: one JSON object per line, for tail -f style inspection
//
// Writers treat the sink as a collaborator, not a dependency: an append
// failure is logged and never fails the conversation.
package transcript
