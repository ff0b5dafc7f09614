// Package backend defines the generative backend contract and the Ollama client.
//
// # Overview
//
// A Generator turns a conversation prompt into a stream of text
// fragments:
//
//	frags, err := gen.Chat(ctx, turns, temperature)
//
// An upfront error (backend down, bad request) means no stream was
// started; it wraps ErrUnavailable. Once streaming, a Fragment with a
// non-nil Err terminates the stream and wraps ErrInterrupted. A closed
// channel with no Err fragment is normal completion.
//
// # Ollama
//
// OllamaClient speaks Ollama's /api/chat NDJSON streaming protocol.
// Each request carries the full prompt; the per-request timeout bounds
// the whole stream.
package backend
