// Package web exposes the conversation core over plain HTTP.
//
// # Endpoints
//
//   - POST /chat: submit a message; the reply streams back as a chunked
//     text/plain body, followed by a footer carrying the markers found:
//     \n\n<keywords>["END_CHAT"]</keywords>
//   - GET /session: return (and if needed mint) the caller's session ID
//   - GET /healthz: liveness probe
//
// Sessions ride an HttpOnly cookie. A submit against a session with a
// reply already in flight returns 409; a backend that rejects the
// request upfront returns 502. Mid-stream failure cuts the body short
// with no footer, which is all HTTP allows once headers are sent.
package web
