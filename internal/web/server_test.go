// ABOUTME: Tests for the HTTP shell: chat streaming, footer framing, cookies, errors.
// ABOUTME: Uses a stub generator behind a real session registry.

package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/hearth-gateway/internal/backend"
	"github.com/2389/hearth-gateway/internal/persona"
	"github.com/2389/hearth-gateway/internal/session"
)

// stubGen replays scripted fragments, or fails upfront.
type stubGen struct {
	fragments []backend.Fragment
	err       error
	release   chan struct{}
}

func (g *stubGen) Chat(ctx context.Context, turns []backend.Turn, temperature float64) (<-chan backend.Fragment, error) {
	if g.err != nil {
		return nil, g.err
	}
	out := make(chan backend.Fragment, len(g.fragments))
	go func() {
		defer close(out)
		if g.release != nil {
			select {
			case <-g.release:
			case <-ctx.Done():
				return
			}
		}
		for _, f := range g.fragments {
			select {
			case out <- f:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func newTestServer(t *testing.T, gen backend.Generator) (*Server, *session.Registry) {
	t.Helper()
	p, err := persona.Load("")
	require.NoError(t, err)
	reg := session.NewRegistry(p, gen, nil, nil)
	return NewServer(reg, nil), reg
}

func postChat(t *testing.T, srv *Server, sessionID, message string) *httptest.ResponseRecorder {
	t.Helper()
	body := strings.NewReader(`{"message": ` + jsonString(message) + `}`)
	req := httptest.NewRequest(http.MethodPost, "/chat", body)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: sessionID})
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestChat_StreamsVisibleTextWithFooter(t *testing.T) {
	gen := &stubGen{fragments: []backend.Fragment{
		{Text: "Rest easy"},
		{Text: ".<EMOTE_"},
		{Text: "CALM>"},
	}}
	srv, _ := newTestServer(t, gen)

	rec := postChat(t, srv, "s1", "goodnight")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Equal(t, "Rest easy.\n\n<keywords>[\"EMOTE_CALM\"]</keywords>", body)
	assert.NotContains(t, body, "<EMOTE_CALM>")
}

func TestChat_NoMarkersEmptyFooter(t *testing.T) {
	gen := &stubGen{fragments: []backend.Fragment{{Text: "Hello"}, {Text: " world"}}}
	srv, _ := newTestServer(t, gen)

	rec := postChat(t, srv, "s1", "hi")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello world\n\n<keywords>[]</keywords>", rec.Body.String())
}

func TestChat_IssuesCookieWhenMissing(t *testing.T) {
	gen := &stubGen{fragments: []backend.Fragment{{Text: "hi"}}}
	srv, reg := newTestServer(t, gen)

	rec := postChat(t, srv, "", "hello")
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	var issued string
	for _, c := range cookies {
		if c.Name == sessionCookie {
			issued = c.Value
		}
	}
	require.NotEmpty(t, issued, "expected a session cookie to be set")

	_, err := reg.Get(issued)
	assert.NoError(t, err)
}

func TestChat_ReusesCookieSession(t *testing.T) {
	gen := &stubGen{fragments: []backend.Fragment{{Text: "one"}}}
	srv, reg := newTestServer(t, gen)

	rec := postChat(t, srv, "fixed-id", "first")
	require.Equal(t, http.StatusOK, rec.Code)

	gen.fragments = []backend.Fragment{{Text: "two"}}
	rec = postChat(t, srv, "fixed-id", "second")
	require.Equal(t, http.StatusOK, rec.Code)

	sess, err := reg.Get("fixed-id")
	require.NoError(t, err)
	assert.Len(t, sess.History(), 4)
	assert.Equal(t, 1, reg.Len())
}

func TestChat_SessionBusy(t *testing.T) {
	release := make(chan struct{})
	gen := &stubGen{
		fragments: []backend.Fragment{{Text: "slow"}},
		release:   release,
	}
	srv, reg := newTestServer(t, gen)
	defer close(release)

	// Occupy the session directly.
	events, err := reg.Resolve("busy-id").Submit(context.Background(), "first")
	require.NoError(t, err)
	go func() {
		for range events {
		}
	}()

	rec := postChat(t, srv, "busy-id", "second")
	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "already being generated")
}

func TestChat_BackendUnavailable(t *testing.T) {
	gen := &stubGen{err: backend.ErrUnavailable}
	srv, _ := newTestServer(t, gen)

	rec := postChat(t, srv, "s1", "hi")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "model")
}

func TestChat_BadRequests(t *testing.T) {
	gen := &stubGen{}
	srv, _ := newTestServer(t, gen)

	// Missing message.
	rec := postChat(t, srv, "s1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Invalid JSON.
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("{nope"))
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Wrong method.
	req = httptest.NewRequest(http.MethodGet, "/chat", nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSession_ReturnsIdentifier(t *testing.T) {
	srv, _ := newTestServer(t, &stubGen{})

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "abc-123"})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "abc-123", resp.SessionID)
}

func TestSession_IssuesCookie(t *testing.T) {
	srv, _ := newTestServer(t, &stubGen{})

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)

	var cookieValue string
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			cookieValue = c.Value
		}
	}
	assert.Equal(t, resp.SessionID, cookieValue)
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, &stubGen{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}

func TestChat_MidStreamFailureCutsBody(t *testing.T) {
	gen := &stubGen{fragments: []backend.Fragment{
		{Text: "partial "},
		{Err: backend.ErrInterrupted},
	}}
	srv, _ := newTestServer(t, gen)

	rec := postChat(t, srv, "s1", "hi")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Equal(t, "partial ", body)
	assert.NotContains(t, body, "<keywords>")
}
