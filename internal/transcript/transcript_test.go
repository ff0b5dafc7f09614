// ABOUTME: Tests for the sqlite and file transcript sinks.
// ABOUTME: Verifies record round-trips, append-only behavior, and JSONL framing.

package transcript

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/hearth-gateway/internal/backend"
)

func sampleRecord(sessionID string) *Record {
	return &Record{
		Timestamp: time.Now().UTC().Truncate(time.Second),
		SessionID: sessionID,
		Prompt: []backend.Turn{
			{Role: backend.RoleSystem, Content: "be kind"},
			{Role: backend.RoleUser, Content: "hello"},
		},
		History: []backend.Turn{
			{Role: backend.RoleUser, Content: "hello"},
			{Role: backend.RoleAssistant, Content: "hi there<EMOTE_CALM>"},
		},
		Response: "hi there<EMOTE_CALM>",
		Markers:  []string{"EMOTE_CALM"},
	}
}

func TestSQLiteSink_AppendAndQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcripts.db")
	sink, err := NewSQLiteSink(path)
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })

	ctx := context.Background()
	rec := sampleRecord("session-1")
	require.NoError(t, sink.Append(ctx, rec))
	require.NoError(t, sink.Append(ctx, sampleRecord("session-2")))

	got, err := sink.BySession(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, rec.SessionID, got[0].SessionID)
	assert.Equal(t, rec.Prompt, got[0].Prompt)
	assert.Equal(t, rec.History, got[0].History)
	assert.Equal(t, rec.Response, got[0].Response)
	assert.Equal(t, []string{"EMOTE_CALM"}, got[0].Markers)
	assert.Empty(t, got[0].Error)
}

func TestSQLiteSink_FailedStreamRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcripts.db")
	sink, err := NewSQLiteSink(path)
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })

	ctx := context.Background()
	rec := sampleRecord("session-err")
	rec.Error = "backend unavailable"
	rec.Markers = nil
	require.NoError(t, sink.Append(ctx, rec))

	got, err := sink.BySession(ctx, "session-err")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "backend unavailable", got[0].Error)
	assert.Empty(t, got[0].Markers)
}

func TestFileSink_AppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversation.log")
	sink, err := NewFileSink(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sink.Append(ctx, sampleRecord("s1")))
	require.NoError(t, sink.Append(ctx, sampleRecord("s2")))
	require.NoError(t, sink.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec Record
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		lines = append(lines, rec)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, lines, 2)
	assert.Equal(t, "s1", lines[0].SessionID)
	assert.Equal(t, "s2", lines[1].SessionID)
	assert.Equal(t, "hi there<EMOTE_CALM>", lines[0].Response)
}

func TestFileSink_ReopenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversation.log")

	sink, err := NewFileSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.Append(context.Background(), sampleRecord("s1")))
	require.NoError(t, sink.Close())

	sink, err = NewFileSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.Append(context.Background(), sampleRecord("s2")))
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, len(splitLines(data)))
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			lines = append(lines, data[start:i])
			start = i + 1
		}
	}
	return lines
}
