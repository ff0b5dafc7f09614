// ABOUTME: SQLite transcript sink using modernc.org/sqlite with automatic schema creation.
// ABOUTME: Stores one row per stream with prompt and history as JSON columns.

package transcript

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// SQLiteSink persists transcript records to a SQLite database.
type SQLiteSink struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteSink opens (or creates) the transcript database at the given path.
// Parent directories are created if needed.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	logger := slog.Default().With("component", "transcript")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating transcript directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening transcript database: %w", err)
	}

	// WAL keeps appends cheap while streams are being served concurrently.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS transcripts (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			prompt TEXT NOT NULL,
			history TEXT NOT NULL,
			response TEXT NOT NULL,
			markers TEXT,
			error TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_transcripts_session
			ON transcripts(session_id, created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("transcript store initialized", "path", path)
	return &SQLiteSink{db: db, logger: logger}, nil
}

// Append writes one transcript record.
func (s *SQLiteSink) Append(ctx context.Context, rec *Record) error {
	prompt, err := json.Marshal(rec.Prompt)
	if err != nil {
		return fmt.Errorf("encoding prompt: %w", err)
	}
	history, err := json.Marshal(rec.History)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transcripts (id, session_id, created_at, prompt, history, response, markers, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(),
		rec.SessionID,
		rec.Timestamp,
		string(prompt),
		string(history),
		rec.Response,
		strings.Join(rec.Markers, ","),
		rec.Error,
	)
	if err != nil {
		return fmt.Errorf("inserting transcript: %w", err)
	}
	return nil
}

// BySession returns the records for one session, oldest first.
func (s *SQLiteSink) BySession(ctx context.Context, sessionID string) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, created_at, prompt, history, response, markers, error
		FROM transcripts WHERE session_id = ? ORDER BY created_at`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying transcripts: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		var prompt, history, markers string
		if err := rows.Scan(&rec.SessionID, &rec.Timestamp, &prompt, &history, &rec.Response, &markers, &rec.Error); err != nil {
			return nil, fmt.Errorf("scanning transcript: %w", err)
		}
		if err := json.Unmarshal([]byte(prompt), &rec.Prompt); err != nil {
			return nil, fmt.Errorf("decoding prompt: %w", err)
		}
		if err := json.Unmarshal([]byte(history), &rec.History); err != nil {
			return nil, fmt.Errorf("decoding history: %w", err)
		}
		if markers != "" {
			rec.Markers = strings.Split(markers, ",")
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

var _ Sink = (*SQLiteSink)(nil)
