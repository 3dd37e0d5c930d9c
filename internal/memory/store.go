// Package memory provides the sqlite-backed note and task-event store.
// The agent loop treats it as an external sink: memory tools read and
// write notes, and the gateway records one task event per completed run.
package memory

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS notes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	note_id TEXT UNIQUE NOT NULL,
	user_id TEXT NOT NULL,
	text TEXT NOT NULL,
	tags TEXT DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_notes_user ON notes(user_id, created_at);

CREATE TABLE IF NOT EXISTS task_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id TEXT UNIQUE NOT NULL,
	user_id TEXT NOT NULL,
	trace_id TEXT,
	intent TEXT NOT NULL,
	user_input TEXT,
	outcome TEXT,
	status TEXT NOT NULL DEFAULT 'success',
	extra TEXT DEFAULT '{}',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_task_events_user ON task_events(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_task_events_trace ON task_events(trace_id);
`

// Note is a stored user note.
type Note struct {
	NoteID    string    `json:"note_id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskEvent is one recorded run outcome.
type TaskEvent struct {
	TaskID    string         `json:"task_id"`
	UserID    string         `json:"user_id"`
	TraceID   string         `json:"trace_id,omitempty"`
	Intent    string         `json:"intent"`
	UserInput string         `json:"user_input,omitempty"`
	Outcome   string         `json:"outcome,omitempty"`
	Status    string         `json:"status"`
	Extra     map[string]any `json:"extra,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Store wraps the sqlite database. Safe for concurrent runs; the driver
// serializes writers and WAL keeps readers unblocked.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the store at dbPath and applies the schema.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open memory db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply memory schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// NewTaskID returns a fresh task identifier.
func NewTaskID() string {
	return "task-" + uuid.NewString()
}

// WriteNote stores a note and returns its id.
func (s *Store) WriteNote(userID, text string, tags []string) (string, error) {
	noteID := "note-" + uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO notes (note_id, user_id, text, tags, created_at) VALUES (?, ?, ?, ?, ?)`,
		noteID, userID, text, strings.Join(tags, ","), time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("write note: %w", err)
	}
	return noteID, nil
}

// QueryNotes returns up to limit notes whose text contains the query,
// newest first. An empty query matches everything.
func (s *Store) QueryNotes(userID, query string, limit int) ([]Note, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(
		`SELECT note_id, user_id, text, tags, created_at FROM notes
		 WHERE user_id = ? AND text LIKE ?
		 ORDER BY created_at DESC LIMIT ?`,
		userID, "%"+query+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()
	return scanNotes(rows)
}

// RecentNotes returns the newest notes for a user.
func (s *Store) RecentNotes(userID string, limit int) ([]Note, error) {
	return s.QueryNotes(userID, "", limit)
}

func scanNotes(rows *sql.Rows) ([]Note, error) {
	var notes []Note
	for rows.Next() {
		var n Note
		var tags string
		if err := rows.Scan(&n.NoteID, &n.UserID, &n.Text, &tags, &n.CreatedAt); err != nil {
			return nil, err
		}
		if tags != "" {
			n.Tags = strings.Split(tags, ",")
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// WriteTaskEvent records one run outcome. Extra is stored as JSON.
func (s *Store) WriteTaskEvent(ev TaskEvent) error {
	if ev.TaskID == "" {
		ev.TaskID = NewTaskID()
	}
	extra := "{}"
	if len(ev.Extra) > 0 {
		if b, err := json.Marshal(ev.Extra); err == nil {
			extra = string(b)
		}
	}
	_, err := s.db.Exec(
		`INSERT INTO task_events (task_id, user_id, trace_id, intent, user_input, outcome, status, extra, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.TaskID, ev.UserID, ev.TraceID, ev.Intent, ev.UserInput, ev.Outcome, ev.Status, extra, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("write task event: %w", err)
	}
	return nil
}

// RecentTaskEvents returns the newest run records for a user.
func (s *Store) RecentTaskEvents(userID string, limit int) ([]TaskEvent, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(
		`SELECT task_id, user_id, trace_id, intent, user_input, outcome, status, extra, created_at
		 FROM task_events WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query task events: %w", err)
	}
	defer rows.Close()

	var events []TaskEvent
	for rows.Next() {
		var ev TaskEvent
		var traceID sql.NullString
		var extra string
		if err := rows.Scan(&ev.TaskID, &ev.UserID, &traceID, &ev.Intent, &ev.UserInput, &ev.Outcome, &ev.Status, &extra, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.TraceID = traceID.String
		if extra != "" && extra != "{}" {
			_ = json.Unmarshal([]byte(extra), &ev.Extra)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
