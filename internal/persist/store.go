package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	defaultMessageLimit = 50
	defaultRunLimit     = 20
)

// The conversations/messages layout is also read by the prompt history
// source; keep the two in step.
const schema = `
	CREATE TABLE IF NOT EXISTS conversations (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		agent      TEXT NOT NULL,
		channel    TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(agent, channel)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id INTEGER NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		role            TEXT NOT NULL,
		content         TEXT,
		created_at      TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, id);

	CREATE TABLE IF NOT EXISTS runs (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id      TEXT NOT NULL,
		agent       TEXT NOT NULL,
		action      TEXT NOT NULL,
		status      TEXT NOT NULL,
		output      TEXT,
		error       TEXT NOT NULL DEFAULT '',
		started_at  TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_agent ON runs(agent, id);
	CREATE INDEX IF NOT EXISTS idx_runs_run_id ON runs(run_id);
`

// Store persists conversations, messages and action runs in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the database at path.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	dsn := "file:" + filepath.ToSlash(path) +
		"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// GetOrCreateConversation returns the conversation for agent and channel,
// creating it on first use.
func (s *Store) GetOrCreateConversation(ctx context.Context, agent, channel string) (*Conversation, error) {
	now := timestamp(time.Now())
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (agent, channel, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(agent, channel) DO NOTHING
	`, agent, channel, now, now); err != nil {
		return nil, fmt.Errorf("create conversation %s/%s: %w", agent, channel, err)
	}

	var (
		conv             Conversation
		created, updated string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, agent, channel, created_at, updated_at
		FROM conversations WHERE agent = ? AND channel = ?
	`, agent, channel).Scan(&conv.ID, &conv.Agent, &conv.Channel, &created, &updated)
	if err != nil {
		return nil, fmt.Errorf("load conversation %s/%s: %w", agent, channel, err)
	}
	conv.CreatedAt = parseTimestamp(created)
	conv.UpdatedAt = parseTimestamp(updated)
	return &conv, nil
}

// AppendMessage stores a message and bumps the conversation's updated_at.
func (s *Store) AppendMessage(ctx context.Context, conversationID int64, role, content string) (*Message, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		conversationID, role, content, timestamp(now))
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`, timestamp(now), conversationID); err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Message{ID: id, Role: role, Content: content, CreatedAt: now}, nil
}

// RecentMessages returns up to limit of the latest messages, oldest first.
// A non-positive limit means 50.
func (s *Store) RecentMessages(ctx context.Context, conversationID int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = defaultMessageLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, content, created_at FROM (
			SELECT id, role, COALESCE(content, '') AS content, created_at
			FROM messages
			WHERE conversation_id = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC
	`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var (
			msg     Message
			created string
		)
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.CreatedAt = parseTimestamp(created)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// RecordRun appends one action result and sets run.ID. Output is stored as
// JSON; a zero StartedAt is set to now.
func (s *Store) RecordRun(ctx context.Context, run *Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	var output sql.NullString
	if run.Output != nil {
		data, err := json.Marshal(run.Output)
		if err != nil {
			return fmt.Errorf("encode output of %s: %w", run.Action, err)
		}
		output = sql.NullString{String: string(data), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, agent, action, status, output, error, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.RunID, run.Agent, run.Action, string(run.Status), output, run.Error,
		timestamp(run.StartedAt), run.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	run.ID, err = res.LastInsertId()
	return err
}

// ListRuns returns the latest runs of agent, newest first. An empty agent
// lists every agent; a non-positive limit means 20.
func (s *Store) ListRuns(ctx context.Context, agent string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, agent, action, status, output, error, started_at, duration_ms
		FROM runs
		WHERE ?1 = '' OR agent = ?1
		ORDER BY id DESC
		LIMIT ?2
	`, agent, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var (
			run      Run
			status   string
			output   sql.NullString
			started  string
			duration int64
		)
		if err := rows.Scan(&run.ID, &run.RunID, &run.Agent, &run.Action, &status,
			&output, &run.Error, &started, &duration); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Status = RunStatus(status)
		run.StartedAt = parseTimestamp(started)
		run.Duration = time.Duration(duration) * time.Millisecond
		if output.Valid {
			if err := json.Unmarshal([]byte(output.String), &run.Output); err != nil {
				return nil, fmt.Errorf("decode output of run %d: %w", run.ID, err)
			}
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}
