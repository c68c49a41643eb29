package promptbuild

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/kayz/promptforge/internal/logger"
)

// DefaultHistoryLimit bounds the number of messages a history provider loads.
const DefaultHistoryLimit = 50

// HistorySpec selects the conversation a history provider reads, either by
// ID or by its agent and channel pair.
type HistorySpec struct {
	ConversationID int64  `json:"conversation_id,omitempty" yaml:"conversation_id,omitempty"`
	Agent          string `json:"agent,omitempty" yaml:"agent,omitempty"`
	Channel        string `json:"channel,omitempty" yaml:"channel,omitempty"`
	Limit          int    `json:"limit,omitempty" yaml:"limit,omitempty"`
}

func (s HistorySpec) limit() int {
	if s.Limit <= 0 {
		return DefaultHistoryLimit
	}
	return s.Limit
}

func (s HistorySpec) selects() bool {
	return s.ConversationID > 0 || (s.Agent != "" && s.Channel != "")
}

type turn struct {
	role    string
	content string
}

// History renders the most recent messages of a stored conversation,
// oldest first. A missing database or conversation yields no content.
func (b *Builder) History(key string, role Role, spec HistorySpec) Provider {
	return Provider{
		Key:   key,
		Role:  role,
		Title: "Chat History",
		Produce: func(ctx context.Context) (string, error) {
			return b.buildHistory(ctx, spec)
		},
	}
}

func (b *Builder) buildHistory(ctx context.Context, spec HistorySpec) (string, error) {
	if !spec.selects() || strings.TrimSpace(b.cfg.SQLitePath) == "" {
		return "", nil
	}
	dbPath := b.resolvePath(b.cfg.SQLitePath)
	if _, err := os.Stat(dbPath); errors.Is(err, fs.ErrNotExist) {
		logger.Debug("[PROMPT] History database %s not created yet", dbPath)
		return "", nil
	}

	turns, err := recentTurns(ctx, dbPath, spec)
	if err != nil {
		return "", err
	}
	return transcript(turns), nil
}

// The inner query takes the newest rows; the outer one restores
// chronological order.
const recentTurnsQuery = `
	SELECT role, content FROM (
		SELECT m.id, m.role, COALESCE(m.content, '') AS content
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE (?1 > 0 AND c.id = ?1) OR (?1 <= 0 AND c.agent = ?2 AND c.channel = ?3)
		ORDER BY m.id DESC
		LIMIT ?4
	) ORDER BY id ASC`

func recentTurns(ctx context.Context, dbPath string, spec HistorySpec) ([]turn, error) {
	dsn := "file:" + filepath.ToSlash(dbPath) + "?mode=ro&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, recentTurnsQuery, spec.ConversationID, spec.Agent, spec.Channel, spec.limit())
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var turns []turn
	for rows.Next() {
		var t turn
		if err := rows.Scan(&t.role, &t.content); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// transcript renders turns as "Speaker:\ncontent" blocks separated by blank
// lines. Empty messages are left out.
func transcript(turns []turn) string {
	var out strings.Builder
	for _, t := range turns {
		content := strings.TrimSpace(t.content)
		if content == "" {
			continue
		}
		if out.Len() > 0 {
			out.WriteString("\n\n")
		}
		out.WriteString(speaker(t.role))
		out.WriteString(":\n")
		out.WriteString(content)
	}
	return out.String()
}

func speaker(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return "Unknown"
	}
	return strings.ToUpper(role[:1]) + role[1:]
}
