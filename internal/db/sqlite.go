package db

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/RichardoC/thinkstream/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id INTEGER NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    reasoning TEXT,
    timestamp TIMESTAMP NOT NULL,
    FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, timestamp, id);
CREATE INDEX IF NOT EXISTS idx_sessions_timestamp ON sessions(timestamp);`

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// applies the schema.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, storeErr("open", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, storeErr("open", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, storeErr("ping", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, storeErr("migrate", err)
	}

	return &SQLiteStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *SQLiteStore) Backend() string { return "sqlite" }

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return storeErr("ping", s.db.PingContext(ctx))
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateSession(ctx context.Context, title string) (*models.Session, error) {
	sess := &models.Session{Title: sessionTitle(title), Timestamp: s.now()}
	err := s.db.QueryRowContext(ctx, `
        INSERT INTO sessions (title, timestamp)
        VALUES (?, ?)
        RETURNING id`, sess.Title, sess.Timestamp).Scan(&sess.ID)
	if err != nil {
		return nil, storeErr("create session", err)
	}
	return sess, nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id int64) (*models.Session, error) {
	var sess models.Session
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, timestamp FROM sessions WHERE id = ?", id,
	).Scan(&sess.ID, &sess.Title, &sess.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("session", id)
	}
	if err != nil {
		return nil, storeErr("get session", err)
	}
	return &sess, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context) ([]models.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, title, timestamp
        FROM sessions
        ORDER BY timestamp DESC, id DESC`)
	if err != nil {
		return nil, storeErr("list sessions", err)
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		var sess models.Session
		if err := rows.Scan(&sess.ID, &sess.Title, &sess.Timestamp); err != nil {
			return nil, storeErr("list sessions", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, storeErr("list sessions", rows.Err())
}

func (s *SQLiteStore) UpdateSessionTitle(ctx context.Context, id int64, title string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE sessions SET title = ? WHERE id = ?", sessionTitle(title), id)
	if err != nil {
		return storeErr("update session title", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("update session title", err)
	}
	if n == 0 {
		return notFound("session", id)
	}
	return nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("delete session", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", id); err != nil {
		return storeErr("delete session", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return storeErr("delete session", err)
	}
	return storeErr("delete session", tx.Commit())
}

func (s *SQLiteStore) CreateMessage(ctx context.Context, in NewMessage) (*models.Message, error) {
	if err := validateMessage(in); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr("create message", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM sessions WHERE id = ?", in.SessionID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("session", in.SessionID)
	}
	if err != nil {
		return nil, storeErr("create message", err)
	}

	msg := &models.Message{
		SessionID: in.SessionID,
		Role:      in.Role,
		Content:   in.Content,
		Reasoning: normalizeReasoning(in.Reasoning),
		Timestamp: s.now(),
	}
	err = tx.QueryRowContext(ctx, `
        INSERT INTO messages (session_id, role, content, reasoning, timestamp)
        VALUES (?, ?, ?, ?, ?)
        RETURNING id`,
		msg.SessionID, string(msg.Role), msg.Content, msg.Reasoning, msg.Timestamp,
	).Scan(&msg.ID)
	if err != nil {
		return nil, storeErr("create message", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storeErr("create message", err)
	}
	return msg, nil
}

func (s *SQLiteStore) GetMessages(ctx context.Context, sessionID int64) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, session_id, role, content, reasoning, timestamp
        FROM messages
        WHERE session_id = ?
        ORDER BY timestamp ASC, id ASC`, sessionID)
	if err != nil {
		return nil, storeErr("get messages", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var (
			msg       models.Message
			role      string
			reasoning sql.NullString
		)
		if err := rows.Scan(&msg.ID, &msg.SessionID, &role, &msg.Content, &reasoning, &msg.Timestamp); err != nil {
			return nil, storeErr("get messages", err)
		}
		msg.Role = models.Role(role)
		if reasoning.Valid {
			msg.Reasoning = &reasoning.String
		}
		messages = append(messages, msg)
	}
	return messages, storeErr("get messages", rows.Err())
}

func (s *SQLiteStore) CountMessages(ctx context.Context, sessionID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages WHERE session_id = ?", sessionID).Scan(&n)
	if err != nil {
		return 0, storeErr("count messages", err)
	}
	return n, nil
}

func (s *SQLiteStore) ClearMessages(ctx context.Context, sessionID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", sessionID)
	return storeErr("clear messages", err)
}
