package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/RichardoC/thinkstream/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS sessions (
    id BIGSERIAL PRIMARY KEY,
    title TEXT NOT NULL,
    "timestamp" TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS messages (
    id BIGSERIAL PRIMARY KEY,
    session_id BIGINT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    reasoning TEXT,
    "timestamp" TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, "timestamp", id);`

// pgxPool is the subset of *pgxpool.Pool the store uses. pgxmock pools
// satisfy it as well.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore handles PostgreSQL persistence through a connection pool.
type PostgresStore struct {
	pool pgxPool
	now  func() time.Time
}

// NewPostgresStore connects to databaseURL, verifies the connection and
// applies the schema.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, storeErr("open", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, storeErr("ping", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, storeErr("migrate", err)
	}
	return newPostgresStore(pool), nil
}

func newPostgresStore(pool pgxPool) *PostgresStore {
	return &PostgresStore{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *PostgresStore) Backend() string { return "postgres" }

func (s *PostgresStore) Ping(ctx context.Context) error {
	return storeErr("ping", s.pool.Ping(ctx))
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, title string) (*models.Session, error) {
	sess := &models.Session{Title: sessionTitle(title), Timestamp: s.now()}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO sessions (title, "timestamp")
		VALUES ($1, $2)
		RETURNING id
	`, sess.Title, sess.Timestamp).Scan(&sess.ID)
	if err != nil {
		return nil, storeErr("create session", err)
	}
	return sess, nil
}

func (s *PostgresStore) GetSession(ctx context.Context, id int64) (*models.Session, error) {
	var sess models.Session
	err := s.pool.QueryRow(ctx, `
		SELECT id, title, "timestamp" FROM sessions WHERE id = $1
	`, id).Scan(&sess.ID, &sess.Title, &sess.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("session", id)
	}
	if err != nil {
		return nil, storeErr("get session", err)
	}
	return &sess, nil
}

func (s *PostgresStore) ListSessions(ctx context.Context) ([]models.Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, "timestamp"
		FROM sessions
		ORDER BY "timestamp" DESC, id DESC
	`)
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

func (s *PostgresStore) UpdateSessionTitle(ctx context.Context, id int64, title string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE sessions SET title = $1 WHERE id = $2`, sessionTitle(title), id)
	if err != nil {
		return storeErr("update session title", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("session", id)
	}
	return nil
}

func (s *PostgresStore) DeleteSession(ctx context.Context, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storeErr("delete session", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE session_id = $1`, id); err != nil {
		return storeErr("delete session", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return storeErr("delete session", err)
	}
	return storeErr("delete session", tx.Commit(ctx))
}

// CreateMessage inserts only when the session exists, in a single statement.
func (s *PostgresStore) CreateMessage(ctx context.Context, in NewMessage) (*models.Message, error) {
	if err := validateMessage(in); err != nil {
		return nil, err
	}

	msg := &models.Message{
		SessionID: in.SessionID,
		Role:      in.Role,
		Content:   in.Content,
		Reasoning: normalizeReasoning(in.Reasoning),
		Timestamp: s.now(),
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (session_id, role, content, reasoning, "timestamp")
		SELECT $1::bigint, $2::text, $3::text, $4::text, $5::timestamptz
		WHERE EXISTS (SELECT 1 FROM sessions WHERE id = $1::bigint)
		RETURNING id
	`, msg.SessionID, string(msg.Role), msg.Content, msg.Reasoning, msg.Timestamp).Scan(&msg.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("session", in.SessionID)
	}
	if err != nil {
		return nil, storeErr("create message", err)
	}
	return msg, nil
}

func (s *PostgresStore) GetMessages(ctx context.Context, sessionID int64) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, role, content, reasoning, "timestamp"
		FROM messages
		WHERE session_id = $1
		ORDER BY "timestamp" ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, storeErr("get messages", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var (
			msg  models.Message
			role string
		)
		if err := rows.Scan(&msg.ID, &msg.SessionID, &role, &msg.Content, &msg.Reasoning, &msg.Timestamp); err != nil {
			return nil, storeErr("get messages", err)
		}
		msg.Role = models.Role(role)
		messages = append(messages, msg)
	}
	return messages, storeErr("get messages", rows.Err())
}

func (s *PostgresStore) CountMessages(ctx context.Context, sessionID int64) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE session_id = $1`, sessionID).Scan(&n)
	if err != nil {
		return 0, storeErr("count messages", err)
	}
	return n, nil
}

func (s *PostgresStore) ClearMessages(ctx context.Context, sessionID int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM messages WHERE session_id = $1`, sessionID)
	return storeErr("clear messages", err)
}
