package db

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/RichardoC/thinkstream/internal/models"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgxmock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return newPostgresStore(mock), mock
}

func strPtr(s string) *string { return &s }

func TestPostgresCreateSession(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO sessions").
		WithArgs(models.DefaultSessionTitle, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	sess, err := store.CreateSession(context.Background(), "  ")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if sess.ID != 7 || sess.Title != models.DefaultSessionTitle {
		t.Errorf("CreateSession() = %+v, want id 7 with default title", sess)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresGetSessionNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, title").
		WithArgs(int64(3)).
		WillReturnError(pgx.ErrNoRows)

	if _, err := store.GetSession(context.Background(), 3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetSession() error = %v, want ErrNotFound", err)
	}
}

func TestPostgresCreateMessage(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO messages").
		WithArgs(int64(1), "assistant", "answer", strPtr("because"), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	msg, err := store.CreateMessage(context.Background(), NewMessage{
		SessionID: 1,
		Role:      models.RoleAssistant,
		Content:   "answer",
		Reasoning: strPtr("because"),
	})
	if err != nil {
		t.Fatalf("CreateMessage() error = %v", err)
	}
	if msg.ID != 42 || msg.Reasoning == nil || *msg.Reasoning != "because" {
		t.Errorf("CreateMessage() = %+v", msg)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresCreateMessageUnknownSession(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO messages").
		WithArgs(int64(9), "user", "hi", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err := store.CreateMessage(context.Background(), NewMessage{SessionID: 9, Role: models.RoleUser, Content: "hi"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("CreateMessage() error = %v, want ErrNotFound", err)
	}
}

func TestPostgresCreateMessageValidation(t *testing.T) {
	store, mock := newMockStore(t)

	_, err := store.CreateMessage(context.Background(), NewMessage{SessionID: 1, Role: models.RoleUser, Content: ""})
	if !IsValidation(err) {
		t.Fatalf("CreateMessage() error = %v, want ValidationError", err)
	}
	// No expectations set, pgxmock fails on any query.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected database call: %v", err)
	}
}

func TestPostgresGetMessages(t *testing.T) {
	store, mock := newMockStore(t)
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, session_id, role, content, reasoning").
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "session_id", "role", "content", "reasoning", "timestamp"}).
			AddRow(int64(1), int64(1), "user", "question", (*string)(nil), ts).
			AddRow(int64(2), int64(1), "assistant", "answer", strPtr("thoughts"), ts.Add(time.Second)))

	msgs, err := store.GetMessages(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetMessages() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(GetMessages()) = %d, want 2", len(msgs))
	}
	if msgs[0].Role != models.RoleUser || msgs[0].Reasoning != nil {
		t.Errorf("messages[0] = %+v", msgs[0])
	}
	if msgs[1].Reasoning == nil || *msgs[1].Reasoning != "thoughts" {
		t.Errorf("messages[1].Reasoning = %v, want thoughts", msgs[1].Reasoning)
	}
}

func TestPostgresUpdateSessionTitle(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE sessions SET title").
		WithArgs("Hello", int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE sessions SET title").
		WithArgs("Hello", int64(2)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := store.UpdateSessionTitle(context.Background(), 1, "Hello"); err != nil {
		t.Fatalf("UpdateSessionTitle() error = %v", err)
	}
	if err := store.UpdateSessionTitle(context.Background(), 2, "Hello"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateSessionTitle(unknown) error = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresDeleteSession(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM messages").
		WithArgs(int64(5)).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec("DELETE FROM sessions").
		WithArgs(int64(5)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	if err := store.DeleteSession(context.Background(), 5); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresDeleteSessionRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM messages").
		WithArgs(int64(5)).
		WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	err := store.DeleteSession(context.Background(), 5)
	var se *StoreError
	if !errors.As(err, &se) {
		t.Fatalf("DeleteSession() error = %v, want *StoreError", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresCountMessages(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM messages`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	n, err := store.CountMessages(context.Background(), 1)
	if err != nil || n != 2 {
		t.Fatalf("CountMessages() = %d, %v; want 2, nil", n, err)
	}
}
