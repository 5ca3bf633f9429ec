// Package db persists chat sessions and their messages. Three backends share
// the Store interface: an in-memory store, SQLite and PostgreSQL.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/RichardoC/thinkstream/internal/models"
)

// Store is the conversation store used by the chat orchestrator and the
// session management handlers. Every method is individually atomic.
type Store interface {
	// Backend names the implementation ("memory", "sqlite", "postgres").
	Backend() string
	Ping(ctx context.Context) error
	Close() error

	CreateSession(ctx context.Context, title string) (*models.Session, error)
	GetSession(ctx context.Context, id int64) (*models.Session, error)
	// ListSessions returns sessions ordered by timestamp, newest first.
	ListSessions(ctx context.Context) ([]models.Session, error)
	// UpdateSessionTitle fails with ErrNotFound for an unknown id.
	UpdateSessionTitle(ctx context.Context, id int64, title string) error
	// DeleteSession removes the session and all of its messages. Deleting an
	// unknown id is not an error.
	DeleteSession(ctx context.Context, id int64) error

	// CreateMessage appends a message to an existing session. It fails with a
	// *ValidationError for empty content and with ErrNotFound when the
	// session does not exist.
	CreateMessage(ctx context.Context, in NewMessage) (*models.Message, error)
	// GetMessages returns the session's messages ordered by timestamp, then id.
	GetMessages(ctx context.Context, sessionID int64) ([]models.Message, error)
	CountMessages(ctx context.Context, sessionID int64) (int, error)
	ClearMessages(ctx context.Context, sessionID int64) error
}

// NewMessage carries the fields a caller provides when creating a message.
type NewMessage struct {
	SessionID int64
	Role      models.Role
	Content   string
	Reasoning *string
}

// ErrNotFound is returned (wrapped) for operations on unknown sessions.
var ErrNotFound = errors.New("not found")

// ValidationError reports a malformed or missing field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StoreError wraps a failure of the backing storage engine.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func notFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

func validateMessage(in NewMessage) error {
	if !in.Role.Valid() {
		return &ValidationError{Field: "role", Reason: fmt.Sprintf("unknown role %q", in.Role)}
	}
	if strings.TrimSpace(in.Content) == "" {
		return &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if in.Reasoning != nil && in.Role != models.RoleAssistant {
		return &ValidationError{Field: "reasoning", Reason: "only assistant messages carry reasoning"}
	}
	return nil
}

func sessionTitle(title string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return models.DefaultSessionTitle
}

// normalizeReasoning drops empty reasoning so it is stored as absent.
func normalizeReasoning(r *string) *string {
	if r == nil || *r == "" {
		return nil
	}
	s := *r
	return &s
}
