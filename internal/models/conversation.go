package models

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// DefaultSessionTitle is used until the first exchange gives the session a derived title.
const DefaultSessionTitle = "New Chat"

type Message struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"sessionId"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Reasoning *string   `json:"reasoning"`
	Timestamp time.Time `json:"timestamp"`
}

// HasReasoning reports whether the message carries non-empty reasoning text.
func (m Message) HasReasoning() bool {
	return m.Reasoning != nil && *m.Reasoning != ""
}

type Session struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
}
