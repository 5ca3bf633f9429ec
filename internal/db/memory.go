package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/RichardoC/thinkstream/internal/models"
)

// MemoryStore keeps sessions and messages in process memory. It backs tests
// and the degraded mode used when no durable store can be reached.
type MemoryStore struct {
	mu            sync.RWMutex
	sessions      map[int64]models.Session
	messages      map[int64]models.Message
	nextSessionID int64
	nextMessageID int64
	now           func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:      make(map[int64]models.Session),
		messages:      make(map[int64]models.Message),
		nextSessionID: 1,
		nextMessageID: 1,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Backend() string                { return "memory" }
func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }
func (s *MemoryStore) Close() error                   { return nil }

func (s *MemoryStore) CreateSession(ctx context.Context, title string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := models.Session{
		ID:        s.nextSessionID,
		Title:     sessionTitle(title),
		Timestamp: s.now(),
	}
	s.nextSessionID++
	s.sessions[sess.ID] = sess
	return &sess, nil
}

func (s *MemoryStore) GetSession(ctx context.Context, id int64) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, notFound("session", id)
	}
	return &sess, nil
}

func (s *MemoryStore) ListSessions(ctx context.Context) ([]models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]models.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].Timestamp.Equal(sessions[j].Timestamp) {
			return sessions[i].Timestamp.After(sessions[j].Timestamp)
		}
		return sessions[i].ID > sessions[j].ID
	})
	return sessions, nil
}

func (s *MemoryStore) UpdateSessionTitle(ctx context.Context, id int64, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return notFound("session", id)
	}
	sess.Title = sessionTitle(title)
	s.sessions[id] = sess
	return nil
}

func (s *MemoryStore) DeleteSession(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteMessagesLocked(id)
	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) CreateMessage(ctx context.Context, in NewMessage) (*models.Message, error) {
	if err := validateMessage(in); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, storeErr("create message", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[in.SessionID]; !ok {
		return nil, notFound("session", in.SessionID)
	}
	msg := models.Message{
		ID:        s.nextMessageID,
		SessionID: in.SessionID,
		Role:      in.Role,
		Content:   in.Content,
		Reasoning: normalizeReasoning(in.Reasoning),
		Timestamp: s.now(),
	}
	s.nextMessageID++
	s.messages[msg.ID] = msg
	return &msg, nil
}

func (s *MemoryStore) GetMessages(ctx context.Context, sessionID int64) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := make([]models.Message, 0)
	for _, msg := range s.messages {
		if msg.SessionID == sessionID {
			messages = append(messages, msg)
		}
	}
	sort.Slice(messages, func(i, j int) bool {
		if !messages[i].Timestamp.Equal(messages[j].Timestamp) {
			return messages[i].Timestamp.Before(messages[j].Timestamp)
		}
		return messages[i].ID < messages[j].ID
	})
	return messages, nil
}

func (s *MemoryStore) CountMessages(ctx context.Context, sessionID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, msg := range s.messages {
		if msg.SessionID == sessionID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) ClearMessages(ctx context.Context, sessionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteMessagesLocked(sessionID)
	return nil
}

func (s *MemoryStore) deleteMessagesLocked(sessionID int64) {
	for id, msg := range s.messages {
		if msg.SessionID == sessionID {
			delete(s.messages, id)
		}
	}
}
