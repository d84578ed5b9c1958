package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arigen-tech/docsearch/internal/models"
)

// SessionStore persists sessions and their ordered turns. Sessions are
// created implicitly on first append and removed only by an explicit clear.
type SessionStore interface {
	// Append adds a turn to the session, creating the session if absent.
	Append(ctx context.Context, sessionID string, turn models.Turn) error

	// History returns the session's turns in append order. An unknown
	// session is a fresh one: empty history, nil error.
	History(ctx context.Context, sessionID string) ([]models.Turn, error)

	// Clear deletes one session and all its turns irrevocably. Unknown ids
	// report models.ErrNotFound.
	Clear(ctx context.Context, sessionID string) error

	// ClearAll deletes every session and returns how many were removed.
	ClearAll(ctx context.Context) (int, error)
}

// MemorySessionStore keeps sessions in process memory.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*models.Session),
	}
}

func (s *MemorySessionStore) Append(ctx context.Context, sessionID string, turn models.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		session = &models.Session{
			ID:        sessionID,
			CreatedAt: time.Now(),
		}
		s.sessions[sessionID] = session
	}
	session.Turns = append(session.Turns, turn)
	return nil
}

func (s *MemorySessionStore) History(ctx context.Context, sessionID string) ([]models.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	turns := make([]models.Turn, len(session.Turns))
	copy(turns, session.Turns)
	return turns, nil
}

func (s *MemorySessionStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return fmt.Errorf("session %s: %w", sessionID, models.ErrNotFound)
	}
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemorySessionStore) ClearAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := len(s.sessions)
	s.sessions = make(map[string]*models.Session)
	return removed, nil
}
