package storage

import (
	"context"
	"sync"
	"time"

	"github.com/xaenox/scribly/internal/models"
)

type MemoryStorage struct {
	mu       sync.RWMutex
	sessions map[int64]models.Session
	now      func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		sessions: make(map[int64]models.Session),
		now:      time.Now,
	}
}

func (s *MemoryStorage) GetSession(ctx context.Context, chatID int64) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[chatID]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (s *MemoryStorage) SaveSession(ctx context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, ok := s.sessions[session.ChatID]; ok && session.CreatedAt.IsZero() {
		session.CreatedAt = existing.CreatedAt
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.LastUsedAt = now
	s.sessions[session.ChatID] = *session
	return nil
}

func (s *MemoryStorage) TouchSession(ctx context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[chatID]
	if !exists {
		return ErrSessionNotFound
	}
	session.LastUsedAt = s.now()
	s.sessions[chatID] = session
	return nil
}

func (s *MemoryStorage) DeleteSession(ctx context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, chatID)
	return nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
