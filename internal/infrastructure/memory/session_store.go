package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/barterhub/barterhub/internal/domain/session"
)

// SessionStore is an in-process session.Repository.
type SessionStore struct {
	mu       sync.Mutex
	seq      int64
	sessions map[string]*session.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*session.Session)}
}

func (s *SessionStore) Create(ctx context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	sess.ID = s.seq
	cp := *sess
	s.sessions[sess.TokenHash] = &cp
	return nil
}

func (s *SessionStore) GetByTokenHash(ctx context.Context, tokenHash string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[tokenHash]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

func (s *SessionStore) DeleteByID(ctx context.Context, sessionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, sess := range s.sessions {
		if sess.SessionID == sessionID {
			delete(s.sessions, hash)
		}
	}
	return nil
}

func (s *SessionStore) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tokenHash)
	return nil
}

func (s *SessionStore) UpdateLastSeen(ctx context.Context, sessionID uuid.UUID, seenAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.SessionID == sessionID {
			at := seenAt
			sess.LastSeenAt = &at
		}
	}
	return nil
}

func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for hash, sess := range s.sessions {
		if sess.IsExpired(now) {
			delete(s.sessions, hash)
			n++
		}
	}
	return n, nil
}
