package session

import (
	"time"

	"github.com/google/uuid"
)

// Session binds a bearer token to the caller acting on trades.
type Session struct {
	ID         int64      `json:"id"`
	SessionID  uuid.UUID  `json:"sessionId"`
	TokenHash  string     `json:"-"`
	UserID     uuid.UUID  `json:"userId"`
	CreatedAt  time.Time  `json:"createdAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
	UserAgent  *string    `json:"userAgent,omitempty"`
}

// New creates a session for userID valid for ttl.
func New(userID uuid.UUID, tokenHash string, ttl time.Duration, now time.Time) *Session {
	return &Session{
		SessionID:  uuid.New(),
		TokenHash:  tokenHash,
		UserID:     userID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
		LastSeenAt: &now,
	}
}

func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
