package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domainSession "github.com/barterhub/barterhub/internal/domain/session"
)

// ErrUnauthenticated is returned for missing, unknown or expired tokens.
var ErrUnauthenticated = errors.New("unauthenticated")

// Service issues and resolves bearer sessions. Account management lives outside
// this service; it trusts the user id it is asked to issue a token for.
type Service struct {
	sessionRepo domainSession.Repository
	sessionTTL  time.Duration
	now         func() time.Time
	logger      zerolog.Logger
}

// NewService creates an auth service.
func NewService(sessionRepo domainSession.Repository, sessionTTL time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		sessionRepo: sessionRepo,
		sessionTTL:  sessionTTL,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger.With().Str("service", "auth").Logger(),
	}
}

// IssueResult contains a freshly issued session.
type IssueResult struct {
	Session *domainSession.Session
	Token   string
}

// Issue creates a session for userID. The raw token is only ever returned here.
func (s *Service) Issue(ctx context.Context, userID uuid.UUID, userAgent *string) (*IssueResult, error) {
	if userID == uuid.Nil {
		return nil, errors.New("user id is required")
	}
	token, err := generateToken()
	if err != nil {
		return nil, err
	}
	sess := domainSession.New(userID, hashToken(token), s.sessionTTL, s.now())
	sess.UserAgent = userAgent
	if err := s.sessionRepo.Create(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", userID.String()).Str("session_id", sess.SessionID.String()).Msg("session issued")
	return &IssueResult{Session: sess, Token: token}, nil
}

// Authenticate validates a session token and returns its session.
func (s *Service) Authenticate(ctx context.Context, token string) (*domainSession.Session, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	sess, err := s.sessionRepo.GetByTokenHash(ctx, hashToken(token))
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrUnauthenticated
	}
	now := s.now()
	if sess.IsExpired(now) {
		_ = s.sessionRepo.DeleteByID(ctx, sess.SessionID)
		return nil, ErrUnauthenticated
	}
	if err := s.sessionRepo.UpdateLastSeen(ctx, sess.SessionID, now); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sess.SessionID.String()).Msg("failed to touch session")
	}
	return sess, nil
}

// Revoke deletes a session token.
func (s *Service) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessionRepo.DeleteByTokenHash(ctx, hashToken(token))
}

// SweepExpired removes sessions past their expiry.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	n, err := s.sessionRepo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Debug().Int("count", n).Msg("expired sessions swept")
	}
	return n, nil
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
