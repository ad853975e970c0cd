package httpapi

import (
	"errors"
	"net/http"
	"strings"

	appAuth "github.com/barterhub/barterhub/internal/application/auth"
)

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r, s.opts.SessionCookieName)
		sess, err := s.authSvc.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, appAuth.ErrUnauthenticated) {
				respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or expired session")
				return
			}
			s.logger.Error().Err(err).Msg("session lookup failed")
			respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
			return
		}
		ctx := withAuthUser(r.Context(), &AuthUser{
			UserID:    sess.UserID,
			SessionID: sess.SessionID,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request, cookieName string) string {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	}
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil {
			return c.Value
		}
	}
	return ""
}
