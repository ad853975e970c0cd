package httpapi

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const issuerKeyHeader = "X-Issuer-Key"

type issueSessionRequest struct {
	UserID uuid.UUID `json:"userId"`
}

type sessionResponse struct {
	UserID       string `json:"userId"`
	SessionID    string `json:"sessionId"`
	ExpiresAt    string `json:"expiresAt,omitempty"`
	SessionToken string `json:"sessionToken,omitempty"`
}

// issueSession mints a caller session on behalf of the identity gateway.
func (s *Server) issueSession(w http.ResponseWriter, r *http.Request) {
	if s.opts.IssuerKey == "" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "session issuing is disabled")
		return
	}
	key := r.Header.Get(issuerKeyHeader)
	if subtle.ConstantTimeCompare([]byte(key), []byte(s.opts.IssuerKey)) != 1 {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid issuer key")
		return
	}
	var req issueSessionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	if req.UserID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "userId is required")
		return
	}
	userAgent := r.UserAgent()
	res, err := s.authSvc.Issue(r.Context(), req.UserID, &userAgent)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.SessionCookieName,
		Value:    res.Token,
		Path:     "/",
		Expires:  res.Session.ExpiresAt,
		HttpOnly: true,
		Secure:   s.opts.SessionCookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusCreated, sessionResponse{
		UserID:       res.Session.UserID.String(),
		SessionID:    res.Session.SessionID.String(),
		ExpiresAt:    res.Session.ExpiresAt.Format(time.RFC3339),
		SessionToken: res.Token,
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	token := extractToken(r, s.opts.SessionCookieName)
	if err := s.authSvc.Revoke(r.Context(), token); err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.opts.SessionCookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "OK"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	u := authUserFromContext(r.Context())
	if u == nil {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth")
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{
		UserID:    u.UserID.String(),
		SessionID: u.SessionID.String(),
	})
}
