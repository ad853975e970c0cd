package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appAuth "github.com/barterhub/barterhub/internal/application/auth"
	appTrade "github.com/barterhub/barterhub/internal/application/trade"
	"github.com/barterhub/barterhub/internal/domain/notification"
	"github.com/barterhub/barterhub/internal/domain/trade"
)

// Options configures the session cookie and the session issuer endpoint.
type Options struct {
	SessionCookieName   string
	SessionCookieSecure bool
	// IssuerKey guards POST /v1/auth/sessions. Empty disables the endpoint.
	IssuerKey string
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	tradeSvc *appTrade.Service
	authSvc  *appAuth.Service
	sseHub   notification.SSEHub
	opts     Options
	logger   zerolog.Logger
}

func NewServer(
	tradeSvc *appTrade.Service,
	authSvc *appAuth.Service,
	sseHub notification.SSEHub,
	opts Options,
	logger zerolog.Logger,
) *Server {
	return &Server{
		tradeSvc: tradeSvc,
		authSvc:  authSvc,
		sseHub:   sseHub,
		opts:     opts,
		logger:   logger.With().Str("component", "http").Logger(),
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]interface{}{"status": "OK"})
	})
	if s.opts.MetricsHandler != nil {
		r.Handle("/metrics", s.opts.MetricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/sessions", s.issueSession)
			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/logout", s.logout)
				r.Get("/me", s.me)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			// The stream outlives any request timeout.
			r.Get("/stream", s.sseEndpoint)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(30 * time.Second))
				r.Route("/trades", func(r chi.Router) {
					r.Post("/", s.proposeTrade)
					r.Get("/", s.listTrades)
					r.Get("/{tradeId}", s.getTrade)
					r.Get("/{tradeId}/events", s.listTradeEvents)

					r.Post("/{tradeId}/accept", s.acceptTrade)
					r.Post("/{tradeId}/decline", s.declineTrade)
					r.Post("/{tradeId}/counter", s.counterTrade)
					r.Post("/{tradeId}/cancel", s.cancelTrade)

					r.Post("/{tradeId}/option", s.selectOption)
					r.Post("/{tradeId}/option-change", s.requestOptionChange)
					r.Post("/{tradeId}/option-change/approve", s.approveOptionChange)
					r.Post("/{tradeId}/option-change/reject", s.rejectOptionChange)

					r.Post("/{tradeId}/meetup/confirm", s.confirmMeetup)
					r.Post("/{tradeId}/completion", s.submitCompletion)
				})
			})
		})
	})

	return r
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

// respondDomainError maps a trade action error to its HTTP status. Internal
// errors are logged and reported without detail.
func (s *Server) respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	code := trade.Code(err)
	switch {
	case errors.Is(err, trade.ErrNotFound):
		respondError(w, http.StatusNotFound, code, err.Error())
	case errors.Is(err, trade.ErrForbidden):
		respondError(w, http.StatusForbidden, code, err.Error())
	case errors.Is(err, trade.ErrInvalidState):
		respondError(w, http.StatusConflict, code, err.Error())
	case errors.Is(err, trade.ErrValidation):
		respondError(w, http.StatusBadRequest, code, err.Error())
	default:
		s.logger.Error().Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		respondError(w, http.StatusInternalServerError, code, "internal error")
	}
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	val := chi.URLParam(r, key)
	return uuid.Parse(val)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// decodeOptionalBody is decodeBody that accepts an empty body.
func decodeOptionalBody(r *http.Request, v interface{}) error {
	if err := decodeBody(r, v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func parseLimitOffset(r *http.Request) (int, int) {
	limit, offset := 0, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil {
			offset = o
		}
	}
	return limit, offset
}
