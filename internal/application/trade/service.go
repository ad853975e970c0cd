package trade

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_notifier.go -package=mocks . Notifier

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/barterhub/barterhub/internal/domain/catalog"
	"github.com/barterhub/barterhub/internal/domain/trade"
)

// Action names used for logging and metrics.
const (
	ActionPropose             = "propose"
	ActionAccept              = "accept"
	ActionDecline             = "decline"
	ActionCounter             = "counter"
	ActionCancel              = "cancel"
	ActionSelectOption        = "select_option"
	ActionRequestOptionChange = "request_option_change"
	ActionApproveOptionChange = "approve_option_change"
	ActionRejectOptionChange  = "reject_option_change"
	ActionConfirmMeetup       = "confirm_meetup"
	ActionSubmitCompletion    = "submit_completion"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Notifier is told about every accepted transition. It must not block on slow sinks.
type Notifier interface {
	TradeChanged(ctx context.Context, t *trade.Trade, events []*trade.Event)
}

// Metrics observes action outcomes.
type Metrics interface {
	ObserveTransition(action, status string)
	ObserveRejection(action, code string)
}

// Config tunes protocol policy.
type Config struct {
	// AutoLockOnAccept activates an accepted trade immediately when the buyer's
	// proposal already carries a valid fulfillment option.
	AutoLockOnAccept bool
}

// Service runs trade actions: load, validate and mutate under the store's per-trade
// lock, then record the timeline and notify.
type Service struct {
	repo     trade.Repository
	catalog  catalog.Catalog
	notifier Notifier
	metrics  Metrics
	cfg      Config
	now      func() time.Time
	logger   zerolog.Logger
}

// NewService creates a trade service. notifier and metrics may be nil.
func NewService(
	repo trade.Repository,
	catalog catalog.Catalog,
	notifier Notifier,
	metrics Metrics,
	cfg Config,
	logger zerolog.Logger,
) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Service{
		repo:     repo,
		catalog:  catalog,
		notifier: notifier,
		metrics:  metrics,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.With().Str("service", "trade").Logger(),
	}
}

// change is one timeline entry produced by an action.
type change struct {
	typ     trade.EventType
	payload any
}

// mutate applies fn under the store's per-trade lock and records the result.
// An fn returning no changes is treated as an accepted no-op.
func (s *Service) mutate(
	ctx context.Context,
	action string,
	tradeID, caller uuid.UUID,
	fn func(t *trade.Trade, now time.Time) ([]change, error),
) (*trade.Trade, error) {
	var from trade.Status
	var changes []change
	now := s.now()
	updated, err := s.repo.Mutate(ctx, tradeID, func(t *trade.Trade) error {
		from = t.Status
		var err error
		changes, err = fn(t, now)
		return err
	})
	if err != nil {
		return nil, s.reject(action, tradeID, caller, err)
	}
	if len(changes) > 0 {
		s.record(ctx, action, updated, caller, from, changes)
	}
	return updated, nil
}

func (s *Service) record(ctx context.Context, action string, t *trade.Trade, actor uuid.UUID, from trade.Status, changes []change) {
	events := make([]*trade.Event, 0, len(changes))
	for _, c := range changes {
		ev, err := trade.NewEvent(t, c.typ, actor, from, c.payload)
		if err != nil {
			s.logger.Warn().Err(err).Str("trade_id", t.TradeID.String()).Str("event", string(c.typ)).Msg("failed to build trade event")
			continue
		}
		if err := s.repo.CreateEvent(ctx, ev); err != nil {
			s.logger.Warn().Err(err).Str("trade_id", t.TradeID.String()).Str("event", string(c.typ)).Msg("failed to append trade event")
		}
		events = append(events, ev)
	}

	s.metrics.ObserveTransition(action, string(t.Status))
	s.logger.Info().
		Str("trade_id", t.TradeID.String()).
		Str("actor", actor.String()).
		Str("action", action).
		Str("from", string(from)).
		Str("to", string(t.Status)).
		Int64("version", t.Version).
		Msg("trade transition")
	s.notifier.TradeChanged(ctx, t, events)
}

func (s *Service) reject(action string, tradeID, caller uuid.UUID, err error) error {
	code := trade.Code(err)
	s.metrics.ObserveRejection(action, code)
	if trade.IsDomainError(err) {
		s.logger.Debug().
			Str("trade_id", tradeID.String()).
			Str("caller", caller.String()).
			Str("action", action).
			Str("code", code).
			Msg(err.Error())
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	s.logger.Error().Err(err).
		Str("trade_id", tradeID.String()).
		Str("caller", caller.String()).
		Str("action", action).
		Msg("trade action failed")
	return err
}

type nopNotifier struct{}

func (nopNotifier) TradeChanged(context.Context, *trade.Trade, []*trade.Event) {}

type nopMetrics struct{}

func (nopMetrics) ObserveTransition(string, string) {}
func (nopMetrics) ObserveRejection(string, string)  {}
