package notification

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	domainNotification "github.com/barterhub/barterhub/internal/domain/notification"
	"github.com/barterhub/barterhub/internal/domain/trade"
)

// SSEEventTrade is the SSE event name carrying trade updates.
const SSEEventTrade = "trade"

// TradeUpdate is the message fanned out to both participants and the bus.
type TradeUpdate struct {
	Event    *trade.Event   `json:"event"`
	Trade    *trade.Trade   `json:"trade"`
	Progress trade.Progress `json:"progress"`
}

// Service fans trade changes out to connected participants and the message bus.
type Service struct {
	hub       domainNotification.SSEHub
	publisher domainNotification.Publisher
	logger    zerolog.Logger
}

// NewService creates a notification service. publisher may be nil.
func NewService(hub domainNotification.SSEHub, publisher domainNotification.Publisher, logger zerolog.Logger) *Service {
	return &Service{
		hub:       hub,
		publisher: publisher,
		logger:    logger.With().Str("service", "notification").Logger(),
	}
}

// TradeChanged delivers one message per event. Delivery is best effort: failures
// are logged and never surface to the action that caused them.
func (s *Service) TradeChanged(ctx context.Context, t *trade.Trade, events []*trade.Event) {
	for _, ev := range events {
		data, err := json.Marshal(TradeUpdate{Event: ev, Trade: t, Progress: t.Progress()})
		if err != nil {
			s.logger.Warn().Err(err).Str("trade_id", t.TradeID.String()).Msg("failed to encode trade update")
			continue
		}

		if s.hub != nil {
			msg := domainNotification.NewSSEMessage(SSEEventTrade, data)
			delivered := s.hub.BroadcastToUser(t.BuyerID.String(), msg)
			delivered += s.hub.BroadcastToUser(t.SellerID.String(), msg)
			s.logger.Debug().
				Str("trade_id", t.TradeID.String()).
				Str("event", string(ev.Type)).
				Int("clients", delivered).
				Msg("trade update broadcast")
		}

		if s.publisher != nil {
			if err := s.publisher.Publish(ctx, Subject(ev.Type), data); err != nil {
				s.logger.Warn().Err(err).
					Str("trade_id", t.TradeID.String()).
					Str("event", string(ev.Type)).
					Msg("failed to publish trade event")
			}
		}
	}
}

// Subject is the bus subject for an event type, e.g. "trade.trade_accepted".
func Subject(typ trade.EventType) string {
	return "trade." + strings.ToLower(string(typ))
}
