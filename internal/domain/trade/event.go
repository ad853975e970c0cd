package trade

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType describes a trade timeline event.
type EventType string

const (
	EventTypeProposed              EventType = "TRADE_PROPOSED"
	EventTypeAccepted              EventType = "TRADE_ACCEPTED"
	EventTypeDeclined              EventType = "TRADE_DECLINED"
	EventTypeCountered             EventType = "TRADE_COUNTERED"
	EventTypeCancelled             EventType = "TRADE_CANCELLED"
	EventTypeOptionSelected        EventType = "OPTION_SELECTED"
	EventTypeActivated             EventType = "TRADE_ACTIVATED"
	EventTypeOptionChangeRequested EventType = "OPTION_CHANGE_REQUESTED"
	EventTypeOptionChangeApproved  EventType = "OPTION_CHANGE_APPROVED"
	EventTypeOptionChangeRejected  EventType = "OPTION_CHANGE_REJECTED"
	EventTypeMeetupConfirmed       EventType = "MEETUP_CONFIRMED"
	EventTypeCompletionSubmitted   EventType = "COMPLETION_SUBMITTED"
	EventTypeCompleted             EventType = "TRADE_COMPLETED"
)

// Event is the append-only trade timeline. Counter events keep both the replaced and
// the new terms, so negotiation history survives term overwrites.
type Event struct {
	ID         int64           `json:"id"`
	EventID    uuid.UUID       `json:"eventId"`
	TradeID    uuid.UUID       `json:"tradeId"`
	Version    int64           `json:"version"`
	Type       EventType       `json:"type"`
	Actor      uuid.UUID       `json:"actor"`
	FromStatus Status          `json:"fromStatus"`
	ToStatus   Status          `json:"toStatus"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// NewEvent builds a timeline entry for the trade's current version.
func NewEvent(t *Trade, typ EventType, actor uuid.UUID, from Status, payload any) (*Event, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return &Event{
		EventID:    uuid.New(),
		TradeID:    t.TradeID,
		Version:    t.Version,
		Type:       typ,
		Actor:      actor,
		FromStatus: from,
		ToStatus:   t.Status,
		Payload:    raw,
		CreatedAt:  t.UpdatedAt,
	}, nil
}

// CounterPayload records a replaced proposal.
type CounterPayload struct {
	Previous Terms `json:"previous"`
	Proposed Terms `json:"proposed"`
}

// OptionPayload records an option selection or change.
type OptionPayload struct {
	Option          Option `json:"option"`
	DeliveryAddress string `json:"deliveryAddress,omitempty"`
	PreviousOption  Option `json:"previousOption,omitempty"`
}

// MeetupPayload records a meetup confirmation.
type MeetupPayload struct {
	Party    Party  `json:"party"`
	Location string `json:"location"`
}

// CompletionPayload records a completion attestation.
type CompletionPayload struct {
	Party    Party  `json:"party"`
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback,omitempty"`
	Settled  bool   `json:"settled"`
}

// CancelPayload records why a trade was aborted.
type CancelPayload struct {
	Party  Party  `json:"party"`
	Reason string `json:"reason,omitempty"`
}
