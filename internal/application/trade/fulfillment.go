package trade

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/barterhub/barterhub/internal/domain/trade"
)

// OptionInput carries a buyer's fulfillment choice.
type OptionInput struct {
	TradeID         uuid.UUID
	Caller          uuid.UUID
	Option          trade.Option
	DeliveryAddress string
}

// SelectOption records the fulfillment option and locks an accepted trade.
func (s *Service) SelectOption(ctx context.Context, in OptionInput) (*trade.Trade, error) {
	return s.mutate(ctx, ActionSelectOption, in.TradeID, in.Caller, func(t *trade.Trade, now time.Time) ([]change, error) {
		hadOption := t.TradeOption != nil
		changed, err := t.SelectOption(in.Caller, in.Option, in.DeliveryAddress, now)
		if err != nil || !changed {
			return nil, err
		}
		var changes []change
		if !hadOption {
			changes = append(changes, change{typ: trade.EventTypeOptionSelected, payload: optionPayload(t, "")})
		}
		if t.Status == trade.StatusActive {
			changes = append(changes, change{typ: trade.EventTypeActivated, payload: optionPayload(t, "")})
		}
		return changes, nil
	})
}

// RequestOptionChange asks the seller to approve a different option.
func (s *Service) RequestOptionChange(ctx context.Context, in OptionInput) (*trade.Trade, error) {
	return s.mutate(ctx, ActionRequestOptionChange, in.TradeID, in.Caller, func(t *trade.Trade, now time.Time) ([]change, error) {
		if err := t.RequestOptionChange(in.Caller, in.Option, in.DeliveryAddress, now); err != nil {
			return nil, err
		}
		req := t.OptionChangeRequest
		return []change{{
			typ: trade.EventTypeOptionChangeRequested,
			payload: trade.OptionPayload{
				Option:          req.RequestedOption,
				DeliveryAddress: req.RequestedDeliveryAddress,
				PreviousOption:  *t.TradeOption,
			},
		}}, nil
	})
}

// ApproveOptionChange applies the outstanding option change request.
func (s *Service) ApproveOptionChange(ctx context.Context, tradeID, caller uuid.UUID) (*trade.Trade, error) {
	return s.mutate(ctx, ActionApproveOptionChange, tradeID, caller, func(t *trade.Trade, now time.Time) ([]change, error) {
		var previous trade.Option
		if t.TradeOption != nil {
			previous = *t.TradeOption
		}
		if err := t.ApproveOptionChange(caller, now); err != nil {
			return nil, err
		}
		return []change{{typ: trade.EventTypeOptionChangeApproved, payload: optionPayload(t, previous)}}, nil
	})
}

// RejectOptionChange discards the outstanding option change request.
func (s *Service) RejectOptionChange(ctx context.Context, tradeID, caller uuid.UUID) (*trade.Trade, error) {
	return s.mutate(ctx, ActionRejectOptionChange, tradeID, caller, func(t *trade.Trade, now time.Time) ([]change, error) {
		var requested trade.Option
		if t.OptionChangeRequest != nil {
			requested = t.OptionChangeRequest.RequestedOption
		}
		if err := t.RejectOptionChange(caller, now); err != nil {
			return nil, err
		}
		return []change{{
			typ:     trade.EventTypeOptionChangeRejected,
			payload: trade.OptionPayload{Option: *t.TradeOption, PreviousOption: requested},
		}}, nil
	})
}

// ConfirmMeetup records the caller's attendance at the agreed location. A repeated
// confirmation at the same place is accepted without a new event.
func (s *Service) ConfirmMeetup(ctx context.Context, tradeID, caller uuid.UUID, location string) (*trade.Trade, error) {
	return s.mutate(ctx, ActionConfirmMeetup, tradeID, caller, func(t *trade.Trade, now time.Time) ([]change, error) {
		changed, err := t.ConfirmMeetup(caller, location, now)
		if err != nil || !changed {
			return nil, err
		}
		party, _ := t.PartyOf(caller)
		return []change{{
			typ:     trade.EventTypeMeetupConfirmed,
			payload: trade.MeetupPayload{Party: party, Location: t.MeetupLocation},
		}}, nil
	})
}

// CompletionInput is one party's attestation that the exchange happened.
type CompletionInput struct {
	TradeID  uuid.UUID
	Caller   uuid.UUID
	Rating   int
	Feedback string
}

// SubmitCompletion records the caller's rating. The second submission completes the trade.
func (s *Service) SubmitCompletion(ctx context.Context, in CompletionInput) (*trade.Trade, error) {
	return s.mutate(ctx, ActionSubmitCompletion, in.TradeID, in.Caller, func(t *trade.Trade, now time.Time) ([]change, error) {
		settled, err := t.SubmitCompletion(in.Caller, in.Rating, in.Feedback, now)
		if err != nil {
			return nil, err
		}
		party, _ := t.PartyOf(in.Caller)
		rating, _ := t.RatingFor(party)
		payload := trade.CompletionPayload{Party: party, Rating: rating, Settled: settled}
		if party == trade.PartyBuyer {
			payload.Feedback = t.BuyerFeedback
		} else {
			payload.Feedback = t.SellerFeedback
		}
		changes := []change{{typ: trade.EventTypeCompletionSubmitted, payload: payload}}
		if settled {
			changes = append(changes, change{typ: trade.EventTypeCompleted})
		}
		return changes, nil
	})
}

func optionPayload(t *trade.Trade, previous trade.Option) trade.OptionPayload {
	p := trade.OptionPayload{DeliveryAddress: t.DeliveryAddress, PreviousOption: previous}
	if t.TradeOption != nil {
		p.Option = *t.TradeOption
	}
	return p
}
