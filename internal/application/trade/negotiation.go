package trade

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/barterhub/barterhub/internal/domain/catalog"
	"github.com/barterhub/barterhub/internal/domain/trade"
)

// ProposeInput is a buyer's offer against a listed product. The seller is the
// product's owner.
type ProposeInput struct {
	BuyerID           uuid.UUID
	TargetProductID   uuid.UUID
	OfferedProductIDs []uuid.UUID
	OfferedCashAmount decimal.Decimal
	Message           string
	TradeOption       *trade.Option
	DeliveryAddress   string
}

// Propose creates a pending trade after checking product ownership with the catalog.
func (s *Service) Propose(ctx context.Context, in ProposeInput) (*trade.Trade, error) {
	t, err := s.propose(ctx, in)
	if err != nil {
		return nil, s.reject(ActionPropose, uuid.Nil, in.BuyerID, err)
	}
	s.record(ctx, ActionPropose, t, in.BuyerID, "", []change{{
		typ:     trade.EventTypeProposed,
		payload: t.CurrentTerms(),
	}})
	return t, nil
}

func (s *Service) propose(ctx context.Context, in ProposeInput) (*trade.Trade, error) {
	if in.BuyerID == uuid.Nil {
		return nil, trade.Forbiddenf("a caller is required to propose a trade")
	}
	if in.TargetProductID == uuid.Nil {
		return nil, trade.Validationf("target product is required")
	}
	target, err := s.catalog.GetProduct(ctx, in.TargetProductID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, trade.ErrProductNotFound
	}
	if target.OwnedBy(in.BuyerID) {
		return nil, trade.Validationf("you cannot propose a trade for your own product")
	}
	if !target.Available {
		return nil, trade.Validationf("product %s is no longer available", target.ProductID)
	}

	products, err := s.lookupProducts(ctx, in.OfferedProductIDs)
	if err != nil {
		return nil, err
	}
	items := make([]trade.Item, 0, len(in.OfferedProductIDs))
	for _, id := range in.OfferedProductIDs {
		p := products[id]
		if p == nil {
			return nil, trade.NotFoundf("product %s not found", id)
		}
		if !p.OwnedBy(in.BuyerID) {
			return nil, trade.Validationf("product %s is not yours to offer", id)
		}
		items = append(items, trade.Item{ProductID: id, OfferedBy: trade.PartyBuyer})
	}

	t, err := trade.NewTrade(trade.ProposeInput{
		BuyerID:           in.BuyerID,
		SellerID:          target.OwnerID,
		TargetProductID:   target.ProductID,
		Items:             items,
		OfferedCashAmount: in.OfferedCashAmount,
		Message:           in.Message,
		TradeOption:       in.TradeOption,
		DeliveryAddress:   in.DeliveryAddress,
	}, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Accept moves a pending trade to ACCEPTED, or straight to ACTIVE when auto-lock
// is enabled and the option is already settled.
func (s *Service) Accept(ctx context.Context, tradeID, caller uuid.UUID) (*trade.Trade, error) {
	return s.mutate(ctx, ActionAccept, tradeID, caller, func(t *trade.Trade, now time.Time) ([]change, error) {
		if err := t.Accept(caller, s.cfg.AutoLockOnAccept, now); err != nil {
			return nil, err
		}
		changes := []change{{typ: trade.EventTypeAccepted}}
		if t.Status == trade.StatusActive {
			changes = append(changes, change{typ: trade.EventTypeActivated, payload: optionPayload(t, "")})
		}
		return changes, nil
	})
}

// Decline terminates a pending trade.
func (s *Service) Decline(ctx context.Context, tradeID, caller uuid.UUID) (*trade.Trade, error) {
	return s.mutate(ctx, ActionDecline, tradeID, caller, func(t *trade.Trade, now time.Time) ([]change, error) {
		if err := t.Decline(caller, now); err != nil {
			return nil, err
		}
		return []change{{typ: trade.EventTypeDeclined}}, nil
	})
}

// CounterInput replaces the terms on the table. Product ownership decides which
// side each product is offered by.
type CounterInput struct {
	TradeID           uuid.UUID
	Caller            uuid.UUID
	ProductIDs        []uuid.UUID
	OfferedCashAmount decimal.Decimal
	Message           string
}

// Counter replaces the trade terms and hands the turn to the other party.
func (s *Service) Counter(ctx context.Context, in CounterInput) (*trade.Trade, error) {
	current, err := s.repo.GetByID(ctx, in.TradeID)
	if err != nil {
		return nil, s.reject(ActionCounter, in.TradeID, in.Caller, err)
	}
	if current == nil {
		return nil, s.reject(ActionCounter, in.TradeID, in.Caller, trade.ErrTradeNotFound)
	}
	items, resolveErr := s.resolveItems(ctx, current, in.ProductIDs)
	if resolveErr != nil && !trade.IsDomainError(resolveErr) {
		return nil, s.reject(ActionCounter, in.TradeID, in.Caller, resolveErr)
	}

	return s.mutate(ctx, ActionCounter, in.TradeID, in.Caller, func(t *trade.Trade, now time.Time) ([]change, error) {
		if _, err := t.CheckCounter(in.Caller); err != nil {
			return nil, err
		}
		if resolveErr != nil {
			return nil, resolveErr
		}
		previous := t.CurrentTerms()
		proposed := trade.Terms{Items: items, OfferedCashAmount: in.OfferedCashAmount, Message: in.Message}
		if err := t.Counter(in.Caller, proposed, now); err != nil {
			return nil, err
		}
		return []change{{
			typ:     trade.EventTypeCountered,
			payload: trade.CounterPayload{Previous: previous, Proposed: t.CurrentTerms()},
		}}, nil
	})
}

// Cancel aborts a non-terminal trade.
func (s *Service) Cancel(ctx context.Context, tradeID, caller uuid.UUID, reason string) (*trade.Trade, error) {
	return s.mutate(ctx, ActionCancel, tradeID, caller, func(t *trade.Trade, now time.Time) ([]change, error) {
		if err := t.Cancel(caller, reason, now); err != nil {
			return nil, err
		}
		party, _ := t.PartyOf(caller)
		return []change{{
			typ:     trade.EventTypeCancelled,
			payload: trade.CancelPayload{Party: party, Reason: t.CancelReason},
		}}, nil
	})
}

// resolveItems tags each product with the party that owns it. Products owned by
// neither party, or missing, yield a domain error.
func (s *Service) resolveItems(ctx context.Context, t *trade.Trade, productIDs []uuid.UUID) ([]trade.Item, error) {
	products, err := s.lookupProducts(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	items := make([]trade.Item, 0, len(productIDs))
	for _, id := range productIDs {
		p := products[id]
		switch {
		case p == nil:
			return nil, trade.NotFoundf("product %s not found", id)
		case p.OwnedBy(t.BuyerID):
			items = append(items, trade.Item{ProductID: id, OfferedBy: trade.PartyBuyer})
		case p.OwnedBy(t.SellerID):
			items = append(items, trade.Item{ProductID: id, OfferedBy: trade.PartySeller})
		default:
			return nil, trade.Validationf("product %s belongs to neither party", id)
		}
	}
	return items, nil
}

func (s *Service) lookupProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]*catalog.Product{}, nil
	}
	return s.catalog.GetProducts(ctx, ids)
}
