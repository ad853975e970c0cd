package trade

import (
	"context"

	"github.com/google/uuid"

	"github.com/barterhub/barterhub/internal/domain/trade"
)

// Get returns a trade visible to caller.
func (s *Service) Get(ctx context.Context, tradeID, caller uuid.UUID) (*trade.Trade, error) {
	t, err := s.repo.GetByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, trade.ErrTradeNotFound
	}
	if !t.IsParticipant(caller) {
		return nil, trade.Forbiddenf("you are not a participant in this trade")
	}
	return t, nil
}

// ListInput filters the caller's trades.
type ListInput struct {
	Caller uuid.UUID
	Role   trade.Role
	Status *trade.Status
	Limit  int
	Offset int
}

// List returns the caller's trades, most recently updated first.
func (s *Service) List(ctx context.Context, in ListInput) ([]*trade.Trade, error) {
	switch in.Role {
	case "":
		in.Role = trade.RoleAll
	case trade.RoleAll, trade.RoleBuyer, trade.RoleSeller:
	default:
		return nil, trade.Validationf("unknown role %q", in.Role)
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, trade.Validationf("unknown status %q", *in.Status)
	}
	limit, offset := clampPage(in.Limit, in.Offset)
	return s.repo.List(ctx, trade.Filter{UserID: in.Caller, Role: in.Role, Status: in.Status}, limit, offset)
}

// ListEvents returns the timeline of a trade visible to caller, oldest first.
func (s *Service) ListEvents(ctx context.Context, tradeID, caller uuid.UUID, limit, offset int) ([]*trade.Event, error) {
	if _, err := s.Get(ctx, tradeID, caller); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)
	return s.repo.ListEvents(ctx, tradeID, limit, offset)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
