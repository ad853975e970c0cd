package trade

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import (
	"context"

	"github.com/google/uuid"
)

// Role filters trades by the caller's side.
type Role string

const (
	RoleAll    Role = "all"
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// Filter represents filters for listing trades.
type Filter struct {
	UserID uuid.UUID
	Role   Role
	Status *Status
}

// Matches reports whether t satisfies the filter.
func (f Filter) Matches(t *Trade) bool {
	switch f.Role {
	case RoleBuyer:
		if t.BuyerID != f.UserID {
			return false
		}
	case RoleSeller:
		if t.SellerID != f.UserID {
			return false
		}
	default:
		if t.BuyerID != f.UserID && t.SellerID != f.UserID {
			return false
		}
	}
	return f.Status == nil || t.Status == *f.Status
}

// MutateFunc validates and applies one action to a trade snapshot. Returning an
// error discards every change it made.
type MutateFunc func(t *Trade) error

// Repository defines the trade store. Mutate must serialize writers per trade:
// fn observes the latest committed state and its result is committed only when
// fn returns nil.
type Repository interface {
	Create(ctx context.Context, t *Trade) error
	GetByID(ctx context.Context, tradeID uuid.UUID) (*Trade, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Trade, error)
	Mutate(ctx context.Context, tradeID uuid.UUID, fn MutateFunc) (*Trade, error)

	CreateEvent(ctx context.Context, event *Event) error
	ListEvents(ctx context.Context, tradeID uuid.UUID, limit, offset int) ([]*Event, error)
}
