package catalog

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_catalog.go -package=mocks . Catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the read model of a listed product. Trades only consult it.
type Product struct {
	ID        int64           `json:"id"`
	ProductID uuid.UUID       `json:"productId"`
	OwnerID   uuid.UUID       `json:"ownerId"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Available bool            `json:"available"`
	CreatedAt time.Time       `json:"createdAt"`
}

// OwnedBy reports whether the product currently belongs to userID.
func (p *Product) OwnedBy(userID uuid.UUID) bool {
	return p != nil && p.OwnerID == userID
}

// Catalog is the product lookup collaborator.
type Catalog interface {
	// GetProduct returns nil, nil when the product does not exist.
	GetProduct(ctx context.Context, productID uuid.UUID) (*Product, error)
	// GetProducts returns the products that exist, keyed by id.
	GetProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]*Product, error)
}
