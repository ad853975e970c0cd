package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/barterhub/barterhub/internal/domain/catalog"
)

// Catalog is an in-process catalog.Catalog seeded by the caller.
type Catalog struct {
	mu       sync.RWMutex
	products map[uuid.UUID]*catalog.Product
}

func NewCatalog(products ...*catalog.Product) *Catalog {
	c := &Catalog{products: make(map[uuid.UUID]*catalog.Product)}
	for _, p := range products {
		c.Put(p)
	}
	return c
}

// LoadCatalog reads a JSON array of products from path. Products without a
// creation time are stamped with the load time.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var products []*catalog.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("decode catalog seed %s: %w", path, err)
	}
	now := time.Now().UTC()
	for i, p := range products {
		if p == nil || p.ProductID == uuid.Nil || p.OwnerID == uuid.Nil {
			return nil, fmt.Errorf("catalog seed %s: product %d needs productId and ownerId", path, i)
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
	}
	return NewCatalog(products...), nil
}

// Put adds or replaces a product.
func (c *Catalog) Put(p *catalog.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *p
	c.products[p.ProductID] = &cp
}

func (c *Catalog) GetProduct(ctx context.Context, productID uuid.UUID) (*catalog.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[productID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (c *Catalog) GetProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[uuid.UUID]*catalog.Product, len(productIDs))
	for _, id := range productIDs {
		if p, ok := c.products[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}
