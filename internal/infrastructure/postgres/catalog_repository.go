package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/barterhub/barterhub/internal/domain/catalog"
)

// CatalogRepository implements catalog.Catalog over the products table.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// Create inserts a product listing.
func (r *CatalogRepository) Create(ctx context.Context, p *catalog.Product) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO products (product_id, owner_id, title, price, available, created_at)
		VALUES ($1,$2,$3,$4::numeric,$5,$6)
		RETURNING id
	`, p.ProductID, p.OwnerID, p.Title, p.Price.String(), p.Available, p.CreatedAt).Scan(&p.ID)
}

func (r *CatalogRepository) GetProduct(ctx context.Context, productID uuid.UUID) (*catalog.Product, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, product_id, owner_id, title, price::text, available, created_at
		FROM products WHERE product_id=$1
	`, productID)
	return scanProduct(row)
}

func (r *CatalogRepository) GetProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	out := make(map[uuid.UUID]*catalog.Product, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, owner_id, title, price::text, available, created_at
		FROM products WHERE product_id = ANY($1)
	`, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ProductID] = p
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (*catalog.Product, error) {
	var p catalog.Product
	var price string
	if err := row.Scan(&p.ID, &p.ProductID, &p.OwnerID, &p.Title, &price, &p.Available, &p.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	amount, err := decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}
	p.Price = amount
	return &p, nil
}
