package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barterhub/barterhub/internal/domain/catalog"
)

func TestCatalog_GetProducts(t *testing.T) {
	owner := uuid.New()
	bike := &catalog.Product{ProductID: uuid.New(), OwnerID: owner, Title: "Bike", Price: decimal.NewFromInt(120), Available: true}
	c := NewCatalog(bike)
	ctx := context.Background()

	got, err := c.GetProduct(ctx, bike.ProductID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.OwnedBy(owner))

	got.Title = "mutated"
	again, err := c.GetProduct(ctx, bike.ProductID)
	require.NoError(t, err)
	assert.Equal(t, "Bike", again.Title)

	missing, err := c.GetProduct(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	unknown := uuid.New()
	found, err := c.GetProducts(ctx, []uuid.UUID{bike.ProductID, unknown})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.NotContains(t, found, unknown)
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	productID, ownerID := uuid.New(), uuid.New()
	seed := `[{"productId":"` + productID.String() + `","ownerId":"` + ownerID.String() + `","title":"Tent","price":"45.00","available":true}]`
	path := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	p, err := c.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, ownerID, p.OwnerID)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(45)))
	assert.False(t, p.CreatedAt.IsZero())

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[{"title":"no ids"}]`), 0o600))
	_, err = LoadCatalog(bad)
	assert.Error(t, err)

	_, err = LoadCatalog(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
