package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kestrelhq/kestrel/internal/database/testutil"
	"github.com/kestrelhq/kestrel/internal/inventory"
	"github.com/kestrelhq/kestrel/internal/models"
	"github.com/kestrelhq/kestrel/internal/permissions"
)

func openServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	ctx := context.Background()
	require.NoError(t, permissions.Sync(ctx, db))
	require.NoError(t, permissions.SeedRolePermissions(ctx, db))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email, role string) *models.User {
	t.Helper()

	user := &models.User{
		Email:       email,
		Password:    "hashed",
		PrimaryRole: role,
		IsActive:    true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestProduct(t *testing.T, db *gorm.DB, slug, sellerID string, stock int) (*models.Product, *models.ProductVariant) {
	t.Helper()

	product := &models.Product{
		Name:        slug,
		Slug:        slug,
		CreatedByID: sellerID,
		IsActive:    true,
	}
	require.NoError(t, db.Create(product).Error)

	variant := &models.ProductVariant{
		ProductID: product.ID,
		SKU:       slug + "-sku",
		Price:     decimal.NewFromInt(30),
		Stock:     stock,
	}
	require.NoError(t, db.Create(variant).Error)
	return product, variant
}

func newTestInventoryEngine(t *testing.T, db *gorm.DB) *inventory.Engine {
	t.Helper()

	engine, err := inventory.NewEngine(db)
	require.NoError(t, err)
	return engine
}
