package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kestrelhq/kestrel/internal/inventory"
	"github.com/kestrelhq/kestrel/internal/models"
	apperrors "github.com/kestrelhq/kestrel/pkg/errors"
)

func newProductService(t *testing.T) (*ProductService, *models.User) {
	t.Helper()

	db := openServiceDB(t)
	svc, err := NewProductService(db, newTestInventoryEngine(t, db))
	require.NoError(t, err)
	seller := createTestUser(t, db, "prod-seller@kestrel.dev", models.RoleSeller)
	return svc, seller
}

func TestCreateProductSlugAndZeroStockStart(t *testing.T) {
	svc, seller := newProductService(t)
	ctx := context.Background()

	product, err := svc.Create(ctx, CreateProductInput{
		Name:        "Harbor Blue Mug",
		CreatedByID: seller.ID,
		Variants: []VariantInput{
			{SKU: "HBM-1", Price: decimal.NewFromInt(18), Stock: 4},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "harbor-blue-mug", product.Slug)
	require.True(t, product.IsActive)

	// A product created with no stock starts inactive and tagged.
	empty, err := svc.Create(ctx, CreateProductInput{
		Name:        "Empty Shelf Mug",
		CreatedByID: seller.ID,
		Variants: []VariantInput{
			{SKU: "ESM-1", Price: decimal.NewFromInt(18), Stock: 0},
		},
	})
	require.NoError(t, err)
	require.False(t, empty.IsActive)
	require.Equal(t, models.DeactivationOutOfStock, empty.DeactivationReason)
}

func TestCreateProductDuplicateSlugConflicts(t *testing.T) {
	svc, seller := newProductService(t)
	ctx := context.Background()

	input := CreateProductInput{
		Name:        "Twin Mug",
		CreatedByID: seller.ID,
		Variants:    []VariantInput{{SKU: "TW-1", Price: decimal.NewFromInt(10), Stock: 3}},
	}
	_, err := svc.Create(ctx, input)
	require.NoError(t, err)

	input.Variants = []VariantInput{{SKU: "TW-2", Price: decimal.NewFromInt(10), Stock: 3}}
	_, err = svc.Create(ctx, input)
	require.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestSellerCannotTouchForeignProduct(t *testing.T) {
	db := openServiceDB(t)
	svc, err := NewProductService(db, newTestInventoryEngine(t, db))
	require.NoError(t, err)

	owner := createTestUser(t, db, "owner@kestrel.dev", models.RoleSeller)
	intruder := createTestUser(t, db, "intruder@kestrel.dev", models.RoleSeller)
	product, variant := createTestProduct(t, db, "foreign-mug", owner.ID, 10)

	ctx := context.Background()

	// Hidden rows surface as not found, never forbidden.
	_, err = svc.Get(ctx, Viewer{UserID: intruder.ID, Role: models.RoleSeller}, product.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.MutateStock(ctx, Viewer{UserID: intruder.ID, Role: models.RoleSeller}, product.ID, variant.SKU, inventory.OpSet, 0)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	// The owner can.
	change, err := svc.MutateStock(ctx, Viewer{UserID: owner.ID, Role: models.RoleSeller}, product.ID, variant.SKU, inventory.OpDecrease, 2)
	require.NoError(t, err)
	require.Equal(t, 8, change.NewStock)
}

func TestManualToggleTagsReason(t *testing.T) {
	db := openServiceDB(t)
	engine := newTestInventoryEngine(t, db)
	svc, err := NewProductService(db, engine)
	require.NoError(t, err)

	seller := createTestUser(t, db, "toggle-seller@kestrel.dev", models.RoleSeller)
	product, variant := createTestProduct(t, db, "manual-mug", seller.ID, 10)

	ctx := context.Background()
	viewer := Viewer{UserID: seller.ID, Role: models.RoleSeller}

	product, err = svc.SetActive(ctx, viewer, product.ID, false)
	require.NoError(t, err)
	require.Equal(t, models.DeactivationManual, product.DeactivationReason)

	// Restocking through the engine does not clear the manual hold.
	_, err = engine.ApplyStockDelta(ctx, product.ID, variant.SKU, inventory.OpIncrease, 5)
	require.NoError(t, err)

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, "id = ?", product.ID).Error)
	require.False(t, reloaded.IsActive)
	require.Equal(t, models.DeactivationManual, reloaded.DeactivationReason)

	// Manual reactivation clears it.
	product, err = svc.SetActive(ctx, viewer, product.ID, true)
	require.NoError(t, err)
	require.True(t, product.IsActive)
	require.Equal(t, models.DeactivationNone, product.DeactivationReason)
}

func TestDeleteRefusedWhenOrdered(t *testing.T) {
	db := openServiceDB(t)
	svc, err := NewProductService(db, newTestInventoryEngine(t, db))
	require.NoError(t, err)

	seller := createTestUser(t, db, "del-seller@kestrel.dev", models.RoleSeller)
	customer := createTestUser(t, db, "del-customer@kestrel.dev", models.RoleCustomer)
	product, variant := createTestProduct(t, db, "ordered-mug", seller.ID, 10)

	orders, err := NewOrderService(db, newTestInventoryEngine(t, db), nil)
	require.NoError(t, err)
	_, err = orders.Checkout(context.Background(), CheckoutInput{
		UserID: customer.ID,
		Items:  []CheckoutItem{{ProductID: product.ID, VariantSKU: variant.SKU, Quantity: 1}},
	})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), Viewer{UserID: seller.ID, Role: models.RoleSeller}, product.ID)
	require.Error(t, err)
}
