package permissions

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kestrelhq/kestrel/internal/database/testutil"
	"github.com/kestrelhq/kestrel/internal/models"
	apperrors "github.com/kestrelhq/kestrel/pkg/errors"
)

func seedScopeFixtures(t *testing.T) (db *gorm.DB, adminID, sellerID, customerID string) {
	t.Helper()

	db = testutil.MustOpenTestDB(t, testutil.WithSeedData())

	admin := &models.User{Email: "scope-admin@kestrel.dev", Password: "x", PrimaryRole: models.RoleAdmin, IsActive: true}
	seller := &models.User{Email: "scope-seller@kestrel.dev", Password: "x", PrimaryRole: models.RoleSeller, IsActive: true}
	customer := &models.User{Email: "scope-customer@kestrel.dev", Password: "x", PrimaryRole: models.RoleCustomer, IsActive: true}
	require.NoError(t, db.Create(admin).Error)
	require.NoError(t, db.Create(seller).Error)
	require.NoError(t, db.Create(customer).Error)

	adminProduct := &models.Product{Name: "Admin Mug", Slug: "admin-mug", CreatedByID: admin.ID, IsActive: true}
	sellerProduct := &models.Product{Name: "Seller Mug", Slug: "seller-mug", CreatedByID: seller.ID, IsActive: true}
	require.NoError(t, db.Create(adminProduct).Error)
	require.NoError(t, db.Create(sellerProduct).Error)

	order := &models.Order{
		Code:   "ORD-1001",
		UserID: customer.ID,
		Status: models.OrderPending,
		Total:  decimal.NewFromInt(40),
		Items: []models.OrderItem{
			{ProductID: sellerProduct.ID, VariantSKU: "SM-1", SellerID: seller.ID, Quantity: 2, UnitPrice: decimal.NewFromInt(20)},
		},
	}
	require.NoError(t, db.Create(order).Error)

	return db, admin.ID, seller.ID, customer.ID
}

func TestScopeTable(t *testing.T) {
	db, adminID, sellerID, customerID := seedScopeFixtures(t)

	t.Run("super admin is unrestricted everywhere", func(t *testing.T) {
		for _, entity := range []Entity{EntityProduct, EntityOrder, EntityCategory, EntityUser} {
			require.True(t, ScopeFor(models.RoleSuperAdmin, "anyone", entity).Unrestricted())
		}
	})

	t.Run("admin products limited to own rows", func(t *testing.T) {
		var count int64
		require.NoError(t, ScopedQuery(db, models.RoleAdmin, adminID, EntityProduct).Count(&count).Error)
		require.EqualValues(t, 1, count)
	})

	t.Run("sub admin sees all products", func(t *testing.T) {
		var count int64
		require.NoError(t, ScopedQuery(db, models.RoleSubAdmin, adminID, EntityProduct).Count(&count).Error)
		require.EqualValues(t, 2, count)
	})

	t.Run("admin users limited to customers", func(t *testing.T) {
		var count int64
		require.NoError(t, ScopedQuery(db, models.RoleAdmin, adminID, EntityUser).Count(&count).Error)
		require.EqualValues(t, 1, count)
	})

	t.Run("seller orders restricted to own items", func(t *testing.T) {
		var count int64
		require.NoError(t, ScopedQuery(db, models.RoleSeller, sellerID, EntityOrder).Count(&count).Error)
		require.EqualValues(t, 1, count)

		require.NoError(t, ScopedQuery(db, models.RoleSeller, adminID, EntityOrder).Count(&count).Error)
		require.EqualValues(t, 0, count)
	})

	t.Run("customer sees only own orders", func(t *testing.T) {
		var count int64
		require.NoError(t, ScopedQuery(db, models.RoleCustomer, customerID, EntityOrder).Count(&count).Error)
		require.EqualValues(t, 1, count)
	})

	t.Run("unenumerated pairs deny all", func(t *testing.T) {
		require.True(t, ScopeFor(models.RoleCustomer, customerID, EntityProduct).DenyAll())
		require.True(t, ScopeFor(models.RoleSeller, sellerID, EntityCategory).DenyAll())
		require.True(t, ScopeFor("warehouse_bot", "u1", EntityProduct).DenyAll())

		var count int64
		require.NoError(t, ScopedQuery(db, "warehouse_bot", "u1", EntityProduct).Count(&count).Error)
		require.EqualValues(t, 0, count)
	})
}

func TestScopedFirstHidesForeignRowsAsNotFound(t *testing.T) {
	db, adminID, sellerID, _ := seedScopeFixtures(t)

	var sellerProduct models.Product
	require.NoError(t, db.Where("created_by_id = ?", sellerID).First(&sellerProduct).Error)

	// Admin cannot see the seller's product: 404, not 403.
	var out models.Product
	err := ScopedFirst(db, models.RoleAdmin, adminID, EntityProduct, sellerProduct.ID, &out)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	// The owner loads it fine.
	require.NoError(t, ScopedFirst(db, models.RoleSeller, sellerID, EntityProduct, sellerProduct.ID, &out))
	require.Equal(t, sellerProduct.ID, out.ID)
}
