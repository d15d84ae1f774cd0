package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrelhq/kestrel/internal/models"
)

func TestCheckoutDecrementsStockAndNotifiesSeller(t *testing.T) {
	db := openServiceDB(t)
	svc, err := NewOrderService(db, newTestInventoryEngine(t, db), nil)
	require.NoError(t, err)

	seller := createTestUser(t, db, "order-seller@kestrel.dev", models.RoleSeller)
	customer := createTestUser(t, db, "order-customer@kestrel.dev", models.RoleCustomer)
	product, variant := createTestProduct(t, db, "checkout-mug", seller.ID, 10)

	ctx := context.Background()
	order, err := svc.Checkout(ctx, CheckoutInput{
		UserID:          customer.ID,
		ShippingAddress: "1 Harbor Way",
		Items: []CheckoutItem{
			{ProductID: product.ID, VariantSKU: variant.SKU, Quantity: 3},
		},
	})
	require.NoError(t, err)
	require.Equal(t, models.OrderPending, order.Status)
	require.Len(t, order.Items, 1)
	require.Equal(t, seller.ID, order.Items[0].SellerID)
	require.Equal(t, "90", order.Subtotal.String())

	var reloaded models.ProductVariant
	require.NoError(t, db.First(&reloaded, "id = ?", variant.ID).Error)
	require.Equal(t, 7, reloaded.Stock)

	var notification models.Notification
	require.NoError(t, db.Where("type = ?", models.NotificationNewOrder).First(&notification).Error)
	require.Equal(t, seller.ID, *notification.TargetUserID)
}

func TestCheckoutRejectsInsufficientStock(t *testing.T) {
	db := openServiceDB(t)
	svc, err := NewOrderService(db, newTestInventoryEngine(t, db), nil)
	require.NoError(t, err)

	seller := createTestUser(t, db, "short-seller@kestrel.dev", models.RoleSeller)
	customer := createTestUser(t, db, "short-customer@kestrel.dev", models.RoleCustomer)
	product, variant := createTestProduct(t, db, "short-mug", seller.ID, 2)

	_, err = svc.Checkout(context.Background(), CheckoutInput{
		UserID: customer.ID,
		Items:  []CheckoutItem{{ProductID: product.ID, VariantSKU: variant.SKU, Quantity: 5}},
	})
	require.Error(t, err)

	// Nothing was written.
	var orders int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	require.EqualValues(t, 0, orders)
}

func TestStatusTransitionsAreValidated(t *testing.T) {
	db := openServiceDB(t)
	svc, err := NewOrderService(db, newTestInventoryEngine(t, db), nil)
	require.NoError(t, err)

	seller := createTestUser(t, db, "flow-seller@kestrel.dev", models.RoleSeller)
	customer := createTestUser(t, db, "flow-customer@kestrel.dev", models.RoleCustomer)
	product, variant := createTestProduct(t, db, "flow-mug", seller.ID, 10)

	ctx := context.Background()
	order, err := svc.Checkout(ctx, CheckoutInput{
		UserID: customer.ID,
		Items:  []CheckoutItem{{ProductID: product.ID, VariantSKU: variant.SKU, Quantity: 1}},
	})
	require.NoError(t, err)

	viewer := Viewer{UserID: "", Role: models.RoleSuperAdmin}

	// pending -> shipped is not a legal jump.
	_, err = svc.UpdateStatus(ctx, viewer, order.ID, models.OrderShipped, "")
	require.Error(t, err)

	order, err = svc.UpdateStatus(ctx, viewer, order.ID, models.OrderProcessing, "packed")
	require.NoError(t, err)
	require.Equal(t, models.OrderProcessing, order.Status)

	order, err = svc.UpdateStatus(ctx, viewer, order.ID, models.OrderShipped, "")
	require.NoError(t, err)
	order, err = svc.UpdateStatus(ctx, viewer, order.ID, models.OrderDelivered, "")
	require.NoError(t, err)

	// Delivered is terminal.
	_, err = svc.UpdateStatus(ctx, viewer, order.ID, models.OrderCancelled, "")
	require.Error(t, err)
}

func TestCancelRestocksItems(t *testing.T) {
	db := openServiceDB(t)
	svc, err := NewOrderService(db, newTestInventoryEngine(t, db), nil)
	require.NoError(t, err)

	seller := createTestUser(t, db, "cancel-seller@kestrel.dev", models.RoleSeller)
	customer := createTestUser(t, db, "cancel-customer@kestrel.dev", models.RoleCustomer)
	product, variant := createTestProduct(t, db, "cancel-mug", seller.ID, 10)

	ctx := context.Background()
	order, err := svc.Checkout(ctx, CheckoutInput{
		UserID: customer.ID,
		Items:  []CheckoutItem{{ProductID: product.ID, VariantSKU: variant.SKU, Quantity: 4}},
	})
	require.NoError(t, err)

	viewer := Viewer{Role: models.RoleSuperAdmin}
	order, err = svc.Cancel(ctx, viewer, order.ID, "changed mind")
	require.NoError(t, err)
	require.Equal(t, models.OrderCancelled, order.Status)

	var reloaded models.ProductVariant
	require.NoError(t, db.First(&reloaded, "id = ?", variant.ID).Error)
	require.Equal(t, 10, reloaded.Stock)
}

func TestSellerSeesOnlyOwnOrders(t *testing.T) {
	db := openServiceDB(t)
	svc, err := NewOrderService(db, newTestInventoryEngine(t, db), nil)
	require.NoError(t, err)

	sellerA := createTestUser(t, db, "scope-seller-a@kestrel.dev", models.RoleSeller)
	sellerB := createTestUser(t, db, "scope-seller-b@kestrel.dev", models.RoleSeller)
	customer := createTestUser(t, db, "scope-buyer@kestrel.dev", models.RoleCustomer)
	productA, variantA := createTestProduct(t, db, "scope-mug-a", sellerA.ID, 10)

	ctx := context.Background()
	_, err = svc.Checkout(ctx, CheckoutInput{
		UserID: customer.ID,
		Items:  []CheckoutItem{{ProductID: productA.ID, VariantSKU: variantA.SKU, Quantity: 1}},
	})
	require.NoError(t, err)

	orders, total, err := svc.List(ctx, Viewer{UserID: sellerA.ID, Role: models.RoleSeller}, ListOrdersInput{})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, orders, 1)

	_, total, err = svc.List(ctx, Viewer{UserID: sellerB.ID, Role: models.RoleSeller}, ListOrdersInput{})
	require.NoError(t, err)
	require.EqualValues(t, 0, total)
}
