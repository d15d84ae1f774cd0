package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kestrelhq/kestrel/internal/inventory"
	"github.com/kestrelhq/kestrel/internal/models"
	"github.com/kestrelhq/kestrel/internal/permissions"
	"github.com/kestrelhq/kestrel/internal/realtime"
	"github.com/kestrelhq/kestrel/pkg/crypto"
	apperrors "github.com/kestrelhq/kestrel/pkg/errors"
	"github.com/kestrelhq/kestrel/pkg/logger"
)

// validTransitions encodes the order lifecycle. Delivered and cancelled are
// terminal.
var validTransitions = map[string][]string{
	models.OrderPending:    {models.OrderProcessing, models.OrderCancelled},
	models.OrderProcessing: {models.OrderShipped, models.OrderCancelled},
	models.OrderShipped:    {models.OrderDelivered},
}

// CheckoutItem is one line of a checkout request.
type CheckoutItem struct {
	ProductID  string
	VariantSKU string
	Quantity   int
}

// CheckoutInput creates an order from a customer's cart contents.
type CheckoutInput struct {
	UserID          string
	ShippingAddress string
	ShippingFee     decimal.Decimal
	Items           []CheckoutItem
}

// ListOrdersInput defines filters and pagination for order listings.
type ListOrdersInput struct {
	Page    int
	PerPage int
	Status  string
}

// OrderService manages the order lifecycle. Stock moves through the
// inventory engine on both checkout and cancellation so threshold alerts
// fire regardless of the mutation path.
type OrderService struct {
	db     *gorm.DB
	engine *inventory.Engine
	hub    *realtime.Hub
	log    *zap.Logger
}

// NewOrderService constructs an OrderService. The hub may be nil when
// realtime delivery is disabled.
func NewOrderService(db *gorm.DB, engine *inventory.Engine, hub *realtime.Hub) (*OrderService, error) {
	if db == nil {
		return nil, errors.New("order service: db is required")
	}
	if engine == nil {
		return nil, errors.New("order service: inventory engine is required")
	}
	return &OrderService{db: db, engine: engine, hub: hub, log: logger.WithModule("orders")}, nil
}

// Checkout validates availability, decrements stock through the engine, and
// records the order with per-seller attribution.
func (s *OrderService) Checkout(ctx context.Context, input CheckoutInput) (*models.Order, error) {
	ctx = ensureContext(ctx)

	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}
	if len(input.Items) == 0 {
		return nil, apperrors.NewBadRequest("order has no items")
	}

	type line struct {
		product *models.Product
		variant *models.ProductVariant
		qty     int
	}

	var lines []line
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, apperrors.NewBadRequest("item quantity must be positive")
		}

		var variant models.ProductVariant
		if err := s.db.WithContext(ctx).
			Where("product_id = ? AND sku = ?", strings.TrimSpace(item.ProductID), strings.TrimSpace(item.VariantSKU)).
			First(&variant).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NewBadRequest("unknown variant: " + item.VariantSKU)
			}
			return nil, fmt.Errorf("order service: load variant: %w", err)
		}

		var product models.Product
		if err := s.db.WithContext(ctx).First(&product, "id = ?", variant.ProductID).Error; err != nil {
			return nil, fmt.Errorf("order service: load product: %w", err)
		}
		if !product.IsActive {
			return nil, apperrors.NewBadRequest("product is not available: " + product.Name)
		}
		if variant.Stock < item.Quantity {
			return nil, apperrors.NewBadRequest("insufficient stock for " + variant.SKU)
		}

		lines = append(lines, line{product: &product, variant: &variant, qty: item.Quantity})
	}

	code, err := orderCode()
	if err != nil {
		return nil, fmt.Errorf("order service: generate code: %w", err)
	}

	now := time.Now().UTC()
	history, err := json.Marshal([]models.StatusChange{{
		Status:      models.OrderPending,
		ChangedByID: userID,
		ChangedAt:   now,
	}})
	if err != nil {
		return nil, fmt.Errorf("order service: encode history: %w", err)
	}

	order := &models.Order{
		Code:            code,
		UserID:          userID,
		Status:          models.OrderPending,
		StatusHistory:   datatypes.JSON(history),
		ShippingFee:     input.ShippingFee,
		ShippingAddress: strings.TrimSpace(input.ShippingAddress),
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		lineTotal := l.variant.Price.Mul(decimal.NewFromInt(int64(l.qty)))
		subtotal = subtotal.Add(lineTotal)
		order.Items = append(order.Items, models.OrderItem{
			ProductID:  l.product.ID,
			VariantSKU: l.variant.SKU,
			SellerID:   l.product.CreatedByID,
			Name:       l.product.Name,
			Quantity:   l.qty,
			UnitPrice:  l.variant.Price,
			LineTotal:  lineTotal,
		})
	}
	order.Subtotal = subtotal
	order.Total = subtotal.Add(input.ShippingFee)

	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, fmt.Errorf("order service: create order: %w", err)
	}

	// Decrement after the order exists; the engine floors at zero and runs
	// the threshold rules per variant.
	for _, l := range lines {
		if _, err := s.engine.ApplyStockDelta(ctx, l.product.ID, l.variant.SKU, inventory.OpDecrease, l.qty); err != nil {
			return nil, fmt.Errorf("order service: decrement stock: %w", err)
		}
	}

	s.notifySellers(ctx, order)
	return order, nil
}

// List returns orders visible to the viewer, newest first.
func (s *OrderService) List(ctx context.Context, viewer Viewer, input ListOrdersInput) ([]models.Order, int64, error) {
	ctx = ensureContext(ctx)

	page := input.Page
	if page < 1 {
		page = 1
	}
	perPage := input.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = 25
	}

	query := permissions.ScopedQuery(s.db.WithContext(ctx), viewer.Role, viewer.UserID, permissions.EntityOrder)
	if status := strings.TrimSpace(input.Status); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("order service: count orders: %w", err)
	}

	var orders []models.Order
	if err := query.
		Preload("Items").
		Order("created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("order service: list orders: %w", err)
	}
	return orders, total, nil
}

// Get loads a single order with items within the viewer's scope.
func (s *OrderService) Get(ctx context.Context, viewer Viewer, orderID string) (*models.Order, error) {
	ctx = ensureContext(ctx)

	var order models.Order
	err := permissions.ScopedQuery(s.db.WithContext(ctx), viewer.Role, viewer.UserID, permissions.EntityOrder).
		Preload("Items").
		Where("id = ?", strings.TrimSpace(orderID)).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("order service: load order: %w", err)
	}
	return &order, nil
}

// UpdateStatus moves an order along the lifecycle, appending to the status history.
func (s *OrderService) UpdateStatus(ctx context.Context, viewer Viewer, orderID, status, note string) (*models.Order, error) {
	ctx = ensureContext(ctx)

	status = strings.TrimSpace(status)
	order, err := s.Get(ctx, viewer, orderID)
	if err != nil {
		return nil, err
	}

	if !transitionAllowed(order.Status, status) {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("cannot move order from %s to %s", order.Status, status))
	}

	if status == models.OrderCancelled {
		return s.cancel(ctx, order, viewer.UserID, note)
	}

	if err := s.appendStatus(ctx, order, status, note, viewer.UserID); err != nil {
		return nil, err
	}

	s.broadcastStatus(order)
	return order, nil
}

// Cancel cancels an order and returns its stock through the engine.
func (s *OrderService) Cancel(ctx context.Context, viewer Viewer, orderID, note string) (*models.Order, error) {
	ctx = ensureContext(ctx)

	order, err := s.Get(ctx, viewer, orderID)
	if err != nil {
		return nil, err
	}
	if !transitionAllowed(order.Status, models.OrderCancelled) {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("cannot cancel a %s order", order.Status))
	}
	return s.cancel(ctx, order, viewer.UserID, note)
}

func (s *OrderService) cancel(ctx context.Context, order *models.Order, changedBy, note string) (*models.Order, error) {
	if err := s.appendStatus(ctx, order, models.OrderCancelled, note, changedBy); err != nil {
		return nil, err
	}

	for _, item := range order.Items {
		if _, err := s.engine.ApplyStockDelta(ctx, item.ProductID, item.VariantSKU, inventory.OpIncrease, item.Quantity); err != nil {
			return nil, fmt.Errorf("order service: restock %s: %w", item.VariantSKU, err)
		}
	}

	s.broadcastStatus(order)
	return order, nil
}

func (s *OrderService) appendStatus(ctx context.Context, order *models.Order, status, note, changedBy string) error {
	var history []models.StatusChange
	if len(order.StatusHistory) > 0 {
		if err := json.Unmarshal(order.StatusHistory, &history); err != nil {
			return fmt.Errorf("order service: decode history: %w", err)
		}
	}
	history = append(history, models.StatusChange{
		Status:      status,
		Note:        strings.TrimSpace(note),
		ChangedByID: changedBy,
		ChangedAt:   time.Now().UTC(),
	})

	encoded, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("order service: encode history: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(order).Updates(map[string]any{
		"status":         status,
		"status_history": datatypes.JSON(encoded),
	}).Error; err != nil {
		return fmt.Errorf("order service: update status: %w", err)
	}

	order.Status = status
	order.StatusHistory = datatypes.JSON(encoded)
	return nil
}

// notifySellers stores one NEW_ORDER notification per distinct seller on the
// order. Failures are logged, never returned: the order is already placed.
func (s *OrderService) notifySellers(ctx context.Context, order *models.Order) {
	sellers := make(map[string]struct{})
	for _, item := range order.Items {
		sellers[item.SellerID] = struct{}{}
	}

	for sellerID := range sellers {
		sellerID := sellerID
		notification := models.Notification{
			Type:             models.NotificationNewOrder,
			Title:            "New order " + order.Code,
			Message:          fmt.Sprintf("Order %s contains items you sell", order.Code),
			Severity:         "info",
			TargetUserID:     &sellerID,
			IsSellerSpecific: true,
		}
		if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
			s.log.Warn("new-order notification not stored",
				zap.String("order_code", order.Code),
				zap.String("seller_id", sellerID),
				zap.Error(err),
			)
			continue
		}
		if s.hub != nil {
			s.hub.BroadcastToUser(realtime.StreamNotifications, sellerID, realtime.Message{
				Event: "notification.created",
				Data:  notification,
			})
		}
	}
}

func (s *OrderService) broadcastStatus(order *models.Order) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToUser(realtime.StreamOrders, order.UserID, realtime.Message{
		Event: "order.status",
		Data: map[string]any{
			"order_id": order.ID,
			"code":     order.Code,
			"status":   order.Status,
		},
	})
}

func transitionAllowed(from, to string) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// orderCode builds a short human-referenceable order code.
func orderCode() (string, error) {
	token, err := crypto.GenerateToken(6)
	if err != nil {
		return "", err
	}
	return "ORD-" + strings.ToUpper(token), nil
}
