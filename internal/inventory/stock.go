package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kestrelhq/kestrel/internal/models"
	apperrors "github.com/kestrelhq/kestrel/pkg/errors"
	"github.com/kestrelhq/kestrel/pkg/logger"
	"github.com/kestrelhq/kestrel/pkg/metrics"
)

// Op enumerates the supported stock mutations.
type Op string

const (
	OpSet      Op = "set"
	OpIncrease Op = "increase"
	OpDecrease Op = "decrease"
)

const (
	// DefaultLowStockThreshold is the stock level at or below which a
	// LOW_STOCK alert fires on a downward crossing.
	DefaultLowStockThreshold = 5

	// DedupWindow suppresses repeat alerts for the same
	// (type, product, variant) within this period.
	DedupWindow = 24 * time.Hour
)

// Validation failures surfaced before any mutation happens.
var (
	ErrUnknownOperation = apperrors.New("STOCK_UNKNOWN_OPERATION", "Unknown stock operation", 400)
	ErrNegativeAmount   = apperrors.New("STOCK_NEGATIVE_AMOUNT", "Stock amount must not be negative", 400)
)

// StockChange reports the outcome of a stock mutation.
type StockChange struct {
	ProductID  string `json:"product_id"`
	VariantSKU string `json:"variant_sku"`
	Op         Op     `json:"op"`

	PreviousStock int `json:"previous_stock"`
	NewStock      int `json:"new_stock"`

	ProductActivated   bool `json:"product_activated"`
	ProductDeactivated bool `json:"product_deactivated"`

	// NotificationType is set when a threshold alert was stored, empty when
	// nothing fired or the dedup window suppressed it.
	NotificationType string `json:"notification_type,omitempty"`
}

// Engine applies stock deltas and evaluates the threshold rules on every
// write. Notification persistence is a non-fatal side effect: a failed
// insert is logged, never returned.
type Engine struct {
	db        *gorm.DB
	threshold int
	now       func() time.Time
	log       *zap.Logger
}

// EngineOption customises the Engine.
type EngineOption func(*Engine)

// WithThreshold overrides the low-stock threshold.
func WithThreshold(threshold int) EngineOption {
	return func(e *Engine) {
		if threshold > 0 {
			e.threshold = threshold
		}
	}
}

// WithNow overrides the clock, primarily for dedup-window tests.
func WithNow(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine constructs a stock engine backed by the provided database.
func NewEngine(db *gorm.DB, opts ...EngineOption) (*Engine, error) {
	if db == nil {
		return nil, errors.New("stock engine: db is required")
	}

	engine := &Engine{
		db:        db,
		threshold: DefaultLowStockThreshold,
		now:       time.Now,
		log:       logger.WithModule("inventory"),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

// ApplyStockDelta mutates a single variant's stock and recomputes the
// product's derived active flag. Decrease floors at zero. The variant write
// is conditional on the previously read value so the previous/new pair used
// for threshold detection is the pair that actually hit the row.
func (e *Engine) ApplyStockDelta(ctx context.Context, productID, sku string, op Op, amount int) (*StockChange, error) {
	ctx = ensureContext(ctx)

	productID = strings.TrimSpace(productID)
	sku = strings.TrimSpace(sku)
	if productID == "" {
		return nil, apperrors.NewBadRequest("product id is required")
	}
	if sku == "" {
		return nil, apperrors.NewBadRequest("variant sku is required")
	}
	if amount < 0 {
		return nil, ErrNegativeAmount
	}
	switch op {
	case OpSet, OpIncrease, OpDecrease:
	default:
		return nil, ErrUnknownOperation
	}

	var change *StockChange

	// One retry when a concurrent writer moved the stock between our read
	// and the conditional write.
	for attempt := 0; attempt < 2; attempt++ {
		result, conflict, err := e.applyOnce(ctx, productID, sku, op, amount)
		if err != nil {
			return nil, err
		}
		if !conflict {
			change = result
			break
		}
		if attempt == 1 {
			return nil, apperrors.ErrConflict.WithInternal(errors.New("stock engine: concurrent update"))
		}
	}

	metrics.StockMutations.WithLabelValues(string(op)).Inc()

	change.NotificationType = e.evaluateThreshold(ctx, productID, sku, change.PreviousStock, change.NewStock)
	return change, nil
}

// applyOnce performs one read + conditional-write round. conflict is true
// when the precondition failed and the caller should retry.
func (e *Engine) applyOnce(ctx context.Context, productID, sku string, op Op, amount int) (*StockChange, bool, error) {
	change := &StockChange{ProductID: productID, VariantSKU: sku, Op: op}
	conflict := false

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var variant models.ProductVariant
		if err := tx.Where("product_id = ? AND sku = ?", productID, sku).First(&variant).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("stock engine: load variant: %w", err)
		}

		previous := variant.Stock
		next := previous
		switch op {
		case OpSet:
			next = amount
		case OpIncrease:
			next = previous + amount
		case OpDecrease:
			next = previous - amount
			if next < 0 {
				next = 0
			}
		}

		change.PreviousStock = previous
		change.NewStock = next

		result := tx.Model(&models.ProductVariant{}).
			Where("id = ? AND stock = ?", variant.ID, previous).
			Update("stock", next)
		if result.Error != nil {
			return fmt.Errorf("stock engine: write stock: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			conflict = true
			return nil
		}

		activated, deactivated, err := e.recomputeActive(tx, productID)
		if err != nil {
			return err
		}
		change.ProductActivated = activated
		change.ProductDeactivated = deactivated
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return change, conflict, nil
}

// recomputeActive derives the product's active flag from aggregate variant
// stock. A manual hold is never overridden by a stock-driven reactivation.
func (e *Engine) recomputeActive(tx *gorm.DB, productID string) (activated, deactivated bool, err error) {
	var product models.Product
	if err := tx.First(&product, "id = ?", productID).Error; err != nil {
		return false, false, fmt.Errorf("stock engine: load product: %w", err)
	}

	var aggregate int64
	if err := tx.Model(&models.ProductVariant{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(stock), 0)").
		Scan(&aggregate).Error; err != nil {
		return false, false, fmt.Errorf("stock engine: aggregate stock: %w", err)
	}

	switch {
	case aggregate == 0 && product.IsActive:
		if err := tx.Model(&product).Updates(map[string]any{
			"is_active":           false,
			"deactivation_reason": models.DeactivationOutOfStock,
		}).Error; err != nil {
			return false, false, fmt.Errorf("stock engine: deactivate product: %w", err)
		}
		return false, true, nil

	case aggregate > 0 && !product.IsActive && product.DeactivationReason == models.DeactivationOutOfStock:
		if err := tx.Model(&product).Updates(map[string]any{
			"is_active":           true,
			"deactivation_reason": models.DeactivationNone,
		}).Error; err != nil {
			return false, false, fmt.Errorf("stock engine: reactivate product: %w", err)
		}
		return true, false, nil
	}

	return false, false, nil
}

// evaluateThreshold fires the downward-crossing rules. Restock crossings are
// intentionally silent here; the hourly sweep re-scans and re-emits when
// conditions still hold.
func (e *Engine) evaluateThreshold(ctx context.Context, productID, sku string, previous, next int) string {
	var notificationType string
	switch {
	case next == 0 && previous > 0:
		notificationType = models.NotificationOutOfStock
	case next > 0 && next <= e.threshold && previous > e.threshold:
		notificationType = models.NotificationLowStock
	default:
		return ""
	}

	created, err := e.emitStockAlert(ctx, notificationType, productID, sku, previous, next)
	if err != nil {
		// Never fail the stock mutation over a notification problem.
		e.log.Warn("stock alert not stored",
			zap.String("type", notificationType),
			zap.String("product_id", productID),
			zap.String("sku", sku),
			zap.Error(err),
		)
		metrics.StockNotifications.WithLabelValues(notificationType, "error").Inc()
		return ""
	}
	if !created {
		metrics.StockNotifications.WithLabelValues(notificationType, "deduplicated").Inc()
		return ""
	}

	metrics.StockNotifications.WithLabelValues(notificationType, "created").Inc()
	return notificationType
}

// emitStockAlert stores a stock notification unless an equivalent one exists
// within the dedup window. Returns whether a row was created.
func (e *Engine) emitStockAlert(ctx context.Context, notificationType, productID, sku string, previous, next int) (bool, error) {
	since := e.now().Add(-DedupWindow)

	var existing int64
	if err := e.db.WithContext(ctx).Model(&models.Notification{}).
		Where("type = ? AND product_id = ? AND variant_sku = ? AND created_at >= ?",
			notificationType, productID, sku, since).
		Count(&existing).Error; err != nil {
		return false, fmt.Errorf("stock engine: dedup lookup: %w", err)
	}
	if existing > 0 {
		return false, nil
	}

	var product models.Product
	if err := e.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		return false, fmt.Errorf("stock engine: load product for alert: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"previous_stock": previous,
		"stock":          next,
	})
	if err != nil {
		return false, fmt.Errorf("stock engine: encode alert payload: %w", err)
	}

	title := fmt.Sprintf("Low stock: %s (%s)", product.Name, sku)
	message := fmt.Sprintf("Variant %s of %q is down to %d units", sku, product.Name, next)
	if notificationType == models.NotificationOutOfStock {
		title = fmt.Sprintf("Out of stock: %s (%s)", product.Name, sku)
		message = fmt.Sprintf("Variant %s of %q is out of stock", sku, product.Name)
	}

	notification := models.Notification{
		Type:             notificationType,
		Title:            title,
		Message:          message,
		Severity:         "warning",
		Data:             datatypes.JSON(payload),
		ProductID:        &product.ID,
		VariantSKU:       sku,
		TargetUserID:     &product.CreatedByID,
		IsSellerSpecific: true,
	}

	if err := e.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return false, fmt.Errorf("stock engine: store alert: %w", err)
	}
	return true, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
