package inventory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kestrelhq/kestrel/internal/models"
	"github.com/kestrelhq/kestrel/pkg/metrics"
)

// SweepResult summarises one pass of the low-stock scan.
type SweepResult struct {
	Scanned      int `json:"scanned"`
	LowStock     int `json:"low_stock"`
	OutOfStock   int `json:"out_of_stock"`
	Deduplicated int `json:"deduplicated"`
}

// Sweep re-scans every variant at or below the threshold and re-emits alerts
// whose dedup window has lapsed. It backstops crossings missed at write time,
// for example after a notification insert failed.
func (e *Engine) Sweep(ctx context.Context) (*SweepResult, error) {
	ctx = ensureContext(ctx)

	var variants []models.ProductVariant
	if err := e.db.WithContext(ctx).
		Where("stock <= ?", e.threshold).
		Order("product_id, sku").
		Find(&variants).Error; err != nil {
		return nil, fmt.Errorf("stock sweep: list variants: %w", err)
	}

	result := &SweepResult{Scanned: len(variants)}

	for _, variant := range variants {
		notificationType := models.NotificationLowStock
		if variant.Stock == 0 {
			notificationType = models.NotificationOutOfStock
		}

		created, err := e.emitStockAlert(ctx, notificationType, variant.ProductID, variant.SKU, variant.Stock, variant.Stock)
		if err != nil {
			e.log.Warn("sweep alert not stored",
				zap.String("type", notificationType),
				zap.String("product_id", variant.ProductID),
				zap.String("sku", variant.SKU),
				zap.Error(err),
			)
			metrics.StockNotifications.WithLabelValues(notificationType, "error").Inc()
			continue
		}
		if !created {
			result.Deduplicated++
			metrics.StockNotifications.WithLabelValues(notificationType, "deduplicated").Inc()
			continue
		}

		metrics.StockNotifications.WithLabelValues(notificationType, "created").Inc()
		if notificationType == models.NotificationOutOfStock {
			result.OutOfStock++
		} else {
			result.LowStock++
		}
	}

	return result, nil
}
