package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kestrelhq/kestrel/internal/models"
)

func TestSweepEmitsForVariantsBelowThreshold(t *testing.T) {
	db, engine := newTestEngine(t)
	seedProduct(t, db, "sweep-mug", map[string]int{"SW-LOW": 3, "SW-OUT": 0, "SW-OK": 40})
	ctx := context.Background()

	result, err := engine.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, result.Scanned)
	require.Equal(t, 1, result.LowStock)
	require.Equal(t, 1, result.OutOfStock)
	require.Equal(t, 0, result.Deduplicated)

	require.EqualValues(t, 1, countNotifications(t, db, models.NotificationLowStock))
	require.EqualValues(t, 1, countNotifications(t, db, models.NotificationOutOfStock))
}

func TestSweepRespectsDedupWindow(t *testing.T) {
	clock := time.Now()
	db, engine := newTestEngine(t, WithNow(func() time.Time { return clock }))
	seedProduct(t, db, "sweep-dedup-mug", map[string]int{"SD-1": 2})
	ctx := context.Background()

	result, err := engine.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.LowStock)

	// A second pass inside the window creates nothing.
	result, err = engine.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, result.LowStock)
	require.Equal(t, 1, result.Deduplicated)
	require.EqualValues(t, 1, countNotifications(t, db, models.NotificationLowStock))

	// After the window the still-low variant is re-reported.
	clock = clock.Add(DedupWindow + time.Hour)
	result, err = engine.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.LowStock)
	require.EqualValues(t, 2, countNotifications(t, db, models.NotificationLowStock))
}

func TestSweepBackstopsMissedWriteTimeAlert(t *testing.T) {
	db, engine := newTestEngine(t)
	product := seedProduct(t, db, "sweep-missed-mug", map[string]int{"SM-1": 4})

	// Simulate a crossing whose write-time alert was lost: stock is already
	// low and no notification exists. The sweep picks it up.
	result, err := engine.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.LowStock)

	var notification models.Notification
	require.NoError(t, db.Where("type = ?", models.NotificationLowStock).First(&notification).Error)
	require.Equal(t, product.ID, *notification.ProductID)
}
