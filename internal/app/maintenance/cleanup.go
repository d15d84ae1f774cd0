package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/kestrelhq/kestrel/internal/inventory"
	"github.com/kestrelhq/kestrel/internal/services"
	"github.com/kestrelhq/kestrel/pkg/logger"
)

const (
	defaultCartTTL       = 720 * time.Hour // 30 days
	defaultRetentionDays = 30
	defaultSweepSpec     = "@hourly"
	defaultRetentionSpec = "@daily"
)

// Cleaner coordinates background maintenance: the hourly stock sweep that
// backstops missed threshold alerts, the daily notification retention pass,
// and stale cart expiry.
type Cleaner struct {
	engine        *inventory.Engine
	notifications *services.NotificationService
	carts         *services.CartService
	settings      *services.SettingsService

	cron    *cron.Cron
	now     func() time.Time
	log     *zap.Logger
	cartTTL time.Duration

	sweepSchedule     string
	retentionSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for retention cutoffs.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithCartTTL adjusts how long untouched carts are retained.
func WithCartTTL(ttl time.Duration) Option {
	return func(cleaner *Cleaner) {
		if ttl > 0 {
			cleaner.cartTTL = ttl
		}
	}
}

// WithSweepSchedule overrides the cron specification for the stock sweep.
func WithSweepSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.sweepSchedule = spec
		}
	}
}

// WithRetentionSchedule overrides the cron specification for the retention pass.
func WithRetentionSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.retentionSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency
// results in the corresponding job being skipped.
func NewCleaner(engine *inventory.Engine, notifications *services.NotificationService, carts *services.CartService, settings *services.SettingsService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		engine:            engine,
		notifications:     notifications,
		carts:             carts,
		settings:          settings,
		now:               time.Now,
		cartTTL:           defaultCartTTL,
		sweepSchedule:     defaultSweepSpec,
		retentionSchedule: defaultRetentionSpec,
		log:               logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers maintenance jobs with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.engine != nil {
		if _, err := c.cron.AddFunc(c.sweepSchedule, func() {
			if _, err := c.engine.Sweep(context.Background()); err != nil {
				c.log.Warn("stock sweep failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.notifications != nil {
		if _, err := c.cron.AddFunc(c.retentionSchedule, func() {
			if _, err := c.purgeNotifications(context.Background()); err != nil {
				c.log.Warn("notification retention failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.carts != nil {
		if _, err := c.cron.AddFunc(c.retentionSchedule, func() {
			if _, err := c.carts.ExpireStale(context.Background(), c.now().Add(-c.cartTTL)); err != nil {
				c.log.Warn("cart expiry failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every configured maintenance routine sequentially. Used in
// tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.engine != nil {
		if _, err := c.engine.Sweep(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.notifications != nil {
		if _, err := c.purgeNotifications(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.carts != nil {
		if _, err := c.carts.ExpireStale(ctx, c.now().Add(-c.cartTTL)); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// purgeNotifications applies the retention window. The store-level setting
// wins over the configured default so operators can tune it without a deploy.
func (c *Cleaner) purgeNotifications(ctx context.Context) (int64, error) {
	days := defaultRetentionDays
	if c.settings != nil {
		days = c.settings.NotificationRetentionDays(ctx)
	}

	cutoff := c.now().Add(-time.Duration(days) * 24 * time.Hour)
	return c.notifications.PurgeOlderThan(ctx, cutoff)
}
