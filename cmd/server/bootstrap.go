package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gin-gonic/gin"

	"github.com/kestrelhq/kestrel/internal/api"
	"github.com/kestrelhq/kestrel/internal/app"
	"github.com/kestrelhq/kestrel/internal/app/maintenance"
	iauth "github.com/kestrelhq/kestrel/internal/auth"
	"github.com/kestrelhq/kestrel/internal/database"
	"github.com/kestrelhq/kestrel/internal/inventory"
	"github.com/kestrelhq/kestrel/internal/permissions"
	"github.com/kestrelhq/kestrel/internal/realtime"
	"github.com/kestrelhq/kestrel/internal/services"
	"github.com/kestrelhq/kestrel/pkg/logger"
)

// runtimeStack bundles long-lived components used by the HTTP server.
type runtimeStack struct {
	DB      *gorm.DB
	Hub     *realtime.Hub
	Cleaner *maintenance.Cleaner
	Router  *gin.Engine
}

// bootstrapRuntime initialises the database, services, maintenance jobs, and
// the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	if err := permissions.Sync(ctx, stack.DB); err != nil {
		return nil, fmt.Errorf("sync permission catalog: %w", err)
	}
	if err := permissions.SeedRolePermissions(ctx, stack.DB); err != nil {
		return nil, fmt.Errorf("seed role permissions: %w", err)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	resolver, err := permissions.NewResolver(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise permission resolver: %w", err)
	}

	if cfg.Realtime.Enabled {
		stack.Hub = realtime.NewHub()
	}

	settingsSvc, err := services.NewSettingsService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise settings service: %w", err)
	}

	// The store-level setting overrides the configured threshold so operators
	// can tune alerting at runtime.
	threshold := settingsSvc.LowStockThreshold(ctx)
	if threshold <= 0 {
		threshold = cfg.Inventory.LowStockThreshold
	}
	engine, err := inventory.NewEngine(stack.DB, inventory.WithThreshold(threshold))
	if err != nil {
		return nil, fmt.Errorf("initialise stock engine: %w", err)
	}

	authSvc, err := services.NewAuthService(stack.DB, jwtSvc)
	if err != nil {
		return nil, fmt.Errorf("initialise auth service: %w", err)
	}
	roleSvc, err := services.NewRoleService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise role service: %w", err)
	}
	userSvc, err := services.NewUserService(stack.DB, roleSvc)
	if err != nil {
		return nil, fmt.Errorf("initialise user service: %w", err)
	}
	productSvc, err := services.NewProductService(stack.DB, engine)
	if err != nil {
		return nil, fmt.Errorf("initialise product service: %w", err)
	}
	categorySvc, err := services.NewCategoryService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise category service: %w", err)
	}
	orderSvc, err := services.NewOrderService(stack.DB, engine, stack.Hub)
	if err != nil {
		return nil, fmt.Errorf("initialise order service: %w", err)
	}
	notificationSvc, err := services.NewNotificationService(stack.DB, stack.Hub)
	if err != nil {
		return nil, fmt.Errorf("initialise notification service: %w", err)
	}
	cartSvc, err := services.NewCartService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise cart service: %w", err)
	}
	wishlistSvc, err := services.NewWishlistService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise wishlist service: %w", err)
	}

	if cfg.Maintenance.Enabled {
		stack.Cleaner = maintenance.NewCleaner(
			engine,
			notificationSvc,
			cartSvc,
			settingsSvc,
			maintenance.WithCartTTL(cfg.Maintenance.CartTTL),
			maintenance.WithSweepSchedule(cfg.Inventory.SweepSchedule),
			maintenance.WithRetentionSchedule(cfg.Maintenance.RetentionSchedule),
		)
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		DB:            stack.DB,
		JWT:           jwtSvc,
		Resolver:      resolver,
		Hub:           stack.Hub,
		Auth:          authSvc,
		Users:         userSvc,
		Roles:         roleSvc,
		Products:      productSvc,
		Categories:    categorySvc,
		Orders:        orderSvc,
		Notifications: notificationSvc,
		Settings:      settingsSvc,
		Carts:         cartSvc,
		Wishlists:     wishlistSvc,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	return stack, nil
}

// Shutdown releases resources held by the runtime stack.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	closeDatabase(s.DB, log)
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("access raw database handle", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("close database", zap.Error(err))
	}
}
