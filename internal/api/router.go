package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/kestrelhq/kestrel/internal/auth"
	"github.com/kestrelhq/kestrel/internal/handlers"
	"github.com/kestrelhq/kestrel/internal/middleware"
	"github.com/kestrelhq/kestrel/internal/permissions"
	"github.com/kestrelhq/kestrel/internal/realtime"
	"github.com/kestrelhq/kestrel/internal/services"
)

// Dependencies carries the constructed services the router wires into handlers.
type Dependencies struct {
	DB       *gorm.DB
	JWT      *iauth.JWTService
	Resolver *permissions.Resolver
	Hub      *realtime.Hub

	Auth          *services.AuthService
	Users         *services.UserService
	Roles         *services.RoleService
	Products      *services.ProductService
	Categories    *services.CategoryService
	Orders        *services.OrderService
	Notifications *services.NotificationService
	Settings      *services.SettingsService
	Carts         *services.CartService
	Wishlists     *services.WishlistService
}

func (d Dependencies) validate() error {
	switch {
	case d.DB == nil:
		return fmt.Errorf("router: database handle must be provided")
	case d.JWT == nil:
		return fmt.Errorf("router: jwt service must be provided")
	case d.Resolver == nil:
		return fmt.Errorf("router: permission resolver must be provided")
	case d.Auth == nil, d.Users == nil, d.Roles == nil, d.Products == nil,
		d.Categories == nil, d.Orders == nil, d.Notifications == nil,
		d.Settings == nil, d.Carts == nil, d.Wishlists == nil:
		return fmt.Errorf("router: all services must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	r.NoRoute(middleware.NotFoundHandler)

	// Public surface
	healthHandler := handlers.NewHealthHandler(deps.DB)
	r.GET("/health", healthHandler.Check)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handlers.NewAuthHandler(deps.Auth)
	r.POST("/api/auth/login", authHandler.Login)

	resolver := deps.Resolver
	gate := func(module, action string) gin.HandlerFunc {
		return middleware.RequireAccess(resolver, module, action)
	}

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.JWT))

	api.GET("/auth/me", authHandler.Me)

	// Products
	productHandler := handlers.NewProductHandler(deps.Products)
	products := api.Group("/products")
	{
		products.GET("", gate(permissions.ModuleProducts, permissions.ActionRead), productHandler.List)
		products.GET("/:id", gate(permissions.ModuleProducts, permissions.ActionRead), productHandler.Get)
		products.POST("", gate(permissions.ModuleProducts, permissions.ActionCreateAssets), productHandler.Create)
		products.PATCH("/:id", gate(permissions.ModuleProducts, permissions.ActionEdit), productHandler.Update)
		products.PATCH("/:id/active", gate(permissions.ModuleProducts, permissions.ActionEdit), productHandler.SetActive)
		products.PATCH("/:id/variants/:sku/stock", gate(permissions.ModuleProducts, permissions.ActionEdit), productHandler.MutateStock)
		products.DELETE("/:id", gate(permissions.ModuleProducts, permissions.ActionDelete), productHandler.Delete)
	}

	// Categories
	categoryHandler := handlers.NewCategoryHandler(deps.Categories)
	categories := api.Group("/categories")
	{
		categories.GET("", gate(permissions.ModuleCategories, permissions.ActionRead), categoryHandler.List)
		categories.GET("/:id", gate(permissions.ModuleCategories, permissions.ActionRead), categoryHandler.Get)
		categories.POST("", gate(permissions.ModuleCategories, permissions.ActionCreateAssets), categoryHandler.Create)
		categories.PATCH("/:id", gate(permissions.ModuleCategories, permissions.ActionEdit), categoryHandler.Update)
		categories.DELETE("/:id", gate(permissions.ModuleCategories, permissions.ActionDelete), categoryHandler.Delete)
	}

	// Orders
	orderHandler := handlers.NewOrderHandler(deps.Orders)
	orders := api.Group("/orders")
	{
		orders.GET("", gate(permissions.ModuleOrders, permissions.ActionRead), orderHandler.List)
		orders.GET("/:id", gate(permissions.ModuleOrders, permissions.ActionRead), orderHandler.Get)
		orders.POST("", orderHandler.Checkout)
		orders.PATCH("/:id/status", gate(permissions.ModuleOrders, permissions.ActionEdit), orderHandler.UpdateStatus)
		orders.POST("/:id/cancel", gate(permissions.ModuleOrders, permissions.ActionEdit), orderHandler.Cancel)
	}

	// Users
	userHandler := handlers.NewUserHandler(deps.Users, deps.Roles)
	users := api.Group("/users")
	{
		users.GET("", gate(permissions.ModuleUsers, permissions.ActionRead), userHandler.List)
		users.GET("/:id", gate(permissions.ModuleUsers, permissions.ActionRead), userHandler.Get)
		users.POST("", gate(permissions.ModuleUsers, permissions.ActionCreateAssets), userHandler.Create)
		users.PATCH("/:id", gate(permissions.ModuleUsers, permissions.ActionEdit), userHandler.Update)
		users.PATCH("/:id/active", gate(permissions.ModuleUsers, permissions.ActionDelete), userHandler.SetActive)
		users.PUT("/:id/role", gate(permissions.ModuleRoles, permissions.ActionEdit), userHandler.AssignRole)
		users.PUT("/:id/module-access", gate(permissions.ModuleRoles, permissions.ActionEdit), userHandler.UpdateModuleAccess)
		users.PUT("/:id/grants", gate(permissions.ModuleRoles, permissions.ActionEdit), userHandler.UpdateGrants)
	}

	// Roles and the permission catalog
	roleHandler := handlers.NewRoleHandler(deps.Roles, resolver)
	roles := api.Group("/roles")
	{
		roles.GET("", gate(permissions.ModuleRoles, permissions.ActionRead), roleHandler.List)
		roles.GET("/:name", gate(permissions.ModuleRoles, permissions.ActionRead), roleHandler.Get)
		roles.PUT("/:name/permissions", gate(permissions.ModuleRoles, permissions.ActionEdit), roleHandler.UpdatePermissions)
	}
	api.GET("/permissions", gate(permissions.ModuleRoles, permissions.ActionRead), roleHandler.Catalog)
	api.GET("/users/:id/permissions", gate(permissions.ModuleRoles, permissions.ActionRead), roleHandler.EffectivePermissions)

	// Notifications
	notificationHandler := handlers.NewNotificationHandler(deps.Notifications, deps.Hub, deps.JWT)
	notifications := api.Group("/notifications")
	{
		notifications.GET("", gate(permissions.ModuleNotifications, permissions.ActionRead), notificationHandler.List)
		notifications.GET("/unread-count", gate(permissions.ModuleNotifications, permissions.ActionRead), notificationHandler.UnreadCount)
		notifications.PATCH("/:id/read", gate(permissions.ModuleNotifications, permissions.ActionRead), notificationHandler.MarkRead)
		notifications.POST("/read-all", gate(permissions.ModuleNotifications, permissions.ActionRead), notificationHandler.MarkAllRead)
		notifications.DELETE("/:id", gate(permissions.ModuleNotifications, permissions.ActionEdit), notificationHandler.Delete)
	}
	// The websocket handshake authenticates itself from the token parameter, so
	// it mounts outside the bearer-header middleware.
	r.GET("/api/notifications/stream", notificationHandler.Stream)

	// Settings
	settingsHandler := handlers.NewSettingsHandler(deps.Settings)
	settings := api.Group("/settings")
	{
		settings.GET("", gate(permissions.ModuleSettings, permissions.ActionRead), settingsHandler.GetAll)
		settings.GET("/:key", gate(permissions.ModuleSettings, permissions.ActionRead), settingsHandler.Get)
		settings.PUT("/:key", gate(permissions.ModuleSettings, permissions.ActionEdit), settingsHandler.Put)
	}

	// Carts and wishlists operate on the caller's own rows, so authentication
	// alone is the gate.
	cartHandler := handlers.NewCartHandler(deps.Carts)
	cart := api.Group("/cart")
	{
		cart.GET("", cartHandler.Get)
		cart.POST("/items", cartHandler.AddItem)
		cart.PATCH("/items/:sku", cartHandler.UpdateItem)
		cart.DELETE("/items/:sku", cartHandler.RemoveItem)
		cart.DELETE("", cartHandler.Clear)
		cart.POST("/merge", cartHandler.Merge)
	}

	wishlistHandler := handlers.NewWishlistHandler(deps.Wishlists)
	wishlist := api.Group("/wishlist")
	{
		wishlist.GET("", wishlistHandler.Get)
		wishlist.POST("/items", wishlistHandler.AddProduct)
		wishlist.DELETE("/items/:productId", wishlistHandler.RemoveProduct)
	}

	return r, nil
}
