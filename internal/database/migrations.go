package database

import (
	"gorm.io/gorm"

	"github.com/kestrelhq/kestrel/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.RoleBinding{},
		&models.Category{},
		&models.Product{},
		&models.ProductVariant{},
		&models.Order{},
		&models.OrderItem{},
		&models.Cart{},
		&models.CartItem{},
		&models.Wishlist{},
		&models.WishlistItem{},
		&models.Notification{},
		&models.SystemSetting{},
	)
}

// SeedData populates the system roles and default settings. Safe to run on
// every start-up.
func SeedData(db *gorm.DB) error {
	roles := []models.Role{
		{
			BaseModel:   models.BaseModel{ID: "super_admin"},
			Name:        models.RoleSuperAdmin,
			DisplayName: "Super Administrator",
			Description: "Unrestricted platform access",
			Level:       1,
			IsSystem:    true,
			IsActive:    true,
		},
		{
			BaseModel:   models.BaseModel{ID: "admin"},
			Name:        models.RoleAdmin,
			DisplayName: "Administrator",
			Description: "Manages own catalog, orders, and customers",
			Level:       2,
			IsSystem:    true,
			IsActive:    true,
		},
		{
			BaseModel:   models.BaseModel{ID: "sub_admin"},
			Name:        models.RoleSubAdmin,
			DisplayName: "Support Administrator",
			Description: "Read-heavy support access across the catalog",
			Level:       3,
			IsSystem:    true,
			IsActive:    true,
		},
		{
			BaseModel:   models.BaseModel{ID: "seller"},
			Name:        models.RoleSeller,
			DisplayName: "Seller",
			Description: "Storefront seller managing own products",
			Level:       4,
			IsSystem:    true,
			IsActive:    true,
		},
		{
			BaseModel:   models.BaseModel{ID: "customer"},
			Name:        models.RoleCustomer,
			DisplayName: "Customer",
			Description: "Storefront customer",
			Level:       5,
			IsSystem:    true,
			IsActive:    true,
		},
	}

	for _, role := range roles {
		if err := db.Where(models.Role{BaseModel: models.BaseModel{ID: role.ID}}).Attrs(role).FirstOrCreate(&models.Role{}).Error; err != nil {
			return err
		}
	}

	settings := []models.SystemSetting{
		{Key: "store.name", Value: "Kestrel Store"},
		{Key: "store.currency", Value: "USD"},
		{Key: "inventory.low_stock_threshold", Value: "5"},
		{Key: "notifications.retention_days", Value: "30"},
	}

	for _, setting := range settings {
		if err := db.Where(models.SystemSetting{Key: setting.Key}).Attrs(setting).FirstOrCreate(&models.SystemSetting{}).Error; err != nil {
			return err
		}
	}

	return nil
}
