package permissions

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kestrelhq/kestrel/internal/models"
)

// Sync persists registered capability definitions to the backing database.
// Existing rows are updated in place so the registry stays the source of truth.
func Sync(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("permission: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	defs := GetAll()
	if len(defs) == 0 {
		return nil
	}

	if err := ValidateDependencies(); err != nil {
		return err
	}

	tx := db.WithContext(ctx)
	for id, def := range defs {
		record := models.Permission{
			BaseModel:   models.BaseModel{ID: id},
			Module:      def.Module,
			Action:      def.Action,
			Resource:    def.Resource,
			Description: def.Description,
			IsActive:    true,
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"module", "action", "resource", "description"}),
		}).Create(&record).Error; err != nil {
			return fmt.Errorf("permission: sync %s: %w", id, err)
		}
	}

	return nil
}

// SeedRolePermissions attaches the default permission sets to the system
// roles. Super admin carries no explicit permissions because the resolver
// bypasses the check entirely.
func SeedRolePermissions(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("permission: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	grants := map[string][]string{
		models.RoleAdmin: {
			"products.read", "products.create_assets", "products.edit", "products.delete", "products.export",
			"categories.read",
			"orders.read", "orders.edit", "orders.export",
			"users.read", "users.create_assets", "users.edit",
			"notifications.read", "notifications.edit",
			"settings.read",
		},
		models.RoleSubAdmin: {
			"products.read",
			"categories.read",
			"orders.read",
			"users.read",
			"notifications.read",
		},
		models.RoleSeller: {
			"products.read", "products.create_assets", "products.edit",
			"orders.read", "orders.edit",
			"notifications.read", "notifications.edit",
		},
	}

	tx := db.WithContext(ctx)
	for roleName, ids := range grants {
		var role models.Role
		if err := tx.Where("name = ?", roleName).First(&role).Error; err != nil {
			return fmt.Errorf("permission: load role %s: %w", roleName, err)
		}

		var perms []models.Permission
		if err := tx.Where("id IN ?", ids).Find(&perms).Error; err != nil {
			return fmt.Errorf("permission: load permissions for %s: %w", roleName, err)
		}

		if err := tx.Model(&role).Association("Permissions").Replace(perms); err != nil {
			return fmt.Errorf("permission: attach permissions to %s: %w", roleName, err)
		}
	}

	return nil
}
