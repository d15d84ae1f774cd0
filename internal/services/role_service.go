package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/kestrelhq/kestrel/internal/models"
	"github.com/kestrelhq/kestrel/internal/permissions"
	apperrors "github.com/kestrelhq/kestrel/pkg/errors"
)

// AssignRoleInput describes a role assignment request.
type AssignRoleInput struct {
	UserID       string
	RoleName     string
	AssignedByID *string
	ExpiresAt    *time.Time
}

// RoleService manages roles, bindings, and per-user overrides. It is the only
// writer of users.primary_role, keeping the denormalized column in lockstep
// with the active binding.
type RoleService struct {
	db *gorm.DB
}

// NewRoleService constructs a RoleService.
func NewRoleService(db *gorm.DB) (*RoleService, error) {
	if db == nil {
		return nil, errors.New("role service: db is required")
	}
	return &RoleService{db: db}, nil
}

// List returns all roles ordered by privilege level.
func (s *RoleService) List(ctx context.Context) ([]models.Role, error) {
	ctx = ensureContext(ctx)

	var roles []models.Role
	if err := s.db.WithContext(ctx).Order("level ASC").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("role service: list roles: %w", err)
	}
	return roles, nil
}

// Get loads a role by name with its permission set.
func (s *RoleService) Get(ctx context.Context, name string) (*models.Role, error) {
	ctx = ensureContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewBadRequest("role name is required")
	}

	var role models.Role
	if err := s.db.WithContext(ctx).Preload("Permissions").Where("name = ?", name).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("role service: load role: %w", err)
	}
	return &role, nil
}

// Assign gives the user a new active binding. Any prior active bindings are
// deactivated in the same transaction, so at most one survives, and the
// user's primary_role column is synced to the new role.
func (s *RoleService) Assign(ctx context.Context, input AssignRoleInput) (*models.RoleBinding, error) {
	ctx = ensureContext(ctx)

	userID := strings.TrimSpace(input.UserID)
	roleName := strings.TrimSpace(input.RoleName)
	if userID == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}
	if roleName == "" {
		return nil, apperrors.NewBadRequest("role name is required")
	}

	var binding *models.RoleBinding
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("role service: load user: %w", err)
		}

		var role models.Role
		if err := tx.Where("name = ?", roleName).First(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NewBadRequest("unknown role: " + roleName)
			}
			return fmt.Errorf("role service: load role: %w", err)
		}
		if !role.IsActive {
			return apperrors.NewBadRequest("role is inactive: " + roleName)
		}

		if err := tx.Model(&models.RoleBinding{}).
			Where("user_id = ? AND is_active = ?", userID, true).
			Update("is_active", false).Error; err != nil {
			return fmt.Errorf("role service: deactivate prior bindings: %w", err)
		}

		binding = &models.RoleBinding{
			UserID:       userID,
			RoleID:       role.ID,
			IsActive:     true,
			AssignedByID: input.AssignedByID,
			ExpiresAt:    input.ExpiresAt,
		}
		if err := tx.Create(binding).Error; err != nil {
			return fmt.Errorf("role service: create binding: %w", err)
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("primary_role", role.Name).Error; err != nil {
			return fmt.Errorf("role service: sync primary role: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return binding, nil
}

// UpdateModuleAccess replaces the per-module overrides on the user's active binding.
func (s *RoleService) UpdateModuleAccess(ctx context.Context, userID string, entries []models.ModuleAccessEntry) error {
	ctx = ensureContext(ctx)

	binding, err := s.activeBinding(ctx, userID)
	if err != nil {
		return err
	}

	for i := range entries {
		entries[i].Module = strings.TrimSpace(entries[i].Module)
		if entries[i].Module == "" {
			return apperrors.NewBadRequest("module access entry has no module")
		}
	}

	if err := binding.SetModuleAccess(entries); err != nil {
		return apperrors.NewBadRequest(err.Error())
	}
	if err := s.db.WithContext(ctx).Model(binding).Update("module_access", binding.ModuleAccess).Error; err != nil {
		return fmt.Errorf("role service: update module access: %w", err)
	}
	return nil
}

// UpdateGrants replaces the individual permission grants on the user's active
// binding. Grant targets must exist in the permission catalog.
func (s *RoleService) UpdateGrants(ctx context.Context, userID string, grants []models.PermissionGrant) error {
	ctx = ensureContext(ctx)

	binding, err := s.activeBinding(ctx, userID)
	if err != nil {
		return err
	}

	for i := range grants {
		grants[i].PermissionID = strings.TrimSpace(grants[i].PermissionID)
		if _, ok := permissions.Get(grants[i].PermissionID); !ok {
			return apperrors.NewBadRequest("unknown permission: " + grants[i].PermissionID)
		}
		grants[i].Source = defaultIfEmpty(grants[i].Source, models.GrantSourceIndividual)
	}

	if err := binding.SetGrants(grants); err != nil {
		return apperrors.NewBadRequest(err.Error())
	}
	if err := s.db.WithContext(ctx).Model(binding).Update("grants", binding.Grants).Error; err != nil {
		return fmt.Errorf("role service: update grants: %w", err)
	}
	return nil
}

// UpdateRolePermissions replaces a role's permission set. The super_admin
// role is synthetic (resolver bypass) and cannot be edited.
func (s *RoleService) UpdateRolePermissions(ctx context.Context, roleName string, permissionIDs []string) error {
	ctx = ensureContext(ctx)

	roleName = strings.TrimSpace(roleName)
	if roleName == models.RoleSuperAdmin {
		return apperrors.NewBadRequest("super_admin permissions cannot be edited")
	}

	role, err := s.Get(ctx, roleName)
	if err != nil {
		return err
	}

	var perms []models.Permission
	for _, id := range permissionIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := permissions.Get(id); !ok {
			return apperrors.NewBadRequest("unknown permission: " + id)
		}
		var perm models.Permission
		if err := s.db.WithContext(ctx).First(&perm, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NewBadRequest("permission not synced: " + id)
			}
			return fmt.Errorf("role service: load permission: %w", err)
		}
		perms = append(perms, perm)
	}

	if err := s.db.WithContext(ctx).Model(role).Association("Permissions").Replace(perms); err != nil {
		return fmt.Errorf("role service: replace permissions: %w", err)
	}
	return nil
}

func (s *RoleService) activeBinding(ctx context.Context, userID string) (*models.RoleBinding, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}

	var binding models.RoleBinding
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at DESC").
		First(&binding).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("role service: load binding: %w", err)
	}
	return &binding, nil
}
