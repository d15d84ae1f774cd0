package permissions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kestrelhq/kestrel/internal/database/testutil"
	"github.com/kestrelhq/kestrel/internal/models"
)

func openResolverDB(t *testing.T) *gorm.DB {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	ctx := context.Background()
	require.NoError(t, Sync(ctx, db))
	require.NoError(t, SeedRolePermissions(ctx, db))
	return db
}

func createUserWithBinding(t *testing.T, db *gorm.DB, email, roleName string, mutate func(*models.RoleBinding)) *models.User {
	t.Helper()

	user := &models.User{
		Email:       email,
		Password:    "hashed",
		PrimaryRole: roleName,
		IsActive:    true,
	}
	require.NoError(t, db.Create(user).Error)

	var role models.Role
	require.NoError(t, db.Where("name = ?", roleName).First(&role).Error)

	binding := &models.RoleBinding{
		UserID:   user.ID,
		RoleID:   role.ID,
		IsActive: true,
	}
	if mutate != nil {
		mutate(binding)
	}
	require.NoError(t, db.Create(binding).Error)
	return user
}

func TestResolveSuperAdminBypassesEverything(t *testing.T) {
	db := openResolverDB(t)
	resolver, err := NewResolver(db)
	require.NoError(t, err)

	root := &models.User{Email: "root@kestrel.dev", Password: "hashed", PrimaryRole: models.RoleSuperAdmin, IsActive: true}
	require.NoError(t, db.Create(root).Error)

	ctx := context.Background()

	// No binding, no permission rows, unknown module: still granted.
	allowed, err := resolver.Resolve(ctx, root.ID, "warehouse", ActionDelete)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestResolveFailsClosedWithoutBinding(t *testing.T) {
	db := openResolverDB(t)
	resolver, err := NewResolver(db)
	require.NoError(t, err)

	user := &models.User{Email: "orphan@kestrel.dev", Password: "hashed", PrimaryRole: models.RoleAdmin, IsActive: true}
	require.NoError(t, db.Create(user).Error)

	allowed, err := resolver.Resolve(context.Background(), user.ID, ModuleProducts, ActionRead)
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestResolveRolePermissionGrant(t *testing.T) {
	db := openResolverDB(t)
	resolver, err := NewResolver(db)
	require.NoError(t, err)

	admin := createUserWithBinding(t, db, "admin@kestrel.dev", models.RoleAdmin, nil)
	ctx := context.Background()

	allowed, err := resolver.Resolve(ctx, admin.ID, ModuleProducts, ActionRead)
	require.NoError(t, err)
	require.True(t, allowed)

	// Module-level check with no action.
	allowed, err = resolver.Resolve(ctx, admin.ID, ModuleOrders, "")
	require.NoError(t, err)
	require.True(t, allowed)

	// Admin never receives settings.edit from the seed.
	allowed, err = resolver.Resolve(ctx, admin.ID, ModuleSettings, ActionEdit)
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestResolveModuleOverrideWinsOverRole(t *testing.T) {
	db := openResolverDB(t)
	resolver, err := NewResolver(db)
	require.NoError(t, err)

	admin := createUserWithBinding(t, db, "limited@kestrel.dev", models.RoleAdmin, func(b *models.RoleBinding) {
		require.NoError(t, b.SetModuleAccess([]models.ModuleAccessEntry{
			{Module: ModuleOrders, HasAccess: false},
			{Module: ModuleSettings, HasAccess: true},
		}))
	})
	ctx := context.Background()

	// Role grants orders.read but the override denies the whole module.
	allowed, err := resolver.Resolve(ctx, admin.ID, ModuleOrders, ActionRead)
	require.NoError(t, err)
	require.False(t, allowed)

	// The override can also grant beyond the role.
	allowed, err = resolver.Resolve(ctx, admin.ID, ModuleSettings, ActionEdit)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestResolveIndividualGrantLayering(t *testing.T) {
	db := openResolverDB(t)
	resolver, err := NewResolver(db)
	require.NoError(t, err)

	subAdmin := createUserWithBinding(t, db, "support@kestrel.dev", models.RoleSubAdmin, func(b *models.RoleBinding) {
		require.NoError(t, b.SetGrants([]models.PermissionGrant{
			{PermissionID: "orders.export", Granted: true, Source: models.GrantSourceIndividual},
			{PermissionID: "products.read", Granted: false, Source: models.GrantSourceIndividual},
		}))
	})
	ctx := context.Background()

	allowed, err := resolver.Resolve(ctx, subAdmin.ID, ModuleOrders, ActionExport)
	require.NoError(t, err)
	require.True(t, allowed)

	// An explicit revoke beats the role grant.
	allowed, err = resolver.Resolve(ctx, subAdmin.ID, ModuleProducts, ActionRead)
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestResolveExpiredBindingDenies(t *testing.T) {
	db := openResolverDB(t)

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	resolver, err := NewResolver(db, WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	expiry := fixed.Add(-time.Hour)
	admin := createUserWithBinding(t, db, "expired@kestrel.dev", models.RoleAdmin, func(b *models.RoleBinding) {
		b.ExpiresAt = &expiry
	})

	allowed, err := resolver.Resolve(context.Background(), admin.ID, ModuleProducts, ActionRead)
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestResolveInactiveUserDenies(t *testing.T) {
	db := openResolverDB(t)
	resolver, err := NewResolver(db)
	require.NoError(t, err)

	admin := createUserWithBinding(t, db, "gone@kestrel.dev", models.RoleAdmin, nil)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", admin.ID).Update("is_active", false).Error)

	allowed, err := resolver.Resolve(context.Background(), admin.ID, ModuleProducts, ActionRead)
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestEffectivePermissionsAppliesOverrides(t *testing.T) {
	db := openResolverDB(t)
	resolver, err := NewResolver(db)
	require.NoError(t, err)

	admin := createUserWithBinding(t, db, "effective@kestrel.dev", models.RoleAdmin, func(b *models.RoleBinding) {
		require.NoError(t, b.SetModuleAccess([]models.ModuleAccessEntry{
			{Module: ModuleOrders, HasAccess: false},
		}))
		require.NoError(t, b.SetGrants([]models.PermissionGrant{
			{PermissionID: "settings.edit", Granted: true, Source: models.GrantSourceIndividual},
		}))
	})

	ids, err := resolver.EffectivePermissions(context.Background(), admin.ID)
	require.NoError(t, err)

	require.Contains(t, ids, "products.read")
	require.Contains(t, ids, "settings.edit")
	require.NotContains(t, ids, "orders.read")
	require.NotContains(t, ids, "orders.export")
}

func TestEffectivePermissionsSuperAdminGetsRegistry(t *testing.T) {
	db := openResolverDB(t)
	resolver, err := NewResolver(db)
	require.NoError(t, err)

	root := &models.User{Email: "root2@kestrel.dev", Password: "hashed", PrimaryRole: models.RoleSuperAdmin, IsActive: true}
	require.NoError(t, db.Create(root).Error)

	ids, err := resolver.EffectivePermissions(context.Background(), root.ID)
	require.NoError(t, err)
	require.Len(t, ids, len(GetAll()))
}
