package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrelhq/kestrel/internal/models"
)

func TestAssignKeepsOneActiveBindingAndSyncsPrimaryRole(t *testing.T) {
	db := openServiceDB(t)
	svc, err := NewRoleService(db)
	require.NoError(t, err)

	user := createTestUser(t, db, "assignee@kestrel.dev", models.RoleCustomer)
	ctx := context.Background()

	first, err := svc.Assign(ctx, AssignRoleInput{UserID: user.ID, RoleName: models.RoleSeller})
	require.NoError(t, err)
	require.True(t, first.IsActive)

	second, err := svc.Assign(ctx, AssignRoleInput{UserID: user.ID, RoleName: models.RoleAdmin})
	require.NoError(t, err)

	// The prior binding is deactivated in the same transaction.
	var active []models.RoleBinding
	require.NoError(t, db.Where("user_id = ? AND is_active = ?", user.ID, true).Find(&active).Error)
	require.Len(t, active, 1)
	require.Equal(t, second.ID, active[0].ID)

	// primary_role follows the active binding.
	var reloaded models.User
	require.NoError(t, db.First(&reloaded, "id = ?", user.ID).Error)
	require.Equal(t, models.RoleAdmin, reloaded.PrimaryRole)
}

func TestAssignRejectsUnknownRole(t *testing.T) {
	db := openServiceDB(t)
	svc, err := NewRoleService(db)
	require.NoError(t, err)

	user := createTestUser(t, db, "norole@kestrel.dev", models.RoleCustomer)

	_, err = svc.Assign(context.Background(), AssignRoleInput{UserID: user.ID, RoleName: "warehouse_bot"})
	require.Error(t, err)
}

func TestUpdateModuleAccessRequiresActiveBinding(t *testing.T) {
	db := openServiceDB(t)
	svc, err := NewRoleService(db)
	require.NoError(t, err)

	user := createTestUser(t, db, "nobinding@kestrel.dev", models.RoleAdmin)

	err = svc.UpdateModuleAccess(context.Background(), user.ID, []models.ModuleAccessEntry{
		{Module: "orders", HasAccess: false},
	})
	require.Error(t, err)
}

func TestUpdateGrantsValidatesAgainstCatalog(t *testing.T) {
	db := openServiceDB(t)
	svc, err := NewRoleService(db)
	require.NoError(t, err)

	user := createTestUser(t, db, "grants@kestrel.dev", models.RoleSubAdmin)
	_, err = svc.Assign(context.Background(), AssignRoleInput{UserID: user.ID, RoleName: models.RoleSubAdmin})
	require.NoError(t, err)

	err = svc.UpdateGrants(context.Background(), user.ID, []models.PermissionGrant{
		{PermissionID: "no.such_permission", Granted: true},
	})
	require.Error(t, err)

	err = svc.UpdateGrants(context.Background(), user.ID, []models.PermissionGrant{
		{PermissionID: "orders.export", Granted: true},
	})
	require.NoError(t, err)

	var binding models.RoleBinding
	require.NoError(t, db.Where("user_id = ? AND is_active = ?", user.ID, true).First(&binding).Error)
	grants, err := binding.GrantEntries()
	require.NoError(t, err)
	require.Len(t, grants, 1)
	require.Equal(t, models.GrantSourceIndividual, grants[0].Source)
}

func TestUpdateRolePermissionsRefusesSuperAdmin(t *testing.T) {
	db := openServiceDB(t)
	svc, err := NewRoleService(db)
	require.NoError(t, err)

	err = svc.UpdateRolePermissions(context.Background(), models.RoleSuperAdmin, []string{"products.read"})
	require.Error(t, err)
}

func TestUpdateRolePermissionsReplacesSet(t *testing.T) {
	db := openServiceDB(t)
	svc, err := NewRoleService(db)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, svc.UpdateRolePermissions(ctx, models.RoleSubAdmin, []string{"products.read", "orders.read"}))

	role, err := svc.Get(ctx, models.RoleSubAdmin)
	require.NoError(t, err)
	require.Len(t, role.Permissions, 2)
}
