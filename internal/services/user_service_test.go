package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrelhq/kestrel/internal/models"
	apperrors "github.com/kestrelhq/kestrel/pkg/errors"
)

func newUserService(t *testing.T) *UserService {
	t.Helper()

	db := openServiceDB(t)
	roles, err := NewRoleService(db)
	require.NoError(t, err)
	svc, err := NewUserService(db, roles)
	require.NoError(t, err)
	return svc
}

func TestCreateUserAssignsInitialRole(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateUserInput{
		Email:    "NewStaff@Kestrel.dev",
		Password: "longenoughpw",
		Role:     models.RoleSubAdmin,
	})
	require.NoError(t, err)
	require.Equal(t, "newstaff@kestrel.dev", user.Email)
	require.Equal(t, models.RoleSubAdmin, user.PrimaryRole)

	var binding models.RoleBinding
	require.NoError(t, svc.db.Where("user_id = ? AND is_active = ?", user.ID, true).First(&binding).Error)
}

func TestCreateUserDefaultsToCustomer(t *testing.T) {
	svc := newUserService(t)

	user, err := svc.Create(context.Background(), CreateUserInput{
		Email:    "shopper@kestrel.dev",
		Password: "longenoughpw",
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleCustomer, user.PrimaryRole)
}

func TestCreateUserRejectsShortPasswordAndDuplicateEmail(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateUserInput{Email: "short@kestrel.dev", Password: "tiny"})
	require.Error(t, err)

	_, err = svc.Create(ctx, CreateUserInput{Email: "dup@kestrel.dev", Password: "longenoughpw"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateUserInput{Email: "dup@kestrel.dev", Password: "longenoughpw"})
	require.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestAdminListsOnlyCustomers(t *testing.T) {
	svc := newUserService(t)
	db := svc.db

	admin := createTestUser(t, db, "list-admin@kestrel.dev", models.RoleAdmin)
	createTestUser(t, db, "list-customer@kestrel.dev", models.RoleCustomer)
	createTestUser(t, db, "list-seller@kestrel.dev", models.RoleSeller)

	users, total, err := svc.List(context.Background(), Viewer{UserID: admin.ID, Role: models.RoleAdmin}, ListUsersInput{})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, users, 1)
	require.Equal(t, models.RoleCustomer, users[0].PrimaryRole)
}

func TestDeactivateSuperAdminRefused(t *testing.T) {
	svc := newUserService(t)
	db := svc.db

	root := createTestUser(t, db, "root@kestrel.dev", models.RoleSuperAdmin)

	err := svc.SetActive(context.Background(), Viewer{UserID: root.ID, Role: models.RoleSuperAdmin}, root.ID, false)
	require.Error(t, err)
}
