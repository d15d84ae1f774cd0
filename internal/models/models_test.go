package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoleBindingModuleAccessRoundTrip(t *testing.T) {
	binding := RoleBinding{}
	require.NoError(t, binding.SetModuleAccess([]ModuleAccessEntry{
		{Module: "orders", HasAccess: false},
		{Module: "products", HasAccess: true},
	}))

	entries, err := binding.ModuleAccessEntries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "orders", entries[0].Module)
	require.False(t, entries[0].HasAccess)
}

func TestRoleBindingGrantsRoundTrip(t *testing.T) {
	binding := RoleBinding{}
	require.NoError(t, binding.SetGrants([]PermissionGrant{
		{PermissionID: "products.export", Granted: true, Source: GrantSourceIndividual},
	}))

	grants, err := binding.GrantEntries()
	require.NoError(t, err)
	require.Len(t, grants, 1)
	require.Equal(t, GrantSourceIndividual, grants[0].Source)
}

func TestRoleBindingExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)

	require.False(t, (&RoleBinding{}).Expired(now))
	require.True(t, (&RoleBinding{ExpiresAt: &past}).Expired(now))
}

func TestProductTotalStock(t *testing.T) {
	product := Product{
		Variants: []ProductVariant{
			{SKU: "TS-RED-M", Stock: 3},
			{SKU: "TS-RED-L", Stock: 0},
			{SKU: "TS-BLU-M", Stock: 7},
		},
	}
	require.Equal(t, 10, product.TotalStock())
}

func TestRoleAtLeast(t *testing.T) {
	admin := Role{Name: RoleAdmin, Level: 2}
	require.True(t, admin.AtLeast(3))
	require.True(t, admin.AtLeast(2))
	require.False(t, admin.AtLeast(1))
}
