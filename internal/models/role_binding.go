package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Grant sources recorded on per-user permission entries.
const (
	GrantSourceRole       = "role"
	GrantSourceIndividual = "individual"
)

// ModuleAccessEntry is a per-user override for a whole module. When present
// it is authoritative over any role-derived grant.
type ModuleAccessEntry struct {
	Module    string `json:"module"`
	HasAccess bool   `json:"has_access"`
}

// PermissionGrant records an individual permission override layered on top
// of the role's permission set.
type PermissionGrant struct {
	PermissionID string `json:"permission_id"`
	Granted      bool   `json:"granted"`
	Restrictions string `json:"restrictions,omitempty"`
	Source       string `json:"source"`
}

// RoleBinding assigns a role to a user. At most one binding per user is
// active at a time; RoleService enforces the invariant on assignment.
type RoleBinding struct {
	BaseModel

	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`
	RoleID string `gorm:"type:uuid;not null;index" json:"role_id"`
	Role   *Role  `json:"role,omitempty"`

	ModuleAccess datatypes.JSON `json:"module_access"`
	Grants       datatypes.JSON `json:"grants"`

	IsActive     bool       `gorm:"default:true;index" json:"is_active"`
	AssignedByID *string    `gorm:"type:uuid" json:"assigned_by_id"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

// Expired reports whether the binding has an expiry in the past.
func (b *RoleBinding) Expired(now time.Time) bool {
	return b.ExpiresAt != nil && b.ExpiresAt.Before(now)
}

// ModuleAccessEntries decodes the stored module overrides.
func (b *RoleBinding) ModuleAccessEntries() ([]ModuleAccessEntry, error) {
	if len(b.ModuleAccess) == 0 {
		return nil, nil
	}
	var entries []ModuleAccessEntry
	if err := json.Unmarshal(b.ModuleAccess, &entries); err != nil {
		return nil, fmt.Errorf("role binding: decode module access: %w", err)
	}
	return entries, nil
}

// SetModuleAccess encodes and replaces the module override list.
func (b *RoleBinding) SetModuleAccess(entries []ModuleAccessEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("role binding: encode module access: %w", err)
	}
	b.ModuleAccess = datatypes.JSON(data)
	return nil
}

// GrantEntries decodes the stored individual permission grants.
func (b *RoleBinding) GrantEntries() ([]PermissionGrant, error) {
	if len(b.Grants) == 0 {
		return nil, nil
	}
	var grants []PermissionGrant
	if err := json.Unmarshal(b.Grants, &grants); err != nil {
		return nil, fmt.Errorf("role binding: decode grants: %w", err)
	}
	return grants, nil
}

// SetGrants encodes and replaces the individual grant list.
func (b *RoleBinding) SetGrants(grants []PermissionGrant) error {
	data, err := json.Marshal(grants)
	if err != nil {
		return fmt.Errorf("role binding: encode grants: %w", err)
	}
	b.Grants = datatypes.JSON(data)
	return nil
}
