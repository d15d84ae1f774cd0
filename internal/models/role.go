package models

// Well-known role names. Lower level means more privileged.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleSubAdmin   = "sub_admin"
	RoleSeller     = "seller"
	RoleCustomer   = "customer"
)

type Role struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Level       int    `gorm:"not null;default:99" json:"level"`
	IsSystem    bool   `gorm:"default:false" json:"is_system"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`

	CreatedByID *string `gorm:"type:uuid" json:"created_by_id"`

	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
}

// AtLeast reports whether the role outranks or matches the given level.
func (r *Role) AtLeast(level int) bool {
	return r.Level <= level
}
