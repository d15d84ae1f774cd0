package models

// Permission is a (module, action) capability record. The ID is the
// canonical "module.action" identifier used by the registry.
type Permission struct {
	BaseModel

	Module      string `gorm:"not null;index:idx_permission_key,unique,priority:1" json:"module"`
	Action      string `gorm:"not null;index:idx_permission_key,unique,priority:2" json:"action"`
	Resource    string `gorm:"not null;default:'*';index:idx_permission_key,unique,priority:3" json:"resource"`
	Description string `json:"description"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`

	Roles []Role `gorm:"many2many:role_permissions;" json:"roles,omitempty"`
}
