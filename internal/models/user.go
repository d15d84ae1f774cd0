package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User describes platform accounts: back-office staff, sellers, and customers.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Avatar    string `json:"avatar"`

	// PrimaryRole is a denormalized copy of the active binding's role name.
	// RoleService is the single writer; nothing else may update it.
	PrimaryRole string `gorm:"type:varchar(32);index;default:'customer'" json:"primary_role"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`

	Bindings []RoleBinding `gorm:"foreignKey:UserID" json:"-"`

	LastLoginAt *time.Time `json:"last_login_at"`
	LastLoginIP string     `json:"last_login_ip"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// IsSuperAdmin reports whether the denormalized role marks the user as super admin.
func (u *User) IsSuperAdmin() bool {
	return u.PrimaryRole == RoleSuperAdmin
}
