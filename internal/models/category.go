package models

// Category groups catalog products. Categories are globally visible to all
// back-office roles.
type Category struct {
	BaseModel

	Name     string  `gorm:"not null" json:"name"`
	Slug     string  `gorm:"uniqueIndex;not null" json:"slug"`
	ParentID *string `gorm:"type:uuid;index" json:"parent_id"`
	IsActive bool    `gorm:"default:true" json:"is_active"`
}
