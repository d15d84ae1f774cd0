package models

import (
	"github.com/shopspring/decimal"
)

// Deactivation reasons recorded when a product is toggled inactive. A
// stock-driven toggle must never clear a manual hold.
const (
	DeactivationNone       = ""
	DeactivationManual     = "manual"
	DeactivationOutOfStock = "out_of_stock"
)

// Product is a catalog entry owned by the admin or seller who created it.
type Product struct {
	BaseModel

	Name        string  `gorm:"not null" json:"name"`
	Slug        string  `gorm:"uniqueIndex;not null" json:"slug"`
	Description string  `gorm:"type:text" json:"description"`
	CategoryID  *string `gorm:"type:uuid;index" json:"category_id"`
	Category    *Category `json:"category,omitempty"`

	CreatedByID string `gorm:"type:uuid;not null;index" json:"created_by_id"`

	IsActive           bool   `gorm:"default:true;index" json:"is_active"`
	DeactivationReason string `gorm:"type:varchar(32);default:''" json:"deactivation_reason"`

	Variants []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
}

// TotalStock sums stock across loaded variants.
func (p *Product) TotalStock() int {
	total := 0
	for _, v := range p.Variants {
		total += v.Stock
	}
	return total
}

// ProductVariant is the unit of inventory. Stock mutations operate on a
// single variant identified by SKU.
type ProductVariant struct {
	BaseModel

	ProductID string `gorm:"type:uuid;not null;index" json:"product_id"`
	SKU       string `gorm:"uniqueIndex;not null" json:"sku"`
	Color     string `json:"color"`
	Size      string `json:"size"`

	Price decimal.Decimal `gorm:"type:decimal(12,2)" json:"price"`
	Stock int             `gorm:"not null;default:0" json:"stock"`
}
