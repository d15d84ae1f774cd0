package models

import "github.com/shopspring/decimal"

// Cart is the server-side cart for a signed-in customer. Guest carts live in
// local storage and are merged on login.
type Cart struct {
	BaseModel

	UserID string     `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Items  []CartItem `gorm:"foreignKey:CartID" json:"items,omitempty"`
}

// CartItem holds one variant in a cart. The unit price is captured at add
// time so the storefront can show price-drift warnings.
type CartItem struct {
	BaseModel

	CartID     string `gorm:"type:uuid;not null;index:idx_cart_sku,unique,priority:1" json:"cart_id"`
	ProductID  string `gorm:"type:uuid;not null" json:"product_id"`
	VariantSKU string `gorm:"not null;index:idx_cart_sku,unique,priority:2" json:"variant_sku"`

	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2)" json:"unit_price"`
}
