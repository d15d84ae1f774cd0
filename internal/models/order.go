package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Order lifecycle states.
const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

// StatusChange is one entry of an order's status history.
type StatusChange struct {
	Status      string    `json:"status"`
	Note        string    `json:"note,omitempty"`
	ChangedByID string    `json:"changed_by_id,omitempty"`
	ChangedAt   time.Time `json:"changed_at"`
}

// Order is a customer purchase spanning one or more seller items.
type Order struct {
	BaseModel

	Code   string `gorm:"uniqueIndex;not null" json:"code"`
	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`

	Status        string         `gorm:"type:varchar(32);not null;default:'pending';index" json:"status"`
	StatusHistory datatypes.JSON `json:"status_history"`

	Subtotal    decimal.Decimal `gorm:"type:decimal(12,2)" json:"subtotal"`
	ShippingFee decimal.Decimal `gorm:"type:decimal(12,2)" json:"shipping_fee"`
	Total       decimal.Decimal `gorm:"type:decimal(12,2)" json:"total"`

	ShippingAddress string `gorm:"type:text" json:"shipping_address"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

// OrderItem is a single purchased variant with seller attribution used by
// the visibility filter.
type OrderItem struct {
	BaseModel

	OrderID    string `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID  string `gorm:"type:uuid;not null;index" json:"product_id"`
	VariantSKU string `gorm:"not null" json:"variant_sku"`
	SellerID   string `gorm:"type:uuid;not null;index" json:"seller_id"`

	Name      string          `json:"name"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2)" json:"unit_price"`
	LineTotal decimal.Decimal `gorm:"type:decimal(12,2)" json:"line_total"`
}
