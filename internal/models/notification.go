package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification types emitted by the stock engine and order lifecycle.
const (
	NotificationLowStock    = "LOW_STOCK"
	NotificationOutOfStock  = "OUT_OF_STOCK"
	NotificationNewOrder    = "NEW_ORDER"
	NotificationOrderStatus = "ORDER_STATUS"
)

// Notification represents an in-app notification. Stock alerts carry the
// product/variant keys used for the 24-hour deduplication window.
type Notification struct {
	BaseModel

	Type     string `gorm:"type:varchar(64);not null;index:idx_notification_dedup,priority:1" json:"type"`
	Title    string `gorm:"type:varchar(255);not null" json:"title"`
	Message  string `gorm:"type:text" json:"message"`
	Severity string `gorm:"type:varchar(32);default:'info'" json:"severity"`

	Data datatypes.JSON `json:"data"`

	ProductID  *string `gorm:"type:uuid;index:idx_notification_dedup,priority:2" json:"product_id"`
	VariantSKU string  `gorm:"index:idx_notification_dedup,priority:3" json:"variant_sku"`

	TargetUserID     *string `gorm:"type:uuid;index" json:"target_user_id"`
	IsSellerSpecific bool    `gorm:"default:false" json:"is_seller_specific"`

	IsRead bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at"`
}
