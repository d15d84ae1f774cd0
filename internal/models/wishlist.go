package models

// Wishlist stores a customer's saved products.
type Wishlist struct {
	BaseModel

	UserID string         `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Items  []WishlistItem `gorm:"foreignKey:WishlistID" json:"items,omitempty"`
}

type WishlistItem struct {
	BaseModel

	WishlistID string `gorm:"type:uuid;not null;index:idx_wishlist_product,unique,priority:1" json:"wishlist_id"`
	ProductID  string `gorm:"type:uuid;not null;index:idx_wishlist_product,unique,priority:2" json:"product_id"`
}
