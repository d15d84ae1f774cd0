package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/kestrelhq/kestrel/internal/models"
	apperrors "github.com/kestrelhq/kestrel/pkg/errors"
)

// MergeCartItem is one line of a local-storage cart presented at login.
type MergeCartItem struct {
	ProductID  string
	VariantSKU string
	Quantity   int
}

// CartService manages server-side carts for signed-in customers.
type CartService struct {
	db *gorm.DB
}

// NewCartService constructs a CartService.
func NewCartService(db *gorm.DB) (*CartService, error) {
	if db == nil {
		return nil, errors.New("cart service: db is required")
	}
	return &CartService{db: db}, nil
}

// GetOrCreate returns the user's cart with items, creating it on first use.
func (s *CartService) GetOrCreate(ctx context.Context, userID string) (*models.Cart, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}

	var cart models.Cart
	err := s.db.WithContext(ctx).Preload("Items").Where("user_id = ?", userID).First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("cart service: load cart: %w", err)
	}

	cart = models.Cart{UserID: userID}
	if err := s.db.WithContext(ctx).Create(&cart).Error; err != nil {
		return nil, fmt.Errorf("cart service: create cart: %w", err)
	}
	return &cart, nil
}

// AddItem puts a variant in the cart, capturing the current unit price.
// Adding an existing variant increments its quantity.
func (s *CartService) AddItem(ctx context.Context, userID, productID, sku string, quantity int) (*models.Cart, error) {
	ctx = ensureContext(ctx)

	if quantity <= 0 {
		return nil, apperrors.NewBadRequest("quantity must be positive")
	}

	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	var variant models.ProductVariant
	if err := s.db.WithContext(ctx).
		Where("product_id = ? AND sku = ?", strings.TrimSpace(productID), strings.TrimSpace(sku)).
		First(&variant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewBadRequest("unknown variant: " + sku)
		}
		return nil, fmt.Errorf("cart service: load variant: %w", err)
	}

	var existing models.CartItem
	err = s.db.WithContext(ctx).
		Where("cart_id = ? AND variant_sku = ?", cart.ID, variant.SKU).
		First(&existing).Error
	switch {
	case err == nil:
		if err := s.db.WithContext(ctx).Model(&existing).
			Update("quantity", existing.Quantity+quantity).Error; err != nil {
			return nil, fmt.Errorf("cart service: bump quantity: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		item := models.CartItem{
			CartID:     cart.ID,
			ProductID:  variant.ProductID,
			VariantSKU: variant.SKU,
			Quantity:   quantity,
			UnitPrice:  variant.Price,
		}
		if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
			return nil, fmt.Errorf("cart service: add item: %w", err)
		}
	default:
		return nil, fmt.Errorf("cart service: load item: %w", err)
	}

	return s.GetOrCreate(ctx, userID)
}

// UpdateItemQuantity sets the quantity of a cart line. Zero removes it.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, sku string, quantity int) (*models.Cart, error) {
	ctx = ensureContext(ctx)

	if quantity < 0 {
		return nil, apperrors.NewBadRequest("quantity must not be negative")
	}

	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	if quantity == 0 {
		return s.RemoveItem(ctx, userID, sku)
	}

	result := s.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("cart_id = ? AND variant_sku = ?", cart.ID, strings.TrimSpace(sku)).
		Update("quantity", quantity)
	if result.Error != nil {
		return nil, fmt.Errorf("cart service: update quantity: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ErrNotFound
	}

	return s.GetOrCreate(ctx, userID)
}

// RemoveItem deletes one line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, sku string) (*models.Cart, error) {
	ctx = ensureContext(ctx)

	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := s.db.WithContext(ctx).
		Where("cart_id = ? AND variant_sku = ?", cart.ID, strings.TrimSpace(sku)).
		Delete(&models.CartItem{})
	if result.Error != nil {
		return nil, fmt.Errorf("cart service: remove item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ErrNotFound
	}

	return s.GetOrCreate(ctx, userID)
}

// Clear removes every line from the cart.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	ctx = ensureContext(ctx)

	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).
		Where("cart_id = ?", cart.ID).
		Delete(&models.CartItem{}).Error; err != nil {
		return fmt.Errorf("cart service: clear cart: %w", err)
	}
	return nil
}

// Merge reconciles a local-storage cart with the server cart at login.
// Quantities for matching variants are summed; unknown variants are skipped.
func (s *CartService) Merge(ctx context.Context, userID string, items []MergeCartItem) (*models.Cart, error) {
	ctx = ensureContext(ctx)

	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		if _, err := s.AddItem(ctx, userID, item.ProductID, item.VariantSKU, item.Quantity); err != nil {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) && appErr.Code == apperrors.ErrBadRequest.Code {
				// Variant vanished since the local cart was built.
				continue
			}
			return nil, err
		}
	}
	return s.GetOrCreate(ctx, userID)
}

// ExpireStale deletes carts untouched since the cutoff, used by the
// maintenance cleaner.
func (s *CartService) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)

	var stale []models.Cart
	if err := s.db.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Find(&stale).Error; err != nil {
		return 0, fmt.Errorf("cart service: find stale carts: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(stale))
	for _, cart := range stale {
		ids = append(ids, cart.ID)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id IN ?", ids).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("cart service: delete stale items: %w", err)
		}
		if err := tx.Where("id IN ?", ids).Delete(&models.Cart{}).Error; err != nil {
			return fmt.Errorf("cart service: delete stale carts: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}
