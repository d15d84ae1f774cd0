package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/kestrelhq/kestrel/internal/models"
	apperrors "github.com/kestrelhq/kestrel/pkg/errors"
)

// WishlistService manages customers' saved products.
type WishlistService struct {
	db *gorm.DB
}

// NewWishlistService constructs a WishlistService.
func NewWishlistService(db *gorm.DB) (*WishlistService, error) {
	if db == nil {
		return nil, errors.New("wishlist service: db is required")
	}
	return &WishlistService{db: db}, nil
}

// GetOrCreate returns the user's wishlist with items, creating it on first use.
func (s *WishlistService) GetOrCreate(ctx context.Context, userID string) (*models.Wishlist, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}

	var wishlist models.Wishlist
	err := s.db.WithContext(ctx).Preload("Items").Where("user_id = ?", userID).First(&wishlist).Error
	if err == nil {
		return &wishlist, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("wishlist service: load wishlist: %w", err)
	}

	wishlist = models.Wishlist{UserID: userID}
	if err := s.db.WithContext(ctx).Create(&wishlist).Error; err != nil {
		return nil, fmt.Errorf("wishlist service: create wishlist: %w", err)
	}
	return &wishlist, nil
}

// AddProduct saves a product. Adding a product twice is a no-op.
func (s *WishlistService) AddProduct(ctx context.Context, userID, productID string) (*models.Wishlist, error) {
	ctx = ensureContext(ctx)

	wishlist, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	productID = strings.TrimSpace(productID)
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("wishlist service: load product: %w", err)
	}

	item := models.WishlistItem{WishlistID: wishlist.ID, ProductID: product.ID}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		if !isUniqueConstraintError(err) {
			return nil, fmt.Errorf("wishlist service: add product: %w", err)
		}
	}

	return s.GetOrCreate(ctx, userID)
}

// RemoveProduct removes a saved product.
func (s *WishlistService) RemoveProduct(ctx context.Context, userID, productID string) (*models.Wishlist, error) {
	ctx = ensureContext(ctx)

	wishlist, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := s.db.WithContext(ctx).
		Where("wishlist_id = ? AND product_id = ?", wishlist.ID, strings.TrimSpace(productID)).
		Delete(&models.WishlistItem{})
	if result.Error != nil {
		return nil, fmt.Errorf("wishlist service: remove product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ErrNotFound
	}

	return s.GetOrCreate(ctx, userID)
}
