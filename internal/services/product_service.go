package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kestrelhq/kestrel/internal/inventory"
	"github.com/kestrelhq/kestrel/internal/models"
	"github.com/kestrelhq/kestrel/internal/permissions"
	apperrors "github.com/kestrelhq/kestrel/pkg/errors"
)

// VariantInput defines one variant of a new or updated product.
type VariantInput struct {
	SKU   string
	Color string
	Size  string
	Price decimal.Decimal
	Stock int
}

// CreateProductInput defines a new catalog product.
type CreateProductInput struct {
	Name        string
	Description string
	CategoryID  *string
	CreatedByID string
	Variants    []VariantInput
}

// UpdateProductInput carries optional product changes.
type UpdateProductInput struct {
	Name        *string
	Description *string
	CategoryID  *string
}

// ListProductsInput defines filters and pagination for product listings.
type ListProductsInput struct {
	Page       int
	PerPage    int
	CategoryID string
	ActiveOnly bool
}

// ProductService manages the catalog. Stock writes are delegated to the
// inventory engine so the threshold rules run on every mutation path.
type ProductService struct {
	db     *gorm.DB
	engine *inventory.Engine
}

// NewProductService constructs a ProductService.
func NewProductService(db *gorm.DB, engine *inventory.Engine) (*ProductService, error) {
	if db == nil {
		return nil, errors.New("product service: db is required")
	}
	if engine == nil {
		return nil, errors.New("product service: inventory engine is required")
	}
	return &ProductService{db: db, engine: engine}, nil
}

// Create registers a product with its variants.
func (s *ProductService) Create(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("product name is required")
	}
	createdBy := strings.TrimSpace(input.CreatedByID)
	if createdBy == "" {
		return nil, apperrors.NewBadRequest("creator id is required")
	}
	if len(input.Variants) == 0 {
		return nil, apperrors.NewBadRequest("at least one variant is required")
	}

	product := &models.Product{
		Name:        name,
		Slug:        slugify(name),
		Description: strings.TrimSpace(input.Description),
		CategoryID:  input.CategoryID,
		CreatedByID: createdBy,
		IsActive:    true,
	}
	for _, v := range input.Variants {
		sku := strings.TrimSpace(v.SKU)
		if sku == "" {
			return nil, apperrors.NewBadRequest("variant sku is required")
		}
		if v.Stock < 0 {
			return nil, apperrors.NewBadRequest("variant stock must not be negative")
		}
		if v.Price.IsNegative() {
			return nil, apperrors.NewBadRequest("variant price must not be negative")
		}
		product.Variants = append(product.Variants, models.ProductVariant{
			SKU:   sku,
			Color: strings.TrimSpace(v.Color),
			Size:  strings.TrimSpace(v.Size),
			Price: v.Price,
			Stock: v.Stock,
		})
	}

	// A product created with zero total stock starts inactive.
	if product.TotalStock() == 0 {
		product.IsActive = false
		product.DeactivationReason = models.DeactivationOutOfStock
	}

	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrConflict.WithInternal(err)
		}
		return nil, fmt.Errorf("product service: create product: %w", err)
	}
	return product, nil
}

// List returns products visible to the viewer, newest first.
func (s *ProductService) List(ctx context.Context, viewer Viewer, input ListProductsInput) ([]models.Product, int64, error) {
	ctx = ensureContext(ctx)

	page := input.Page
	if page < 1 {
		page = 1
	}
	perPage := input.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = 25
	}

	query := permissions.ScopedQuery(s.db.WithContext(ctx), viewer.Role, viewer.UserID, permissions.EntityProduct)
	if categoryID := strings.TrimSpace(input.CategoryID); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	if input.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("product service: count products: %w", err)
	}

	var products []models.Product
	if err := query.
		Preload("Variants").
		Order("created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("product service: list products: %w", err)
	}
	return products, total, nil
}

// Get loads a single product with variants within the viewer's scope.
func (s *ProductService) Get(ctx context.Context, viewer Viewer, productID string) (*models.Product, error) {
	ctx = ensureContext(ctx)

	var product models.Product
	err := permissions.ScopedQuery(s.db.WithContext(ctx), viewer.Role, viewer.UserID, permissions.EntityProduct).
		Preload("Variants").
		Where("id = ?", strings.TrimSpace(productID)).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("product service: load product: %w", err)
	}
	return &product, nil
}

// Update applies metadata changes to a product.
func (s *ProductService) Update(ctx context.Context, viewer Viewer, productID string, input UpdateProductInput) (*models.Product, error) {
	ctx = ensureContext(ctx)

	product, err := s.Get(ctx, viewer, productID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("product name is required")
		}
		updates["name"] = name
		updates["slug"] = slugify(name)
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.CategoryID != nil {
		updates["category_id"] = *input.CategoryID
	}
	if len(updates) == 0 {
		return product, nil
	}

	if err := s.db.WithContext(ctx).Model(product).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrConflict.WithInternal(err)
		}
		return nil, fmt.Errorf("product service: update product: %w", err)
	}
	return product, nil
}

// SetActive is the manual active toggle. A manual deactivation is tagged so
// restocking never silently re-lists a product an operator pulled.
func (s *ProductService) SetActive(ctx context.Context, viewer Viewer, productID string, active bool) (*models.Product, error) {
	ctx = ensureContext(ctx)

	product, err := s.Get(ctx, viewer, productID)
	if err != nil {
		return nil, err
	}

	reason := models.DeactivationNone
	if !active {
		reason = models.DeactivationManual
	} else if product.TotalStock() == 0 {
		// Activating a zero-stock product is allowed but it stays flagged, so
		// the next aggregate recompute deactivates it again.
		reason = models.DeactivationOutOfStock
	}

	if err := s.db.WithContext(ctx).Model(product).Updates(map[string]any{
		"is_active":           active,
		"deactivation_reason": reason,
	}).Error; err != nil {
		return nil, fmt.Errorf("product service: set active: %w", err)
	}
	product.IsActive = active
	product.DeactivationReason = reason
	return product, nil
}

// MutateStock applies a stock operation to one variant of a visible product.
func (s *ProductService) MutateStock(ctx context.Context, viewer Viewer, productID, sku string, op inventory.Op, amount int) (*inventory.StockChange, error) {
	ctx = ensureContext(ctx)

	// Scope check first: a seller cannot mutate another seller's inventory.
	if _, err := s.Get(ctx, viewer, productID); err != nil {
		return nil, err
	}
	return s.engine.ApplyStockDelta(ctx, productID, sku, op, amount)
}

// Delete removes a product and its variants. Products referenced by orders
// are kept for history and refused.
func (s *ProductService) Delete(ctx context.Context, viewer Viewer, productID string) error {
	ctx = ensureContext(ctx)

	product, err := s.Get(ctx, viewer, productID)
	if err != nil {
		return err
	}

	var referenced int64
	if err := s.db.WithContext(ctx).Model(&models.OrderItem{}).
		Where("product_id = ?", product.ID).
		Count(&referenced).Error; err != nil {
		return fmt.Errorf("product service: count order references: %w", err)
	}
	if referenced > 0 {
		return apperrors.NewBadRequest("product appears in orders; deactivate it instead")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", product.ID).Delete(&models.ProductVariant{}).Error; err != nil {
			return fmt.Errorf("product service: delete variants: %w", err)
		}
		if err := tx.Delete(product).Error; err != nil {
			return fmt.Errorf("product service: delete product: %w", err)
		}
		return nil
	})
}
