package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/kestrelhq/kestrel/internal/models"
	"github.com/kestrelhq/kestrel/internal/permissions"
	apperrors "github.com/kestrelhq/kestrel/pkg/errors"
)

// CreateCategoryInput defines a new catalog category.
type CreateCategoryInput struct {
	Name     string
	ParentID *string
}

// UpdateCategoryInput carries optional category changes.
type UpdateCategoryInput struct {
	Name     *string
	ParentID *string
	IsActive *bool
}

// CategoryService manages the catalog's category tree.
type CategoryService struct {
	db *gorm.DB
}

// NewCategoryService constructs a CategoryService.
func NewCategoryService(db *gorm.DB) (*CategoryService, error) {
	if db == nil {
		return nil, errors.New("category service: db is required")
	}
	return &CategoryService{db: db}, nil
}

// Create registers a category. The slug is derived from the name.
func (s *CategoryService) Create(ctx context.Context, input CreateCategoryInput) (*models.Category, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("category name is required")
	}

	if input.ParentID != nil {
		var parent models.Category
		if err := s.db.WithContext(ctx).First(&parent, "id = ?", *input.ParentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NewBadRequest("parent category does not exist")
			}
			return nil, fmt.Errorf("category service: load parent: %w", err)
		}
	}

	category := &models.Category{
		Name:     name,
		Slug:     slugify(name),
		ParentID: input.ParentID,
		IsActive: true,
	}
	if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrConflict.WithInternal(err)
		}
		return nil, fmt.Errorf("category service: create category: %w", err)
	}
	return category, nil
}

// List returns categories visible to the viewer.
func (s *CategoryService) List(ctx context.Context, viewer Viewer) ([]models.Category, error) {
	ctx = ensureContext(ctx)

	var categories []models.Category
	if err := permissions.ScopedQuery(s.db.WithContext(ctx), viewer.Role, viewer.UserID, permissions.EntityCategory).
		Order("name ASC").
		Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("category service: list categories: %w", err)
	}
	return categories, nil
}

// Get loads a single category within the viewer's scope.
func (s *CategoryService) Get(ctx context.Context, viewer Viewer, categoryID string) (*models.Category, error) {
	ctx = ensureContext(ctx)

	var category models.Category
	if err := permissions.ScopedFirst(s.db.WithContext(ctx), viewer.Role, viewer.UserID, permissions.EntityCategory, categoryID, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

// Update applies changes to a category.
func (s *CategoryService) Update(ctx context.Context, viewer Viewer, categoryID string, input UpdateCategoryInput) (*models.Category, error) {
	ctx = ensureContext(ctx)

	category, err := s.Get(ctx, viewer, categoryID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("category name is required")
		}
		updates["name"] = name
		updates["slug"] = slugify(name)
	}
	if input.ParentID != nil {
		if *input.ParentID == categoryID {
			return nil, apperrors.NewBadRequest("category cannot be its own parent")
		}
		updates["parent_id"] = *input.ParentID
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		return category, nil
	}

	if err := s.db.WithContext(ctx).Model(category).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrConflict.WithInternal(err)
		}
		return nil, fmt.Errorf("category service: update category: %w", err)
	}
	return category, nil
}

// Delete removes an empty category. Categories with products or children are refused.
func (s *CategoryService) Delete(ctx context.Context, viewer Viewer, categoryID string) error {
	ctx = ensureContext(ctx)

	category, err := s.Get(ctx, viewer, categoryID)
	if err != nil {
		return err
	}

	var children int64
	if err := s.db.WithContext(ctx).Model(&models.Category{}).
		Where("parent_id = ?", category.ID).
		Count(&children).Error; err != nil {
		return fmt.Errorf("category service: count children: %w", err)
	}
	if children > 0 {
		return apperrors.NewBadRequest("category has child categories")
	}

	var products int64
	if err := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("category_id = ?", category.ID).
		Count(&products).Error; err != nil {
		return fmt.Errorf("category service: count products: %w", err)
	}
	if products > 0 {
		return apperrors.NewBadRequest("category still has products")
	}

	if err := s.db.WithContext(ctx).Delete(category).Error; err != nil {
		return fmt.Errorf("category service: delete category: %w", err)
	}
	return nil
}
