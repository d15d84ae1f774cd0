package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/kestrelhq/kestrel/internal/models"
	"github.com/kestrelhq/kestrel/internal/permissions"
	"github.com/kestrelhq/kestrel/pkg/crypto"
	apperrors "github.com/kestrelhq/kestrel/pkg/errors"
)

// CreateUserInput defines the attributes for a new account.
type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Role      string
	CreatedBy string
}

// UpdateUserInput carries optional profile updates; nil fields are untouched.
type UpdateUserInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Avatar    *string
}

// ListUsersInput defines pagination for scoped user listings.
type ListUsersInput struct {
	Page    int
	PerPage int
}

// UserService manages accounts. Role assignment is delegated to RoleService
// so the primary-role invariant has a single writer.
type UserService struct {
	db    *gorm.DB
	roles *RoleService
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB, roles *RoleService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	if roles == nil {
		return nil, errors.New("user service: role service is required")
	}
	return &UserService{db: db, roles: roles}, nil
}

// Create registers a new account and assigns its initial role.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewBadRequest("password must be at least 8 characters")
	}
	roleName := defaultIfEmpty(strings.TrimSpace(input.Role), models.RoleCustomer)

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Email:     email,
		Password:  hash,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Phone:     strings.TrimSpace(input.Phone),
		IsActive:  true,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrConflict.WithInternal(err)
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	assign := AssignRoleInput{UserID: user.ID, RoleName: roleName}
	if createdBy := strings.TrimSpace(input.CreatedBy); createdBy != "" {
		assign.AssignedByID = &createdBy
	}
	if _, err := s.roles.Assign(ctx, assign); err != nil {
		return nil, err
	}

	user.PrimaryRole = roleName
	return user, nil
}

// List returns users visible to the viewer, newest first.
func (s *UserService) List(ctx context.Context, viewer Viewer, input ListUsersInput) ([]models.User, int64, error) {
	ctx = ensureContext(ctx)

	page := input.Page
	if page < 1 {
		page = 1
	}
	perPage := input.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = 25
	}

	query := permissions.ScopedQuery(s.db.WithContext(ctx), viewer.Role, viewer.UserID, permissions.EntityUser)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: count users: %w", err)
	}

	var users []models.User
	if err := query.
		Order("created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: list users: %w", err)
	}
	return users, total, nil
}

// Get loads a single user within the viewer's scope.
func (s *UserService) Get(ctx context.Context, viewer Viewer, userID string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	if err := permissions.ScopedFirst(s.db.WithContext(ctx), viewer.Role, viewer.UserID, permissions.EntityUser, userID, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Update applies profile changes to a user in the viewer's scope.
func (s *UserService) Update(ctx context.Context, viewer Viewer, userID string, input UpdateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.Get(ctx, viewer, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*input.LastName)
	}
	if input.Phone != nil {
		updates["phone"] = strings.TrimSpace(*input.Phone)
	}
	if input.Avatar != nil {
		updates["avatar"] = strings.TrimSpace(*input.Avatar)
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("user service: update user: %w", err)
	}
	return user, nil
}

// SetActive toggles an account. Deactivating a super admin is refused.
func (s *UserService) SetActive(ctx context.Context, viewer Viewer, userID string, active bool) error {
	ctx = ensureContext(ctx)

	user, err := s.Get(ctx, viewer, userID)
	if err != nil {
		return err
	}
	if !active && user.IsSuperAdmin() {
		return apperrors.NewBadRequest("super admin accounts cannot be deactivated")
	}

	if err := s.db.WithContext(ctx).Model(user).Update("is_active", active).Error; err != nil {
		return fmt.Errorf("user service: set active: %w", err)
	}
	return nil
}
