package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/kestrelhq/kestrel/internal/auth"
	"github.com/kestrelhq/kestrel/internal/models"
	"github.com/kestrelhq/kestrel/pkg/crypto"
	apperrors "github.com/kestrelhq/kestrel/pkg/errors"
	"github.com/kestrelhq/kestrel/pkg/metrics"
)

// LoginInput carries the credentials presented at the login endpoint.
type LoginInput struct {
	Email    string
	Password string
	IP       string
}

// AuthResult bundles the issued token with the authenticated user.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// AuthService authenticates users and issues access tokens.
type AuthService struct {
	db  *gorm.DB
	jwt *auth.JWTService
}

// NewAuthService constructs an AuthService.
func NewAuthService(db *gorm.DB, jwtService *auth.JWTService) (*AuthService, error) {
	if db == nil {
		return nil, errors.New("auth service: db is required")
	}
	if jwtService == nil {
		return nil, errors.New("auth service: jwt service is required")
	}
	return &AuthService{db: db, jwt: jwtService}, nil
}

// Login verifies the credentials and returns a signed access token. Failures
// are deliberately indistinguishable between unknown email, wrong password,
// and deactivated account.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	ctx = ensureContext(ctx)

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.AuthAttempts.WithLabelValues("failure").Inc()
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth service: load user: %w", err)
	}

	if !user.IsActive || !crypto.VerifyPassword(user.Password, input.Password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateAccessToken(auth.AccessTokenInput{
		UserID: user.ID,
		Role:   user.PrimaryRole,
	})
	if err != nil {
		return nil, fmt.Errorf("auth service: issue token: %w", err)
	}

	now := time.Now().UTC()
	updates := map[string]any{"last_login_at": now}
	if ip := strings.TrimSpace(input.IP); ip != "" {
		updates["last_login_ip"] = ip
	}
	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("auth service: record login: %w", err)
	}
	user.LastLoginAt = &now

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	return &AuthResult{Token: token, User: &user}, nil
}

// Me returns the authenticated user's profile.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, fmt.Errorf("auth service: load user: %w", err)
	}
	if !user.IsActive {
		return nil, apperrors.ErrUnauthorized
	}
	return &user, nil
}
