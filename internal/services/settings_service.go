package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kestrelhq/kestrel/internal/models"
	apperrors "github.com/kestrelhq/kestrel/pkg/errors"
)

// Well-known setting keys.
const (
	SettingStoreName             = "store.name"
	SettingStoreCurrency         = "store.currency"
	SettingLowStockThreshold     = "inventory.low_stock_threshold"
	SettingNotificationRetention = "notifications.retention_days"
)

// Defaults applied when a key is missing.
const (
	defaultLowStockThreshold     = 5
	defaultNotificationRetention = 30
)

// SettingsService reads and writes installation-wide settings.
type SettingsService struct {
	db *gorm.DB
}

// NewSettingsService constructs a SettingsService.
func NewSettingsService(db *gorm.DB) (*SettingsService, error) {
	if db == nil {
		return nil, errors.New("settings service: db is required")
	}
	return &SettingsService{db: db}, nil
}

// Get returns the value for a key.
func (s *SettingsService) Get(ctx context.Context, key string) (string, error) {
	ctx = ensureContext(ctx)

	key = strings.TrimSpace(key)
	if key == "" {
		return "", apperrors.NewBadRequest("setting key is required")
	}

	var setting models.SystemSetting
	if err := s.db.WithContext(ctx).First(&setting, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.ErrNotFound
		}
		return "", fmt.Errorf("settings service: load setting: %w", err)
	}
	return setting.Value, nil
}

// GetAll returns every stored setting keyed by name.
func (s *SettingsService) GetAll(ctx context.Context) (map[string]string, error) {
	ctx = ensureContext(ctx)

	var settings []models.SystemSetting
	if err := s.db.WithContext(ctx).Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("settings service: list settings: %w", err)
	}

	out := make(map[string]string, len(settings))
	for _, setting := range settings {
		out[setting.Key] = setting.Value
	}
	return out, nil
}

// Put upserts a setting value.
func (s *SettingsService) Put(ctx context.Context, key, value string) error {
	ctx = ensureContext(ctx)

	key = strings.TrimSpace(key)
	if key == "" {
		return apperrors.NewBadRequest("setting key is required")
	}

	setting := models.SystemSetting{Key: key, Value: strings.TrimSpace(value)}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&setting).Error; err != nil {
		return fmt.Errorf("settings service: save setting: %w", err)
	}
	return nil
}

// LowStockThreshold returns the configured threshold, falling back to the
// default when missing or malformed.
func (s *SettingsService) LowStockThreshold(ctx context.Context) int {
	return s.intSetting(ctx, SettingLowStockThreshold, defaultLowStockThreshold)
}

// NotificationRetentionDays returns the configured retention period.
func (s *SettingsService) NotificationRetentionDays(ctx context.Context) int {
	return s.intSetting(ctx, SettingNotificationRetention, defaultNotificationRetention)
}

func (s *SettingsService) intSetting(ctx context.Context, key string, fallback int) int {
	value, err := s.Get(ctx, key)
	if err != nil {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
