package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/kestrelhq/kestrel/internal/models"
	"github.com/kestrelhq/kestrel/internal/realtime"
	apperrors "github.com/kestrelhq/kestrel/pkg/errors"
)

// ListNotificationsInput defines filters for querying a user's notifications.
type ListNotificationsInput struct {
	UserID     string
	UnreadOnly bool
	Limit      int
	Offset     int
}

// NotificationService manages in-app notifications. Stock alerts and order
// events are written by the inventory engine and order service; this service
// owns the read side and the read/unread state.
type NotificationService struct {
	db  *gorm.DB
	hub *realtime.Hub
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(db *gorm.DB, hub *realtime.Hub) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	return &NotificationService{db: db, hub: hub}, nil
}

// visibleTo narrows notifications to those the user may see: broadcast rows
// plus rows addressed to them.
func (s *NotificationService) visibleTo(ctx context.Context, userID string) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("target_user_id = ? OR target_user_id IS NULL", userID)
}

// ListForUser returns notifications for the supplied user ordered by recency.
func (s *NotificationService) ListForUser(ctx context.Context, input ListNotificationsInput) ([]models.Notification, error) {
	ctx = ensureContext(ctx)

	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, errors.New("notification service: user id is required")
	}

	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	query := s.visibleTo(ctx, userID)
	if input.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var rows []models.Notification
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification service: list notifications: %w", err)
	}
	return rows, nil
}

// UnreadCount returns the number of unread notifications visible to the user.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	ctx = ensureContext(ctx)

	var count int64
	if err := s.visibleTo(ctx, strings.TrimSpace(userID)).
		Where("is_read = ?", false).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("notification service: unread count: %w", err)
	}
	return count, nil
}

// MarkRead sets the read flag on one visible notification.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) (*models.Notification, error) {
	ctx = ensureContext(ctx)

	var notification models.Notification
	if err := s.visibleTo(ctx, userID).
		Where("id = ?", strings.TrimSpace(notificationID)).
		First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("notification service: load notification: %w", err)
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&notification).Updates(map[string]any{
		"is_read": true,
		"read_at": now,
	}).Error; err != nil {
		return nil, fmt.Errorf("notification service: mark read: %w", err)
	}

	notification.IsRead = true
	notification.ReadAt = &now
	s.broadcast(userID, "notification.read", notification.ID)
	return &notification, nil
}

// MarkAllRead marks every unread notification visible to the user.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	ctx = ensureContext(ctx)

	now := time.Now().UTC()
	if err := s.visibleTo(ctx, strings.TrimSpace(userID)).
		Where("is_read = ?", false).
		Updates(map[string]any{
			"is_read": true,
			"read_at": now,
		}).Error; err != nil {
		return fmt.Errorf("notification service: mark all read: %w", err)
	}

	s.broadcast(userID, "notification.read_all", "")
	return nil
}

// Delete removes one notification visible to the user.
func (s *NotificationService) Delete(ctx context.Context, userID, notificationID string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("id = ? AND (target_user_id = ? OR target_user_id IS NULL)", strings.TrimSpace(notificationID), userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return fmt.Errorf("notification service: delete notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}

	s.broadcast(userID, "notification.deleted", notificationID)
	return nil
}

// PurgeOlderThan removes notifications created before the cutoff. Used by the
// maintenance cleaner's daily retention pass.
func (s *NotificationService) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: purge notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *NotificationService) broadcast(userID, event, notificationID string) {
	if s.hub == nil {
		return
	}
	message := realtime.Message{Event: event}
	if notificationID != "" {
		message.Data = map[string]any{"notification_id": notificationID}
	}
	s.hub.BroadcastToUser(realtime.StreamNotifications, userID, message)
}
