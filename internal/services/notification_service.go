package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/utleieskade/backend/internal/apperrors"
	"github.com/utleieskade/backend/internal/logger"
	"github.com/utleieskade/backend/internal/models"
	"github.com/utleieskade/backend/internal/realtime"
)

type NotificationService struct {
	db      *gorm.DB
	emitter realtime.Emitter
}

func NewNotificationService(db *gorm.DB, emitter realtime.Emitter) *NotificationService {
	return &NotificationService{db: db, emitter: emitter}
}

// Notify stores a notification and pushes it to the user's sockets. Best effort.
func (ns *NotificationService) Notify(ctx context.Context, userID string, typ models.NotificationType, title, body string, caseID *string) {
	n := models.Notification{
		UserID: userID,
		Type:   typ,
		Title:  title,
		Body:   body,
		CaseID: caseID,
	}
	if err := ns.db.WithContext(ctx).Create(&n).Error; err != nil {
		logger.WithError(err, "notification_service").Error("Failed to store notification")
		return
	}
	ns.emitter.Emit(userID, realtime.EventNotification, n)
}

func (ns *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, p Pagination) (*Page[models.Notification], error) {
	query := ns.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.FromGorm(err, "notifications")
	}
	var items []models.Notification
	if err := query.Order("created_at DESC").Offset(p.Offset()).Limit(p.Limit).Find(&items).Error; err != nil {
		return nil, apperrors.FromGorm(err, "notifications")
	}
	return &Page[models.Notification]{Items: items, Page: p.Page, Limit: p.Limit, Total: total}, nil
}

func (ns *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := ns.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, apperrors.FromGorm(err, "notifications")
}

func (ns *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	now := time.Now()
	res := ns.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	if res.Error != nil {
		return apperrors.FromGorm(res.Error, "notification")
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFoundError("notification not found")
	}
	return nil
}

func (ns *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := ns.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	return res.RowsAffected, apperrors.FromGorm(res.Error, "notifications")
}

func (ns *NotificationService) Delete(ctx context.Context, userID, id string) error {
	res := ns.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if res.Error != nil {
		return apperrors.FromGorm(res.Error, "notification")
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFoundError("notification not found")
	}
	return nil
}
