package persistence

import (
	"context"
	"time"

	"github.com/freightport/backend/internal/domain/notification"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormNotificationRepository implements notification.Repository using GORM
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GormNotificationRepository
func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// Create stores a new notification
func (r *GormNotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	return translateError(r.db.WithContext(ctx).Create(models.NotificationModelFromDomain(n)).Error)
}

// Update overwrites the delivery and read state of a notification
func (r *GormNotificationRepository) Update(ctx context.Context, n *notification.Notification) error {
	result := r.db.WithContext(ctx).
		Model(&models.NotificationModel{}).
		Where("id = ?", n.ID).
		Updates(map[string]interface{}{
			"status":     n.Status,
			"attempts":   n.Attempts,
			"last_error": n.LastError,
			"sent_at":    n.SentAt,
			"read_at":    n.ReadAt,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a notification by ID
func (r *GormNotificationRepository) FindByID(ctx context.Context, id uuid.UUID) (*notification.Notification, error) {
	row, err := firstWhere[models.NotificationModel](ctx, r.db, "id = ?", id)
	if err != nil {
		return nil, err
	}
	return row.ToDomain(), nil
}

// FindForUser lists a user's in-app notifications, newest first
func (r *GormNotificationRepository) FindForUser(ctx context.Context, userID uuid.UUID, filter notification.ListFilter) ([]notification.Notification, int64, error) {
	page := filter.Filter.Normalize()
	query := r.db.WithContext(ctx).
		Model(&models.NotificationModel{}).
		Where("user_id = ? AND channel = ?", userID, notification.ChannelInApp)
	if filter.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.NotificationModel
	if err := query.Scopes(pageScope(page, notificationSort, "created_at")).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	items := make([]notification.Notification, len(rows))
	for i := range rows {
		items[i] = *rows[i].ToDomain()
	}
	return items, total, nil
}

// CountUnread counts a user's unread in-app notifications
func (r *GormNotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.NotificationModel{}).
		Where("user_id = ? AND channel = ? AND read_at IS NULL", userID, notification.ChannelInApp).
		Count(&count).Error
	return count, err
}

// MarkAllRead marks every unread notification of the user as read
func (r *GormNotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.NotificationModel{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Updates(map[string]interface{}{"read_at": at, "updated_at": at})
	return result.RowsAffected, result.Error
}

// FindRetryable returns failed WeChat notifications below the attempt limit
func (r *GormNotificationRepository) FindRetryable(ctx context.Context, maxAttempts, limit int) ([]notification.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.NotificationModel
	if err := r.db.WithContext(ctx).
		Where("channel = ? AND status = ? AND attempts < ?", notification.ChannelWechat, notification.StatusFailed, maxAttempts).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]notification.Notification, len(rows))
	for i := range rows {
		items[i] = *rows[i].ToDomain()
	}
	return items, nil
}

var _ notification.Repository = (*GormNotificationRepository)(nil)
