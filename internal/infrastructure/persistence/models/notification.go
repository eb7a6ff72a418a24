package models

import (
	"time"

	"github.com/freightport/backend/internal/domain/notification"
	"github.com/google/uuid"
)

// NotificationModel is the persistence model for notifications.
type NotificationModel struct {
	BaseModel
	UserID    uuid.UUID            `gorm:"type:uuid;not null;index:idx_notification_user_read,priority:1"`
	CompanyID *uuid.UUID           `gorm:"type:uuid;index"`
	Kind      notification.Kind    `gorm:"type:varchar(30);not null"`
	Title     string               `gorm:"type:varchar(200);not null"`
	Content   string               `gorm:"type:text"`
	RefType   string               `gorm:"type:varchar(30)"`
	RefID     *uuid.UUID           `gorm:"type:uuid"`
	Data      map[string]string    `gorm:"type:text;serializer:json"`
	Channel   notification.Channel `gorm:"type:varchar(20);not null;index:idx_notification_delivery,priority:1"`
	Status    notification.Status  `gorm:"type:varchar(20);not null;index:idx_notification_delivery,priority:2"`
	Attempts  int                  `gorm:"not null;default:0"`
	LastError string               `gorm:"type:varchar(500)"`
	SentAt    *time.Time
	ReadAt    *time.Time `gorm:"index:idx_notification_user_read,priority:2"`
}

// TableName returns the table name for GORM
func (NotificationModel) TableName() string {
	return "notifications"
}

// ToDomain converts the persistence model to a domain Notification.
func (m *NotificationModel) ToDomain() *notification.Notification {
	return &notification.Notification{
		BaseEntity: m.Entity(),
		UserID:     m.UserID,
		CompanyID:  m.CompanyID,
		Kind:       m.Kind,
		Title:      m.Title,
		Content:    m.Content,
		RefType:    m.RefType,
		RefID:      m.RefID,
		Data:       m.Data,
		Channel:    m.Channel,
		Status:     m.Status,
		Attempts:   m.Attempts,
		LastError:  m.LastError,
		SentAt:     m.SentAt,
		ReadAt:     m.ReadAt,
	}
}

// NotificationModelFromDomain creates a persistence model from a domain Notification.
func NotificationModelFromDomain(n *notification.Notification) *NotificationModel {
	m := &NotificationModel{
		UserID:    n.UserID,
		CompanyID: n.CompanyID,
		Kind:      n.Kind,
		Title:     n.Title,
		Content:   n.Content,
		RefType:   n.RefType,
		RefID:     n.RefID,
		Data:      n.Data,
		Channel:   n.Channel,
		Status:    n.Status,
		Attempts:  n.Attempts,
		LastError: n.LastError,
		SentAt:    n.SentAt,
		ReadAt:    n.ReadAt,
	}
	m.SetEntity(n.BaseEntity)
	return m
}
