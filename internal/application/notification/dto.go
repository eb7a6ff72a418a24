package notification

import (
	"time"

	"github.com/freightport/backend/internal/domain/notification"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Message is what a domain event turns into before fan-out
type Message struct {
	Kind    notification.Kind
	Title   string
	Content string
	RefType string
	RefID   uuid.UUID
	// Data feeds WeChat template fields
	Data map[string]string
}

// ListInput narrows ListMine
type ListInput struct {
	shared.Filter
	UnreadOnly bool
	Kind       string
}

// NotificationDTO is the notification representation returned to callers
type NotificationDTO struct {
	ID        uuid.UUID  `json:"id"`
	Kind      string     `json:"kind"`
	Title     string     `json:"title"`
	Content   string     `json:"content,omitempty"`
	RefType   string     `json:"ref_type,omitempty"`
	RefID     *uuid.UUID `json:"ref_id,omitempty"`
	Channel   string     `json:"channel"`
	Status    string     `json:"status"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ToNotificationDTO converts a notification to its DTO
func ToNotificationDTO(n *notification.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        n.ID,
		Kind:      string(n.Kind),
		Title:     n.Title,
		Content:   n.Content,
		RefType:   n.RefType,
		RefID:     n.RefID,
		Channel:   string(n.Channel),
		Status:    string(n.Status),
		Read:      n.IsRead(),
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}
