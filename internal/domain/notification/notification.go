// Package notification holds messages delivered to portal users in-app and
// through WeChat subscribe messages.
package notification

import (
	"strings"
	"time"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Kind is what a notification is about
type Kind string

const (
	KindOrderStatus       Kind = "ORDER_STATUS"
	KindBillIssued        Kind = "BILL_ISSUED"
	KindBillOverdue       Kind = "BILL_OVERDUE"
	KindBillPaid          Kind = "BILL_PAID"
	KindShipmentMilestone Kind = "SHIPMENT_MILESTONE"
	KindCompanyReviewed   Kind = "COMPANY_REVIEWED"
)

// IsValid checks if the kind is known
func (k Kind) IsValid() bool {
	switch k {
	case KindOrderStatus, KindBillIssued, KindBillOverdue, KindBillPaid,
		KindShipmentMilestone, KindCompanyReviewed:
		return true
	}
	return false
}

// Channel is the delivery channel
type Channel string

const (
	ChannelInApp  Channel = "IN_APP"
	ChannelWechat Channel = "WECHAT"
)

// IsValid checks if the channel is known
func (c Channel) IsValid() bool {
	return c == ChannelInApp || c == ChannelWechat
}

// Status is the delivery status
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
)

// maxErrorLength caps the stored delivery error
const maxErrorLength = 500

// Notification is a message for one user
type Notification struct {
	shared.BaseEntity
	UserID    uuid.UUID
	CompanyID *uuid.UUID
	Kind      Kind
	Title     string
	Content   string
	RefType   string
	RefID     *uuid.UUID
	// Data carries template values for out-of-app channels
	Data      map[string]string
	Channel   Channel
	Status    Status
	Attempts  int
	LastError string
	SentAt    *time.Time
	ReadAt    *time.Time
}

// New creates a pending notification
func New(userID uuid.UUID, companyID *uuid.UUID, kind Kind, channel Channel, title, content string) (*Notification, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_RECIPIENT", "Notification recipient is required")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainErrorf("INVALID_KIND", "Unknown notification kind %q", kind)
	}
	if !channel.IsValid() {
		return nil, shared.NewDomainErrorf("INVALID_CHANNEL", "Unknown notification channel %q", channel)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, shared.NewDomainError("INVALID_TITLE", "Notification title cannot be empty")
	}
	return &Notification{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		CompanyID:  companyID,
		Kind:       kind,
		Title:      title,
		Content:    content,
		Data:       map[string]string{},
		Channel:    channel,
		Status:     StatusPending,
	}, nil
}

// WithRef attaches the referenced resource
func (n *Notification) WithRef(refType string, refID uuid.UUID) *Notification {
	n.RefType = refType
	n.RefID = &refID
	return n
}

// MarkSent records a successful delivery
func (n *Notification) MarkSent(at time.Time) {
	n.Attempts++
	n.Status = StatusSent
	n.LastError = ""
	n.SentAt = &at
	n.Touch()
}

// MarkFailed records a failed delivery attempt
func (n *Notification) MarkFailed(err error) {
	n.Attempts++
	n.Status = StatusFailed
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	if len(msg) > maxErrorLength {
		msg = msg[:maxErrorLength]
	}
	n.LastError = msg
	n.Touch()
}

// CanRetry reports whether a failed delivery may be attempted again
func (n *Notification) CanRetry(maxAttempts int) bool {
	return n.Status == StatusFailed && n.Channel == ChannelWechat && n.Attempts < maxAttempts
}

// MarkRead marks the notification as read by reader
func (n *Notification) MarkRead(reader uuid.UUID, at time.Time) error {
	if reader != n.UserID {
		return shared.NewDomainError("FORBIDDEN", "Notification belongs to another user")
	}
	if n.ReadAt == nil {
		n.ReadAt = &at
		n.Touch()
	}
	return nil
}

// IsRead reports whether the notification was read
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
