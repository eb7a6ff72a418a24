// Package notification delivers domain events to the users of the affected
// company, in-app over the websocket stream and through WeChat subscribe
// messages.
package notification

import (
	"context"
	"time"

	"github.com/freightport/backend/internal/domain/identity"
	"github.com/freightport/backend/internal/domain/notification"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/infrastructure/wechat"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pusher streams in-app notifications to connected users
type Pusher interface {
	Push(userID uuid.UUID, payload any)
}

// Sender delivers WeChat subscribe messages
type Sender interface {
	SendSubscribeMessage(ctx context.Context, msg wechat.SubscribeMessage) error
}

// Templates resolves the WeChat template of a notification kind
type Templates interface {
	Lookup(kind string) (wechat.Template, bool)
}

// Metrics counts delivery attempts per channel
type Metrics interface {
	NotificationDelivered(channel string, err error)
}

// Service stores and delivers notifications
type Service struct {
	repo      notification.Repository
	users     identity.UserRepository
	sender    Sender
	templates Templates
	pusher    Pusher
	metrics   Metrics
	logger    *zap.Logger
}

// NewService creates a notification service. Without a sender or templates
// only in-app notifications are produced. pusher and metrics may be nil.
func NewService(
	repo notification.Repository,
	users identity.UserRepository,
	sender Sender,
	templates Templates,
	pusher Pusher,
	metrics Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:      repo,
		users:     users,
		sender:    sender,
		templates: templates,
		pusher:    pusher,
		metrics:   metrics,
		logger:    logger,
	}
}

// Notify fans msg out to every active member of a company and returns the
// number of notifications stored.
func (s *Service) Notify(ctx context.Context, companyID uuid.UUID, msg Message) (int, error) {
	users, err := s.users.FindByCompany(ctx, companyID)
	if err != nil {
		return 0, err
	}
	stored := 0
	for _, u := range users {
		n, err := s.notifyUser(ctx, u, companyID, msg)
		stored += n
		if err != nil {
			return stored, err
		}
	}
	s.logger.Debug("Notifications fanned out",
		zap.String("kind", string(msg.Kind)),
		zap.String("company_id", companyID.String()),
		zap.Int("recipients", len(users)),
		zap.Int("stored", stored))
	return stored, nil
}

func (s *Service) notifyUser(ctx context.Context, u *identity.User, companyID uuid.UUID, msg Message) (int, error) {
	inApp, err := s.build(u.ID, companyID, msg, notification.ChannelInApp)
	if err != nil {
		return 0, err
	}
	inApp.MarkSent(time.Now())
	if err := s.repo.Create(ctx, inApp); err != nil {
		return 0, err
	}
	s.countDelivery(notification.ChannelInApp, nil)
	if s.pusher != nil {
		s.pusher.Push(u.ID, ToNotificationDTO(inApp))
	}

	if u.WechatOpenID == nil || *u.WechatOpenID == "" || s.sender == nil || s.templates == nil {
		return 1, nil
	}
	tpl, ok := s.templates.Lookup(string(msg.Kind))
	if !ok {
		return 1, nil
	}
	wx, err := s.build(u.ID, companyID, msg, notification.ChannelWechat)
	if err != nil {
		return 1, err
	}
	// Delivery failures are kept on the record for RetryFailed
	s.deliver(ctx, wx, *u.WechatOpenID, tpl)
	if err := s.repo.Create(ctx, wx); err != nil {
		return 1, err
	}
	return 2, nil
}

func (s *Service) build(userID, companyID uuid.UUID, msg Message, channel notification.Channel) (*notification.Notification, error) {
	var company *uuid.UUID
	if companyID != uuid.Nil {
		company = &companyID
	}
	n, err := notification.New(userID, company, msg.Kind, channel, msg.Title, msg.Content)
	if err != nil {
		return nil, err
	}
	if msg.RefID != uuid.Nil {
		n.WithRef(msg.RefType, msg.RefID)
	}
	for k, v := range msg.Data {
		n.Data[k] = v
	}
	return n, nil
}

// deliver sends one WeChat notification and records the outcome on it
func (s *Service) deliver(ctx context.Context, n *notification.Notification, openID string, tpl wechat.Template) {
	refID := ""
	if n.RefID != nil {
		refID = n.RefID.String()
	}
	err := s.sender.SendSubscribeMessage(ctx, wechat.SubscribeMessage{
		ToUser:     openID,
		TemplateID: tpl.TemplateID,
		Page:       tpl.PagePath(refID),
		Data:       tpl.Render(n.Data),
	})
	if err != nil {
		n.MarkFailed(err)
		s.logger.Warn("WeChat notification failed",
			zap.String("notification_id", n.ID.String()),
			zap.String("user_id", n.UserID.String()),
			zap.Int("attempts", n.Attempts),
			zap.Error(err))
	} else {
		n.MarkSent(time.Now())
	}
	s.countDelivery(notification.ChannelWechat, err)
}

func (s *Service) countDelivery(channel notification.Channel, err error) {
	if s.metrics != nil {
		s.metrics.NotificationDelivered(string(channel), err)
	}
}

// RetryFailed re-sends failed WeChat notifications that have fewer than
// maxAttempts attempts. It returns how many were delivered.
func (s *Service) RetryFailed(ctx context.Context, maxAttempts, limit int) (int, error) {
	if s.sender == nil || s.templates == nil {
		return 0, nil
	}
	pending, err := s.repo.FindRetryable(ctx, maxAttempts, limit)
	if err != nil {
		return 0, err
	}
	delivered := 0
	for i := range pending {
		n := &pending[i]
		if !n.CanRetry(maxAttempts) {
			continue
		}
		tpl, ok := s.templates.Lookup(string(n.Kind))
		if !ok {
			continue
		}
		u, err := s.users.FindByID(ctx, n.UserID)
		if err != nil {
			if shared.IsNotFound(err) {
				continue
			}
			return delivered, err
		}
		if u.WechatOpenID == nil || *u.WechatOpenID == "" {
			n.MarkFailed(identity.ErrWechatNotBound)
		} else {
			s.deliver(ctx, n, *u.WechatOpenID, tpl)
		}
		if err := s.repo.Update(ctx, n); err != nil {
			return delivered, err
		}
		if n.Status == notification.StatusSent {
			delivered++
		}
	}
	if len(pending) > 0 {
		s.logger.Info("Notification retry finished",
			zap.Int("candidates", len(pending)),
			zap.Int("delivered", delivered))
	}
	return delivered, nil
}

// ListMine returns the caller's in-app notifications, newest first
func (s *Service) ListMine(ctx context.Context, actor shared.Actor, input ListInput) (*shared.Paginated[NotificationDTO], error) {
	filter := notification.ListFilter{
		Filter:     input.Filter.Normalize(),
		UnreadOnly: input.UnreadOnly,
		Kind:       notification.Kind(input.Kind),
	}
	if filter.Kind != "" && !filter.Kind.IsValid() {
		return nil, shared.NewDomainErrorf("INVALID_KIND", "Unknown notification kind %q", input.Kind)
	}
	items, total, err := s.repo.FindForUser(ctx, actor.UserID, filter)
	if err != nil {
		return nil, err
	}
	dtos := make([]NotificationDTO, len(items))
	for i := range items {
		dtos[i] = ToNotificationDTO(&items[i])
	}
	page := shared.NewPaginated(dtos, total, filter.Page, filter.PageSize)
	return &page, nil
}

// UnreadCount returns how many in-app notifications the caller has not read
func (s *Service) UnreadCount(ctx context.Context, actor shared.Actor) (int64, error) {
	return s.repo.CountUnread(ctx, actor.UserID)
}

// MarkRead marks one of the caller's notifications as read
func (s *Service) MarkRead(ctx context.Context, actor shared.Actor, id uuid.UUID) (*NotificationDTO, error) {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := n.MarkRead(actor.UserID, time.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, n); err != nil {
		return nil, err
	}
	dto := ToNotificationDTO(n)
	return &dto, nil
}

// MarkAllRead marks every unread notification of the caller as read
func (s *Service) MarkAllRead(ctx context.Context, actor shared.Actor) (int64, error) {
	return s.repo.MarkAllRead(ctx, actor.UserID, time.Now())
}
