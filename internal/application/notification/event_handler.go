package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/freightport/backend/internal/domain/billing"
	"github.com/freightport/backend/internal/domain/company"
	"github.com/freightport/backend/internal/domain/notification"
	"github.com/freightport/backend/internal/domain/order"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/domain/shipment"
	"github.com/freightport/backend/internal/infrastructure/export"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const timeLayout = "2006-01-02 15:04"

// Notifier fans a message out to a company's users
type Notifier interface {
	Notify(ctx context.Context, companyID uuid.UUID, msg Message) (int, error)
}

// EventHandler turns order, bill, shipment and company events into
// notifications for the company concerned.
type EventHandler struct {
	notifier Notifier
}

// NewEventHandler creates an EventHandler
func NewEventHandler(notifier Notifier) *EventHandler {
	return &EventHandler{notifier: notifier}
}

// EventTypes lists the events that produce notifications
func (h *EventHandler) EventTypes() []string {
	types := order.AllEventTypes()
	return append(types,
		billing.EventTypeBillIssued,
		billing.EventTypeBillOverdue,
		billing.EventTypeBillPaid,
		shipment.EventTypeMilestone,
		company.EventTypeCompanyApproved,
		company.EventTypeCompanyRejected,
	)
}

// Handle builds the message for an event and notifies the company
func (h *EventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	msg, ok := messageFor(event)
	if !ok || event.CompanyID() == uuid.Nil {
		return nil
	}
	_, err := h.notifier.Notify(ctx, event.CompanyID(), msg)
	return err
}

func messageFor(event shared.DomainEvent) (Message, bool) {
	switch e := event.(type) {
	case *order.OrderStatusChangedEvent:
		status := export.Label(string(e.ToStatus))
		content := fmt.Sprintf("Order %s is now %s.", e.OrderNumber, status)
		if e.Reason != "" {
			content += " Reason: " + e.Reason
		}
		return Message{
			Kind:    notification.KindOrderStatus,
			Title:   fmt.Sprintf("Order %s %s", e.OrderNumber, status),
			Content: content,
			RefType: "order",
			RefID:   e.AggregateID(),
			Data: map[string]string{
				"order_no":   e.OrderNumber,
				"status":     status,
				"updated_at": e.OccurredAt().Format(timeLayout),
				"remark":     e.Reason,
			},
		}, true

	case *billing.BillStatusEvent:
		var kind notification.Kind
		var content string
		switch e.EventType() {
		case billing.EventTypeBillIssued:
			kind = notification.KindBillIssued
			content = fmt.Sprintf("Bill %s for order %s has been issued: %s %s due %s.",
				e.BillNumber, e.OrderNumber, e.Currency, e.Amount, formatDay(e.DueDate))
		case billing.EventTypeBillOverdue:
			kind = notification.KindBillOverdue
			content = fmt.Sprintf("Bill %s is overdue. %s %s of %s %s has been paid.",
				e.BillNumber, e.Currency, e.PaidAmount, e.Currency, e.Amount)
		case billing.EventTypeBillPaid:
			kind = notification.KindBillPaid
			content = fmt.Sprintf("Bill %s has been paid in full.", e.BillNumber)
		default:
			return Message{}, false
		}
		return Message{
			Kind:    kind,
			Title:   fmt.Sprintf("Bill %s %s", e.BillNumber, export.Label(string(e.Status))),
			Content: content,
			RefType: "bill",
			RefID:   e.AggregateID(),
			Data: map[string]string{
				"bill_no":     e.BillNumber,
				"amount":      e.Amount,
				"outstanding": outstanding(e.Amount, e.PaidAmount),
				"due_date":    formatDay(e.DueDate),
				"paid_at":     e.OccurredAt().Format(timeLayout),
			},
		}, true

	case *shipment.MilestoneEvent:
		status := export.Label(string(e.ToStatus))
		return Message{
			Kind:    notification.KindShipmentMilestone,
			Title:   fmt.Sprintf("%s %s", e.TrackingNumber, status),
			Content: fmt.Sprintf("%s reported %s at %s.", e.TrackingNumber, export.Label(e.Code), e.Location),
			RefType: "shipment",
			RefID:   e.AggregateID(),
			Data: map[string]string{
				"tracking_number": e.TrackingNumber,
				"milestone":       status,
				"location":        e.Location,
				"event_time":      e.OccurredAtTime.Format(timeLayout),
			},
		}, true

	case *company.CompanyReviewedEvent:
		title := fmt.Sprintf("%s approved", e.Name)
		content := fmt.Sprintf("Your company has been approved with a credit limit of %s.", e.CreditLimit)
		if e.Status == company.StatusRejected {
			title = fmt.Sprintf("%s rejected", e.Name)
			content = "Your company application was rejected. Reason: " + e.Reason
		}
		return Message{
			Kind:    notification.KindCompanyReviewed,
			Title:   title,
			Content: content,
			RefType: "company",
			RefID:   e.AggregateID(),
			Data: map[string]string{
				"company": e.Name,
				"status":  export.Label(string(e.Status)),
			},
		}, true
	}
	return Message{}, false
}

func formatDay(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

func outstanding(amount, paid string) string {
	a, err := decimal.NewFromString(amount)
	if err != nil {
		return amount
	}
	p, err := decimal.NewFromString(paid)
	if err != nil {
		return amount
	}
	return a.Sub(p).StringFixed(2)
}
