package order

import (
	"strings"

	"github.com/freightport/backend/internal/domain/shared"
)

// AggregateTypeOrder is the aggregate type for orders
const AggregateTypeOrder = "Order"

// Event types carry the target status: order.pending, order.confirmed, ...
const EventTypePrefix = "order."

// EventTypeFor returns the event type emitted when an order enters status
func EventTypeFor(status Status) string {
	return EventTypePrefix + strings.ToLower(string(status))
}

// AllEventTypes lists every order event type
func AllEventTypes() []string {
	types := make([]string, 0, len(AllStatuses()))
	for _, s := range AllStatuses() {
		types = append(types, EventTypeFor(s))
	}
	return types
}

// OrderStatusChangedEvent is published on creation and on every transition
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderNumber  string `json:"order_number"`
	FromStatus   Status `json:"from_status"`
	ToStatus     Status `json:"to_status"`
	Reason       string `json:"reason,omitempty"`
	QuotedAmount string `json:"quoted_amount"`
	Currency     string `json:"currency,omitempty"`
}

// NewOrderStatusChangedEvent creates an event for the order's current status
func NewOrderStatusChangedEvent(o *Order, from Status, reason string) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFor(o.Status), AggregateTypeOrder, o.ID, o.CompanyID),
		OrderNumber:     o.OrderNumber,
		FromStatus:      from,
		ToStatus:        o.Status,
		Reason:          reason,
		QuotedAmount:    o.QuotedAmount.StringFixed(2),
		Currency:        o.Currency,
	}
}
