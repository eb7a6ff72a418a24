package billing

import (
	"time"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeBill is the aggregate type for bills
const AggregateTypeBill = "Bill"

const (
	EventTypeBillIssued          = "bill.issued"
	EventTypeBillPaymentRecorded = "bill.payment_recorded"
	EventTypeBillPaid            = "bill.paid"
	EventTypeBillOverdue         = "bill.overdue"
	EventTypeBillCancelled       = "bill.cancelled"
)

// BillStatusEvent is published when a bill enters a notable status
type BillStatusEvent struct {
	shared.BaseDomainEvent
	BillNumber  string     `json:"bill_number"`
	OrderID     uuid.UUID  `json:"order_id"`
	OrderNumber string     `json:"order_number"`
	Status      Status     `json:"status"`
	Amount      string     `json:"amount"`
	PaidAmount  string     `json:"paid_amount"`
	Currency    string     `json:"currency"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// NewBillStatusEvent creates a BillStatusEvent of the given type
func NewBillStatusEvent(eventType string, b *Bill) *BillStatusEvent {
	return &BillStatusEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeBill, b.ID, b.CompanyID),
		BillNumber:      b.BillNumber,
		OrderID:         b.OrderID,
		OrderNumber:     b.OrderNumber,
		Status:          b.Status,
		Amount:          b.Amount.StringFixed(2),
		PaidAmount:      b.PaidAmount.StringFixed(2),
		Currency:        b.Currency,
		DueDate:         b.DueDate,
	}
}

// PaymentRecordedEvent is published for every payment
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	BillNumber string        `json:"bill_number"`
	PaymentID  uuid.UUID     `json:"payment_id"`
	Amount     string        `json:"amount"`
	Method     PaymentMethod `json:"method"`
}

// NewPaymentRecordedEvent creates a PaymentRecordedEvent
func NewPaymentRecordedEvent(b *Bill, p Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillPaymentRecorded, AggregateTypeBill, b.ID, b.CompanyID),
		BillNumber:      b.BillNumber,
		PaymentID:       p.ID,
		Amount:          p.Amount.StringFixed(2),
		Method:          p.Method,
	}
}
