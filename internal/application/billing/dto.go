package billing

import (
	"time"

	"github.com/freightport/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemInput is one charge line as submitted by staff
type ItemInput struct {
	ChargeCode  string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

func toItemInputs(in []ItemInput) []billing.ItemInput {
	out := make([]billing.ItemInput, len(in))
	for i, item := range in {
		out[i] = billing.ItemInput{
			ChargeCode:  billing.ChargeCode(item.ChargeCode),
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
	}
	return out
}

// CreateBillInput contains input for raising a bill against an order.
// Currency defaults to the order's quote currency.
type CreateBillInput struct {
	OrderID  uuid.UUID
	Currency string
	Items    []ItemInput
	DueDate  *time.Time
	Remark   string
}

// UpdateBillInput replaces the editable parts of a draft bill
type UpdateBillInput struct {
	Items   []ItemInput
	DueDate *time.Time
	Remark  string
}

// PaymentInput contains input for recording a payment
type PaymentInput struct {
	Amount    decimal.Decimal
	Method    string
	Reference string
	PaidAt    *time.Time
}

// ItemDTO is a bill line
type ItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ChargeCode  string          `json:"charge_code"`
	Description string          `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// PaymentDTO is a recorded payment
type PaymentDTO struct {
	ID         uuid.UUID       `json:"id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method"`
	Reference  string          `json:"reference,omitempty"`
	PaidAt     time.Time       `json:"paid_at"`
	RecordedBy uuid.UUID       `json:"recorded_by"`
}

// BillDTO is the bill representation returned to callers
type BillDTO struct {
	ID           uuid.UUID       `json:"id"`
	BillNumber   string          `json:"bill_number"`
	OrderID      uuid.UUID       `json:"order_id"`
	OrderNumber  string          `json:"order_number"`
	CompanyID    uuid.UUID       `json:"company_id"`
	Currency     string          `json:"currency"`
	Items        []ItemDTO       `json:"items"`
	Amount       decimal.Decimal `json:"amount"`
	PaidAmount   decimal.Decimal `json:"paid_amount"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	DueDate      *time.Time      `json:"due_date,omitempty"`
	Status       string          `json:"status"`
	IssuedAt     *time.Time      `json:"issued_at,omitempty"`
	PaidAt       *time.Time      `json:"paid_at,omitempty"`
	OverdueAt    *time.Time      `json:"overdue_at,omitempty"`
	CancelledAt  *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason string          `json:"cancel_reason,omitempty"`
	Remark       string          `json:"remark,omitempty"`
	Payments     []PaymentDTO    `json:"payments"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Version      int             `json:"version"`
}

// ToBillDTO converts a bill aggregate to its DTO
func ToBillDTO(b *billing.Bill) BillDTO {
	items := make([]ItemDTO, len(b.Items))
	for i, it := range b.Items {
		items[i] = ItemDTO{
			ID:          it.ID,
			ChargeCode:  string(it.ChargeCode),
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Amount:      it.Amount,
		}
	}
	payments := make([]PaymentDTO, len(b.Payments))
	for i, p := range b.Payments {
		payments[i] = PaymentDTO{
			ID:         p.ID,
			Amount:     p.Amount,
			Method:     string(p.Method),
			Reference:  p.Reference,
			PaidAt:     p.PaidAt,
			RecordedBy: p.RecordedBy,
		}
	}
	return BillDTO{
		ID:           b.ID,
		BillNumber:   b.BillNumber,
		OrderID:      b.OrderID,
		OrderNumber:  b.OrderNumber,
		CompanyID:    b.CompanyID,
		Currency:     b.Currency,
		Items:        items,
		Amount:       b.Amount,
		PaidAmount:   b.PaidAmount,
		Outstanding:  b.Outstanding(),
		DueDate:      b.DueDate,
		Status:       string(b.Status),
		IssuedAt:     b.IssuedAt,
		PaidAt:       b.PaidAt,
		OverdueAt:    b.OverdueAt,
		CancelledAt:  b.CancelledAt,
		CancelReason: b.CancelReason,
		Remark:       b.Remark,
		Payments:     payments,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
		Version:      b.Version,
	}
}

// StatusChangeDTO is one bill status history entry
type StatusChangeDTO struct {
	From       string     `json:"from"`
	To         string     `json:"to"`
	Reason     string     `json:"reason,omitempty"`
	OperatorID *uuid.UUID `json:"operator_id,omitempty"`
	At         time.Time  `json:"at"`
}

func toStatusChangeDTOs(history []billing.StatusChange) []StatusChangeDTO {
	out := make([]StatusChangeDTO, len(history))
	for i, h := range history {
		out[i] = StatusChangeDTO{
			From:       string(h.FromStatus),
			To:         string(h.ToStatus),
			Reason:     h.Reason,
			OperatorID: h.OperatorID,
			At:         h.ChangedAt,
		}
	}
	return out
}
