// Package billing models invoices raised against freight orders and the
// payments recorded on them.
package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChargeCode classifies a bill line
type ChargeCode string

const (
	ChargeOceanFreight ChargeCode = "OCEAN_FREIGHT"
	ChargeAirFreight   ChargeCode = "AIR_FREIGHT"
	ChargeTHC          ChargeCode = "THC"
	ChargeDocFee       ChargeCode = "DOC_FEE"
	ChargeCustoms      ChargeCode = "CUSTOMS"
	ChargeTrucking     ChargeCode = "TRUCKING"
	ChargeInsurance    ChargeCode = "INSURANCE"
	ChargeOther        ChargeCode = "OTHER"
)

// IsValid checks if the charge code is known
func (c ChargeCode) IsValid() bool {
	switch c {
	case ChargeOceanFreight, ChargeAirFreight, ChargeTHC, ChargeDocFee, ChargeCustoms,
		ChargeTrucking, ChargeInsurance, ChargeOther:
		return true
	}
	return false
}

// PaymentMethod is how a payment was received
type PaymentMethod string

const (
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodWechatPay    PaymentMethod = "WECHAT_PAY"
	MethodAlipay       PaymentMethod = "ALIPAY"
	MethodCash         PaymentMethod = "CASH"
	MethodOther        PaymentMethod = "OTHER"
)

// IsValid checks if the method is known
func (m PaymentMethod) IsValid() bool {
	switch m {
	case MethodBankTransfer, MethodWechatPay, MethodAlipay, MethodCash, MethodOther:
		return true
	}
	return false
}

// Item is one charge line on a bill
type Item struct {
	ID          uuid.UUID
	BillID      uuid.UUID
	ChargeCode  ChargeCode
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
}

// Payment is a receipt recorded against a bill
type Payment struct {
	ID         uuid.UUID
	BillID     uuid.UUID
	Amount     decimal.Decimal
	Method     PaymentMethod
	Reference  string
	PaidAt     time.Time
	RecordedBy uuid.UUID
	CreatedAt  time.Time
}

// StatusChange is one entry of a bill's status history. OperatorID is nil
// for changes made by the overdue sweep.
type StatusChange struct {
	ID         uuid.UUID
	BillID     uuid.UUID
	FromStatus Status
	ToStatus   Status
	Reason     string
	OperatorID *uuid.UUID
	ChangedAt  time.Time
}

// ItemInput describes a charge line to add
type ItemInput struct {
	ChargeCode  ChargeCode
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// Bill is an invoice generated against an order
type Bill struct {
	shared.CompanyAggregateRoot
	BillNumber   string
	OrderID      uuid.UUID
	OrderNumber  string
	Currency     string
	Items        []Item
	Amount       decimal.Decimal
	PaidAmount   decimal.Decimal
	DueDate      *time.Time
	Status       Status
	IssuedAt     *time.Time
	PaidAt       *time.Time
	OverdueAt    *time.Time
	CancelledAt  *time.Time
	CancelReason string
	Remark       string
	Payments     []Payment
	// History holds changes made since the bill was loaded
	History []StatusChange
}

// NewBill creates a draft bill for an order
func NewBill(companyID, createdBy, orderID uuid.UUID, orderNumber, billNumber, currency string, items []ItemInput, dueDate *time.Time, remark string) (*Bill, error) {
	if companyID == uuid.Nil || orderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Bill must reference an order")
	}
	if strings.TrimSpace(billNumber) == "" {
		return nil, shared.NewDomainError("INVALID_BILL_NUMBER", "Bill number cannot be empty")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Currency must be a 3 letter ISO code")
	}

	b := &Bill{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID, &createdBy),
		BillNumber:           billNumber,
		OrderID:              orderID,
		OrderNumber:          orderNumber,
		Currency:             currency,
		Amount:               decimal.Zero,
		PaidAmount:           decimal.Zero,
		DueDate:              dueDate,
		Status:               StatusDraft,
		Remark:               strings.TrimSpace(remark),
	}
	if err := b.setItems(items); err != nil {
		return nil, err
	}
	b.recordChange("", StatusDraft, "", &createdBy)
	return b, nil
}

// UpdateDraft replaces items and due date of a draft bill
func (b *Bill) UpdateDraft(items []ItemInput, dueDate *time.Time, remark string) error {
	if b.Status != StatusDraft {
		return shared.NewDomainErrorf("INVALID_STATE", "Cannot edit bill in %s status", b.Status)
	}
	if err := b.setItems(items); err != nil {
		return err
	}
	b.DueDate = dueDate
	b.Remark = strings.TrimSpace(remark)
	b.IncrementVersion()
	return nil
}

func (b *Bill) setItems(inputs []ItemInput) error {
	items := make([]Item, 0, len(inputs))
	total := decimal.Zero
	for i, in := range inputs {
		if !in.ChargeCode.IsValid() {
			return shared.NewDomainErrorf("INVALID_CHARGE", "Item %d: unknown charge code %q", i+1, in.ChargeCode)
		}
		if !in.Quantity.IsPositive() {
			return shared.NewDomainErrorf("INVALID_QUANTITY", "Item %d: quantity must be positive", i+1)
		}
		if in.UnitPrice.IsNegative() {
			return shared.NewDomainErrorf("INVALID_PRICE", "Item %d: unit price cannot be negative", i+1)
		}
		amount := in.Quantity.Mul(in.UnitPrice).Round(2)
		items = append(items, Item{
			ID:          uuid.New(),
			BillID:      b.ID,
			ChargeCode:  in.ChargeCode,
			Description: strings.TrimSpace(in.Description),
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			Amount:      amount,
		})
		total = total.Add(amount)
	}
	b.Items = items
	b.Amount = total
	return nil
}

// Issue sends the bill to the customer
func (b *Bill) Issue(operator uuid.UUID, now time.Time) error {
	if !b.Status.CanTransitionTo(StatusIssued) {
		return shared.NewDomainErrorf("INVALID_STATE", "Cannot issue bill in %s status", b.Status)
	}
	if !b.Amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Cannot issue a bill with zero amount")
	}
	if b.DueDate == nil {
		return shared.NewDomainError("INVALID_DUE_DATE", "Due date is required to issue a bill")
	}
	if truncateDay(*b.DueDate).Before(truncateDay(now)) {
		return shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot be in the past")
	}
	b.IssuedAt = &now
	b.transition(StatusIssued, EventTypeBillIssued, "", &operator)
	return nil
}

// Outstanding returns the amount still owed
func (b *Bill) Outstanding() decimal.Decimal {
	return b.Amount.Sub(b.PaidAmount)
}

// RecordPayment applies a payment. paidAmount never exceeds amount; a
// payment that would overshoot is rejected without changing the bill.
func (b *Bill) RecordPayment(recordedBy uuid.UUID, amount decimal.Decimal, method PaymentMethod, reference string, paidAt time.Time) (*Payment, error) {
	if !b.Status.AcceptsPayment() {
		return nil, shared.NewDomainErrorf("INVALID_STATE", "Cannot record payment on bill in %s status", b.Status)
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Unknown payment method")
	}
	if b.PaidAmount.Add(amount).GreaterThan(b.Amount) {
		return nil, shared.NewDomainError("EXCEEDS_OUTSTANDING",
			fmt.Sprintf("Payment amount %s exceeds outstanding amount %s", amount.StringFixed(2), b.Outstanding().StringFixed(2)))
	}
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	payment := Payment{
		ID:         uuid.New(),
		BillID:     b.ID,
		Amount:     amount,
		Method:     method,
		Reference:  strings.TrimSpace(reference),
		PaidAt:     paidAt,
		RecordedBy: recordedBy,
		CreatedAt:  time.Now(),
	}
	b.Payments = append(b.Payments, payment)
	b.PaidAmount = b.PaidAmount.Add(amount)
	b.RecordEvent(NewPaymentRecordedEvent(b, payment))

	switch {
	case b.PaidAmount.Equal(b.Amount):
		now := time.Now()
		b.PaidAt = &now
		b.transition(StatusPaid, EventTypeBillPaid, "", &recordedBy)
	case b.Status == StatusIssued:
		b.transition(StatusPartialPaid, "", "", &recordedBy)
	default:
		b.IncrementVersion()
	}
	return &payment, nil
}

// IsPastDue reports whether the due date has passed at now
func (b *Bill) IsPastDue(now time.Time) bool {
	return b.DueDate != nil && truncateDay(now).After(truncateDay(*b.DueDate))
}

// MarkOverdue flags an outstanding bill whose due date has passed.
// Returns false when nothing changed.
func (b *Bill) MarkOverdue(now time.Time) (bool, error) {
	if b.Status == StatusOverdue {
		return false, nil
	}
	if !b.Status.CanTransitionTo(StatusOverdue) {
		return false, shared.NewDomainErrorf("INVALID_STATE", "Cannot mark bill overdue in %s status", b.Status)
	}
	if !b.IsPastDue(now) {
		return false, nil
	}
	b.OverdueAt = &now
	b.transition(StatusOverdue, EventTypeBillOverdue, "", nil)
	return true, nil
}

// Cancel voids a draft bill or an issued bill with no payments
func (b *Bill) Cancel(operator uuid.UUID, reason string) error {
	if !b.Status.CanTransitionTo(StatusCancelled) {
		return shared.NewDomainErrorf("INVALID_STATE", "Cannot cancel bill in %s status", b.Status)
	}
	if b.PaidAmount.IsPositive() {
		return shared.NewDomainError("INVALID_STATE", "Cannot cancel a bill with recorded payments")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}
	now := time.Now()
	b.CancelledAt = &now
	b.CancelReason = reason
	b.transition(StatusCancelled, EventTypeBillCancelled, reason, &operator)
	return nil
}

func (b *Bill) transition(to Status, eventType, reason string, operator *uuid.UUID) {
	from := b.Status
	b.Status = to
	b.IncrementVersion()
	b.recordChange(from, to, reason, operator)
	if eventType != "" {
		b.RecordEvent(NewBillStatusEvent(eventType, b))
	}
}

func (b *Bill) recordChange(from, to Status, reason string, operator *uuid.UUID) {
	b.History = append(b.History, StatusChange{
		ID:         uuid.New(),
		BillID:     b.ID,
		FromStatus: from,
		ToStatus:   to,
		Reason:     reason,
		OperatorID: operator,
		ChangedAt:  time.Now(),
	})
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
