package order

import (
	"regexp"
	"strings"
	"time"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// StatusChange is one entry of an order's status history
type StatusChange struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	FromStatus Status
	ToStatus   Status
	Reason     string
	OperatorID *uuid.UUID
	ChangedAt  time.Time
}

// Order is a customer's booked freight movement request
type Order struct {
	shared.CompanyAggregateRoot
	OrderNumber string
	Cargo
	QuotedAmount   decimal.Decimal
	Currency       string
	CreditReserved decimal.Decimal
	Status         Status
	RejectReason   string
	CancelReason   string
	ConfirmedAt    *time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
	CancelledAt    *time.Time
	History        []StatusChange
}

// NewOrder creates a pending order for a company
func NewOrder(companyID, createdBy uuid.UUID, orderNumber string, cargo Cargo) (*Order, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COMPANY", "Company is required")
	}
	if strings.TrimSpace(orderNumber) == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	cargo = cargo.Normalize()
	if err := cargo.Validate(); err != nil {
		return nil, err
	}

	o := &Order{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID, &createdBy),
		OrderNumber:          orderNumber,
		Cargo:                cargo,
		QuotedAmount:         decimal.Zero,
		CreditReserved:       decimal.Zero,
		Status:               StatusPending,
	}
	o.recordChange("", StatusPending, "", &createdBy)
	o.RecordEvent(NewOrderStatusChangedEvent(o, "", ""))
	return o, nil
}

// Update replaces the booking details while the order is still pending
func (o *Order) Update(cargo Cargo) error {
	if o.Status != StatusPending {
		return shared.NewDomainErrorf("INVALID_STATE", "Cannot update order in %s status", o.Status)
	}
	cargo = cargo.Normalize()
	if err := cargo.Validate(); err != nil {
		return err
	}
	o.Cargo = cargo
	o.IncrementVersion()
	return nil
}

// Confirm accepts the booking at the quoted price. The caller reserves the
// same amount on the company's credit line.
func (o *Order) Confirm(operator uuid.UUID, quoted decimal.Decimal, currency string) error {
	if !o.Status.CanTransitionTo(StatusConfirmed) {
		return shared.NewDomainErrorf("INVALID_STATE", "Cannot confirm order in %s status", o.Status)
	}
	if !quoted.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Quoted amount must be positive")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if !currencyPattern.MatchString(currency) {
		return shared.NewDomainError("INVALID_CURRENCY", "Currency must be a 3 letter ISO code")
	}

	now := time.Now()
	o.QuotedAmount = quoted
	o.Currency = currency
	o.CreditReserved = quoted
	o.ConfirmedAt = &now
	o.transition(StatusConfirmed, "", &operator)
	return nil
}

// Reject declines a pending order
func (o *Order) Reject(operator uuid.UUID, reason string) error {
	if !o.Status.CanTransitionTo(StatusRejected) {
		return shared.NewDomainErrorf("INVALID_STATE", "Cannot reject order in %s status", o.Status)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Reject reason is required")
	}
	o.RejectReason = reason
	o.transition(StatusRejected, reason, &operator)
	return nil
}

// StartProcessing moves a confirmed order into execution
func (o *Order) StartProcessing(operator uuid.UUID) error {
	if !o.Status.CanTransitionTo(StatusProcessing) {
		return shared.NewDomainErrorf("INVALID_STATE", "Cannot start processing order in %s status", o.Status)
	}
	now := time.Now()
	o.StartedAt = &now
	o.transition(StatusProcessing, "", &operator)
	return nil
}

// Complete closes an order in processing
func (o *Order) Complete(operator uuid.UUID) error {
	if !o.Status.CanTransitionTo(StatusCompleted) {
		return shared.NewDomainErrorf("INVALID_STATE", "Cannot complete order in %s status", o.Status)
	}
	now := time.Now()
	o.CompletedAt = &now
	o.transition(StatusCompleted, "", &operator)
	return nil
}

// Cancel cancels the order and returns the credit amount that must be
// released back to the company. The reason is optional.
func (o *Order) Cancel(operator uuid.UUID, reason string) (decimal.Decimal, error) {
	if !o.Status.CanTransitionTo(StatusCancelled) {
		return decimal.Zero, shared.NewDomainErrorf("INVALID_STATE", "Cannot cancel order in %s status", o.Status)
	}
	reason = strings.TrimSpace(reason)
	now := time.Now()
	o.CancelReason = reason
	o.CancelledAt = &now
	released := o.ReleaseReservedCredit()
	o.transition(StatusCancelled, reason, &operator)
	return released, nil
}

// ReleaseReservedCredit zeroes the reservation and returns what was held
func (o *Order) ReleaseReservedCredit() decimal.Decimal {
	released := o.CreditReserved
	o.CreditReserved = decimal.Zero
	return released
}

// IsBillable reports whether bills may be raised against the order
func (o *Order) IsBillable() bool {
	return o.Status != StatusCancelled && o.Status != StatusRejected
}

// IsTrackable reports whether shipments may be attached to the order
func (o *Order) IsTrackable() bool {
	return o.Status == StatusConfirmed || o.Status == StatusProcessing
}

func (o *Order) transition(to Status, reason string, operator *uuid.UUID) {
	from := o.Status
	o.Status = to
	o.IncrementVersion()
	o.recordChange(from, to, reason, operator)
	o.RecordEvent(NewOrderStatusChangedEvent(o, from, reason))
}

func (o *Order) recordChange(from, to Status, reason string, operator *uuid.UUID) {
	o.History = append(o.History, StatusChange{
		ID:         uuid.New(),
		OrderID:    o.ID,
		FromStatus: from,
		ToStatus:   to,
		Reason:     reason,
		OperatorID: operator,
		ChangedAt:  time.Now(),
	})
}
