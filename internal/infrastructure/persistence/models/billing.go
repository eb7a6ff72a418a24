package models

import (
	"time"

	"github.com/freightport/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillModel is the persistence model for the Bill aggregate.
type BillModel struct {
	CompanyAggregateModel
	BillNumber   string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	OrderID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderNumber  string          `gorm:"type:varchar(50);not null"`
	Currency     string          `gorm:"type:varchar(3);not null"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	PaidAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	DueDate      *time.Time      `gorm:"index"`
	Status       billing.Status  `gorm:"type:varchar(20);not null;index"`
	IssuedAt     *time.Time
	PaidAt       *time.Time
	OverdueAt    *time.Time
	CancelledAt  *time.Time
	CancelReason string          `gorm:"type:varchar(500)"`
	Remark       string          `gorm:"type:varchar(1000)"`
	Items        []BillItemModel `gorm:"foreignKey:BillID;references:ID"`
	Payments     []PaymentModel  `gorm:"foreignKey:BillID;references:ID"`
}

// TableName returns the table name for GORM
func (BillModel) TableName() string {
	return "bills"
}

// ToDomain converts the persistence model to a domain Bill, including any
// preloaded items and payments.
func (m *BillModel) ToDomain() *billing.Bill {
	b := &billing.Bill{
		BillNumber:   m.BillNumber,
		OrderID:      m.OrderID,
		OrderNumber:  m.OrderNumber,
		Currency:     m.Currency,
		Amount:       m.Amount,
		PaidAmount:   m.PaidAmount,
		DueDate:      m.DueDate,
		Status:       m.Status,
		IssuedAt:     m.IssuedAt,
		PaidAt:       m.PaidAt,
		OverdueAt:    m.OverdueAt,
		CancelledAt:  m.CancelledAt,
		CancelReason: m.CancelReason,
		Remark:       m.Remark,
		Items:        make([]billing.Item, 0, len(m.Items)),
		Payments:     make([]billing.Payment, 0, len(m.Payments)),
	}
	m.LoadOwned(&b.CompanyAggregateRoot)
	for i := range m.Items {
		b.Items = append(b.Items, m.Items[i].ToDomain())
	}
	for i := range m.Payments {
		b.Payments = append(b.Payments, m.Payments[i].ToDomain())
	}
	return b
}

// FromDomain populates the bill columns. Items and payments are written by
// the repository.
func (m *BillModel) FromDomain(b *billing.Bill) {
	m.SetOwned(b.CompanyAggregateRoot)
	m.BillNumber = b.BillNumber
	m.OrderID = b.OrderID
	m.OrderNumber = b.OrderNumber
	m.Currency = b.Currency
	m.Amount = b.Amount
	m.PaidAmount = b.PaidAmount
	m.DueDate = b.DueDate
	m.Status = b.Status
	m.IssuedAt = b.IssuedAt
	m.PaidAt = b.PaidAt
	m.OverdueAt = b.OverdueAt
	m.CancelledAt = b.CancelledAt
	m.CancelReason = b.CancelReason
	m.Remark = b.Remark
}

// BillModelFromDomain creates a new persistence model from a domain Bill.
func BillModelFromDomain(b *billing.Bill) *BillModel {
	m := &BillModel{}
	m.FromDomain(b)
	return m
}

// BillItemModel is one charge line of a bill.
type BillItemModel struct {
	ID          uuid.UUID          `gorm:"type:uuid;primary_key"`
	BillID      uuid.UUID          `gorm:"type:uuid;not null;index"`
	ChargeCode  billing.ChargeCode `gorm:"type:varchar(20);not null"`
	Description string             `gorm:"type:varchar(200)"`
	Quantity    decimal.Decimal    `gorm:"type:decimal(18,3);not null"`
	UnitPrice   decimal.Decimal    `gorm:"type:decimal(18,2);not null"`
	Amount      decimal.Decimal    `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (BillItemModel) TableName() string {
	return "bill_items"
}

// ToDomain converts the row to a domain Item
func (m *BillItemModel) ToDomain() billing.Item {
	return billing.Item{
		ID:          m.ID,
		BillID:      m.BillID,
		ChargeCode:  m.ChargeCode,
		Description: m.Description,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		Amount:      m.Amount,
	}
}

// BillItemModelFromDomain creates a row from a domain Item
func BillItemModelFromDomain(i billing.Item) *BillItemModel {
	return &BillItemModel{
		ID:          i.ID,
		BillID:      i.BillID,
		ChargeCode:  i.ChargeCode,
		Description: i.Description,
		Quantity:    i.Quantity,
		UnitPrice:   i.UnitPrice,
		Amount:      i.Amount,
	}
}

// PaymentModel is an append-only payment record.
type PaymentModel struct {
	ID         uuid.UUID             `gorm:"type:uuid;primary_key"`
	BillID     uuid.UUID             `gorm:"type:uuid;not null;index"`
	Amount     decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Method     billing.PaymentMethod `gorm:"type:varchar(20);not null"`
	Reference  string                `gorm:"type:varchar(100)"`
	PaidAt     time.Time             `gorm:"not null"`
	RecordedBy uuid.UUID             `gorm:"type:uuid;not null"`
	CreatedAt  time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "bill_payments"
}

// ToDomain converts the row to a domain Payment
func (m *PaymentModel) ToDomain() billing.Payment {
	return billing.Payment{
		ID:         m.ID,
		BillID:     m.BillID,
		Amount:     m.Amount,
		Method:     m.Method,
		Reference:  m.Reference,
		PaidAt:     m.PaidAt,
		RecordedBy: m.RecordedBy,
		CreatedAt:  m.CreatedAt,
	}
}

// PaymentModelFromDomain creates a row from a domain Payment
func PaymentModelFromDomain(p billing.Payment) *PaymentModel {
	return &PaymentModel{
		ID:         p.ID,
		BillID:     p.BillID,
		Amount:     p.Amount,
		Method:     p.Method,
		Reference:  p.Reference,
		PaidAt:     p.PaidAt,
		RecordedBy: p.RecordedBy,
		CreatedAt:  p.CreatedAt,
	}
}

// BillStatusChangeModel is one append-only row of bill status history.
type BillStatusChangeModel struct {
	ID         uuid.UUID      `gorm:"type:uuid;primary_key"`
	BillID     uuid.UUID      `gorm:"type:uuid;not null;index"`
	FromStatus billing.Status `gorm:"type:varchar(20)"`
	ToStatus   billing.Status `gorm:"type:varchar(20);not null"`
	Reason     string         `gorm:"type:varchar(500)"`
	OperatorID *uuid.UUID     `gorm:"type:uuid"`
	ChangedAt  time.Time      `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (BillStatusChangeModel) TableName() string {
	return "bill_status_history"
}

func (m *BillStatusChangeModel) ToDomain() billing.StatusChange {
	return billing.StatusChange{
		ID:         m.ID,
		BillID:     m.BillID,
		FromStatus: m.FromStatus,
		ToStatus:   m.ToStatus,
		Reason:     m.Reason,
		OperatorID: m.OperatorID,
		ChangedAt:  m.ChangedAt,
	}
}

func newBillStatusChangeModel(billID uuid.UUID, c billing.StatusChange) *BillStatusChangeModel {
	return &BillStatusChangeModel{
		ID:         c.ID,
		BillID:     billID,
		FromStatus: c.FromStatus,
		ToStatus:   c.ToStatus,
		Reason:     c.Reason,
		OperatorID: c.OperatorID,
		ChangedAt:  c.ChangedAt,
	}
}

// BillHistoryRows converts the unsaved history of b into rows
func BillHistoryRows(b *billing.Bill) []*BillStatusChangeModel {
	rows := make([]*BillStatusChangeModel, len(b.History))
	for i, change := range b.History {
		rows[i] = newBillStatusChangeModel(b.ID, change)
	}
	return rows
}
