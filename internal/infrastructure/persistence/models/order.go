package models

import (
	"time"

	"github.com/freightport/backend/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the Order aggregate.
type OrderModel struct {
	CompanyAggregateModel
	OrderNumber      string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	ServiceType      order.ServiceType   `gorm:"type:varchar(10);not null"`
	OriginPort       string              `gorm:"type:varchar(5);not null"`
	DestinationPort  string              `gorm:"type:varchar(5);not null"`
	CargoDescription string              `gorm:"type:varchar(500);not null"`
	ContainerType    order.ContainerType `gorm:"type:varchar(10)"`
	ContainerQty     int                 `gorm:"not null;default:0"`
	GrossWeightKg    decimal.Decimal     `gorm:"type:decimal(18,3);not null;default:0"`
	VolumeCBM        decimal.Decimal     `gorm:"type:decimal(18,3);not null;default:0"`
	Incoterm         string              `gorm:"type:varchar(3)"`
	CargoReadyDate   *time.Time
	Remark           string          `gorm:"type:varchar(1000)"`
	QuotedAmount     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Currency         string          `gorm:"type:varchar(3)"`
	CreditReserved   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Status           order.Status    `gorm:"type:varchar(20);not null;index"`
	RejectReason     string          `gorm:"type:varchar(500)"`
	CancelReason     string          `gorm:"type:varchar(500)"`
	ConfirmedAt      *time.Time
	StartedAt        *time.Time
	CompletedAt      *time.Time
	CancelledAt      *time.Time
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order without history.
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		OrderNumber: m.OrderNumber,
		Cargo: order.Cargo{
			ServiceType:      m.ServiceType,
			OriginPort:       m.OriginPort,
			DestinationPort:  m.DestinationPort,
			CargoDescription: m.CargoDescription,
			ContainerType:    m.ContainerType,
			ContainerQty:     m.ContainerQty,
			GrossWeightKg:    m.GrossWeightKg,
			VolumeCBM:        m.VolumeCBM,
			Incoterm:         m.Incoterm,
			CargoReadyDate:   m.CargoReadyDate,
			Remark:           m.Remark,
		},
		QuotedAmount:   m.QuotedAmount,
		Currency:       m.Currency,
		CreditReserved: m.CreditReserved,
		Status:         m.Status,
		RejectReason:   m.RejectReason,
		CancelReason:   m.CancelReason,
		ConfirmedAt:    m.ConfirmedAt,
		StartedAt:      m.StartedAt,
		CompletedAt:    m.CompletedAt,
		CancelledAt:    m.CancelledAt,
	}
	m.LoadOwned(&o.CompanyAggregateRoot)
	return o
}

// FromDomain populates the persistence model from a domain Order.
func (m *OrderModel) FromDomain(o *order.Order) {
	m.SetOwned(o.CompanyAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.ServiceType = o.ServiceType
	m.OriginPort = o.OriginPort
	m.DestinationPort = o.DestinationPort
	m.CargoDescription = o.CargoDescription
	m.ContainerType = o.ContainerType
	m.ContainerQty = o.ContainerQty
	m.GrossWeightKg = o.GrossWeightKg
	m.VolumeCBM = o.VolumeCBM
	m.Incoterm = o.Incoterm
	m.CargoReadyDate = o.CargoReadyDate
	m.Remark = o.Remark
	m.QuotedAmount = o.QuotedAmount
	m.Currency = o.Currency
	m.CreditReserved = o.CreditReserved
	m.Status = o.Status
	m.RejectReason = o.RejectReason
	m.CancelReason = o.CancelReason
	m.ConfirmedAt = o.ConfirmedAt
	m.StartedAt = o.StartedAt
	m.CompletedAt = o.CompletedAt
	m.CancelledAt = o.CancelledAt
}

// OrderModelFromDomain creates a new persistence model from a domain Order.
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderStatusChangeModel is one append-only row of order status history.
type OrderStatusChangeModel struct {
	ID         uuid.UUID    `gorm:"type:uuid;primary_key"`
	OrderID    uuid.UUID    `gorm:"type:uuid;not null;index"`
	FromStatus order.Status `gorm:"type:varchar(20)"`
	ToStatus   order.Status `gorm:"type:varchar(20);not null"`
	Reason     string       `gorm:"type:varchar(500)"`
	OperatorID *uuid.UUID   `gorm:"type:uuid"`
	ChangedAt  time.Time    `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (OrderStatusChangeModel) TableName() string {
	return "order_status_history"
}

// ToDomain converts the row to a domain StatusChange
func (m *OrderStatusChangeModel) ToDomain() order.StatusChange {
	return order.StatusChange{
		ID:         m.ID,
		OrderID:    m.OrderID,
		FromStatus: m.FromStatus,
		ToStatus:   m.ToStatus,
		Reason:     m.Reason,
		OperatorID: m.OperatorID,
		ChangedAt:  m.ChangedAt,
	}
}

// OrderStatusChangeModelFromDomain creates a row from a domain StatusChange
func OrderStatusChangeModelFromDomain(c order.StatusChange) *OrderStatusChangeModel {
	return &OrderStatusChangeModel{
		ID:         c.ID,
		OrderID:    c.OrderID,
		FromStatus: c.FromStatus,
		ToStatus:   c.ToStatus,
		Reason:     c.Reason,
		OperatorID: c.OperatorID,
		ChangedAt:  c.ChangedAt,
	}
}
