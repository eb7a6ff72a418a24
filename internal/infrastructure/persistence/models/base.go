package models

import (
	"time"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel carries the identity and timestamps every table shares.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (m *BaseModel) Entity() shared.BaseEntity {
	return shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func (m *BaseModel) SetEntity(e shared.BaseEntity) {
	m.ID, m.CreatedAt, m.UpdatedAt = e.ID, e.CreatedAt, e.UpdatedAt
}

// AggregateModel adds the optimistic-lock version column.
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

func (m *AggregateModel) SetAggregate(a shared.BaseAggregateRoot) {
	m.SetEntity(a.BaseEntity)
	m.Version = a.Version
}

// LoadAggregate copies the columns into a and marks it as persisted, so the
// next save is an update guarded by Version.
func (m *AggregateModel) LoadAggregate(a *shared.BaseAggregateRoot) {
	a.BaseEntity = m.Entity()
	a.Version = m.Version
	a.MarkPersisted()
}

// CompanyAggregateModel is embedded by tables whose rows belong to one
// customer company: orders, shipments and bills.
type CompanyAggregateModel struct {
	AggregateModel
	CompanyID uuid.UUID  `gorm:"type:uuid;not null;index"`
	CreatedBy *uuid.UUID `gorm:"type:uuid"`
}

func (m *CompanyAggregateModel) SetOwned(c shared.CompanyAggregateRoot) {
	m.SetAggregate(c.BaseAggregateRoot)
	m.CompanyID, m.CreatedBy = c.CompanyID, c.CreatedBy
}

func (m *CompanyAggregateModel) LoadOwned(c *shared.CompanyAggregateRoot) {
	m.LoadAggregate(&c.BaseAggregateRoot)
	c.CompanyID, c.CreatedBy = m.CompanyID, m.CreatedBy
}

// All lists the schema's models with referenced tables first.
func All() []any {
	return []any{
		&CompanyModel{},
		&UserModel{},
		&OrderModel{},
		&OrderStatusChangeModel{},
		&ShipmentModel{},
		&TrackingEventModel{},
		&BillModel{},
		&BillItemModel{},
		&PaymentModel{},
		&BillStatusChangeModel{},
		&NotificationModel{},
	}
}
