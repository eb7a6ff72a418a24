package models

import (
	"time"

	"github.com/freightport/backend/internal/domain/shipment"
	"github.com/google/uuid"
)

// ShipmentModel is the persistence model for the Shipment aggregate.
type ShipmentModel struct {
	CompanyAggregateModel
	OrderID         *uuid.UUID            `gorm:"type:uuid;index"`
	TrackingType    shipment.TrackingType `gorm:"type:varchar(20);not null"`
	TrackingNumber  string                `gorm:"type:varchar(40);not null;index"`
	Carrier         string                `gorm:"type:varchar(10)"`
	Vessel          string                `gorm:"type:varchar(100)"`
	Voyage          string                `gorm:"type:varchar(50)"`
	PortOfLoading   string                `gorm:"type:varchar(5)"`
	PortOfDischarge string                `gorm:"type:varchar(5)"`
	ETD             *time.Time
	ETA             *time.Time
	ATD             *time.Time
	ATA             *time.Time
	Status          shipment.Status `gorm:"type:varchar(20);not null;index"`
	Subscribed      bool            `gorm:"not null;default:false"`
	SubscriptionID  string          `gorm:"type:varchar(100);index"`
	SubscribedAt    *time.Time
	UnsubscribedAt  *time.Time
	LastEventAt     *time.Time
	Events          []TrackingEventModel `gorm:"foreignKey:ShipmentID;references:ID"`
}

// TableName returns the table name for GORM
func (ShipmentModel) TableName() string {
	return "shipments"
}

// ToDomain converts the persistence model to a domain Shipment. Events are
// copied only when preloaded.
func (m *ShipmentModel) ToDomain() *shipment.Shipment {
	s := &shipment.Shipment{
		OrderID: m.OrderID,
		Reference: shipment.Reference{
			Type:    m.TrackingType,
			Number:  m.TrackingNumber,
			Carrier: m.Carrier,
		},
		Vessel:          m.Vessel,
		Voyage:          m.Voyage,
		PortOfLoading:   m.PortOfLoading,
		PortOfDischarge: m.PortOfDischarge,
		ETD:             m.ETD,
		ETA:             m.ETA,
		ATD:             m.ATD,
		ATA:             m.ATA,
		Status:          m.Status,
		Subscribed:      m.Subscribed,
		SubscriptionID:  m.SubscriptionID,
		SubscribedAt:    m.SubscribedAt,
		UnsubscribedAt:  m.UnsubscribedAt,
		LastEventAt:     m.LastEventAt,
		Events:          make([]shipment.TrackingEvent, 0, len(m.Events)),
	}
	m.LoadOwned(&s.CompanyAggregateRoot)
	for i := range m.Events {
		s.Events = append(s.Events, m.Events[i].ToDomain())
	}
	return s
}

// FromDomain populates the persistence model from a domain Shipment.
// Events are written separately by the repository.
func (m *ShipmentModel) FromDomain(s *shipment.Shipment) {
	m.SetOwned(s.CompanyAggregateRoot)
	m.OrderID = s.OrderID
	m.TrackingType = s.Type
	m.TrackingNumber = s.Number
	m.Carrier = s.Carrier
	m.Vessel = s.Vessel
	m.Voyage = s.Voyage
	m.PortOfLoading = s.PortOfLoading
	m.PortOfDischarge = s.PortOfDischarge
	m.ETD = s.ETD
	m.ETA = s.ETA
	m.ATD = s.ATD
	m.ATA = s.ATA
	m.Status = s.Status
	m.Subscribed = s.Subscribed
	m.SubscriptionID = s.SubscriptionID
	m.SubscribedAt = s.SubscribedAt
	m.UnsubscribedAt = s.UnsubscribedAt
	m.LastEventAt = s.LastEventAt
}

// ShipmentModelFromDomain creates a new persistence model from a domain Shipment.
func ShipmentModelFromDomain(s *shipment.Shipment) *ShipmentModel {
	m := &ShipmentModel{}
	m.FromDomain(s)
	return m
}

// TrackingEventModel is one stored provider milestone.
type TrackingEventModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	ShipmentID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Code        string    `gorm:"type:varchar(20);not null"`
	Description string    `gorm:"type:varchar(500)"`
	Location    string    `gorm:"type:varchar(100)"`
	Vessel      string    `gorm:"type:varchar(100)"`
	Voyage      string    `gorm:"type:varchar(50)"`
	OccurredAt  time.Time `gorm:"not null;index"`
	Source      string    `gorm:"type:varchar(20)"`
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TrackingEventModel) TableName() string {
	return "tracking_events"
}

// ToDomain converts the row to a domain TrackingEvent
func (m *TrackingEventModel) ToDomain() shipment.TrackingEvent {
	return shipment.TrackingEvent{
		ID:          m.ID,
		ShipmentID:  m.ShipmentID,
		Code:        m.Code,
		Description: m.Description,
		Location:    m.Location,
		Vessel:      m.Vessel,
		Voyage:      m.Voyage,
		OccurredAt:  m.OccurredAt,
		Source:      m.Source,
		CreatedAt:   m.CreatedAt,
	}
}

// TrackingEventModelFromDomain creates a row from a domain TrackingEvent
func TrackingEventModelFromDomain(e shipment.TrackingEvent) *TrackingEventModel {
	return &TrackingEventModel{
		ID:          e.ID,
		ShipmentID:  e.ShipmentID,
		Code:        e.Code,
		Description: e.Description,
		Location:    e.Location,
		Vessel:      e.Vessel,
		Voyage:      e.Voyage,
		OccurredAt:  e.OccurredAt,
		Source:      e.Source,
		CreatedAt:   e.CreatedAt,
	}
}
