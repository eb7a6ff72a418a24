package shipment

import (
	"time"

	"github.com/freightport/backend/internal/domain/shipment"
	"github.com/google/uuid"
)

// CreateShipmentInput contains input for registering a shipment. With an
// order the company is inherited; staff without an order name the company.
type CreateShipmentInput struct {
	OrderID         *uuid.UUID
	CompanyID       *uuid.UUID
	TrackingType    string
	TrackingNumber  string
	Carrier         string
	Vessel          string
	Voyage          string
	PortOfLoading   string
	PortOfDischarge string
	ETD             *time.Time
	ETA             *time.Time
}

func (in CreateShipmentInput) reference() shipment.Reference {
	return shipment.Reference{
		Type:    shipment.TrackingType(in.TrackingType),
		Number:  in.TrackingNumber,
		Carrier: in.Carrier,
	}.Normalize()
}

func (in CreateShipmentInput) hasRoute() bool {
	return in.Vessel != "" || in.Voyage != "" || in.PortOfLoading != "" ||
		in.PortOfDischarge != "" || in.ETD != nil || in.ETA != nil
}

// SubscribeInput contains input for subscribing a reference for tracking
type SubscribeInput struct {
	TrackingType   string
	TrackingNumber string
	Carrier        string
	OrderID        *uuid.UUID
	CompanyID      *uuid.UUID
}

// IngestResult summarizes one webhook delivery
type IngestResult struct {
	Duplicate   bool `json:"duplicate"`
	Shipments   int  `json:"shipments"`
	EventsAdded int  `json:"events_added"`
}

// ShipmentDTO is the shipment representation returned to callers
type ShipmentDTO struct {
	ID              uuid.UUID  `json:"id"`
	OrderID         *uuid.UUID `json:"order_id,omitempty"`
	CompanyID       uuid.UUID  `json:"company_id"`
	TrackingType    string     `json:"tracking_type"`
	TrackingNumber  string     `json:"tracking_number"`
	Carrier         string     `json:"carrier,omitempty"`
	Vessel          string     `json:"vessel,omitempty"`
	Voyage          string     `json:"voyage,omitempty"`
	PortOfLoading   string     `json:"port_of_loading,omitempty"`
	PortOfDischarge string     `json:"port_of_discharge,omitempty"`
	ETD             *time.Time `json:"etd,omitempty"`
	ETA             *time.Time `json:"eta,omitempty"`
	ATD             *time.Time `json:"atd,omitempty"`
	ATA             *time.Time `json:"ata,omitempty"`
	Status          string     `json:"status"`
	Subscribed      bool       `json:"subscribed"`
	SubscriptionID  string     `json:"subscription_id,omitempty"`
	SubscribedAt    *time.Time `json:"subscribed_at,omitempty"`
	UnsubscribedAt  *time.Time `json:"unsubscribed_at,omitempty"`
	LastEventAt     *time.Time `json:"last_event_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Version         int        `json:"version"`
}

// TrackingEventDTO is one tracking milestone
type TrackingEventDTO struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Vessel      string    `json:"vessel,omitempty"`
	Voyage      string    `json:"voyage,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
	Source      string    `json:"source,omitempty"`
}

// ToShipmentDTO converts a shipment aggregate to its DTO
func ToShipmentDTO(s *shipment.Shipment) ShipmentDTO {
	return ShipmentDTO{
		ID:              s.ID,
		OrderID:         s.OrderID,
		CompanyID:       s.CompanyID,
		TrackingType:    string(s.Type),
		TrackingNumber:  s.Number,
		Carrier:         s.Carrier,
		Vessel:          s.Vessel,
		Voyage:          s.Voyage,
		PortOfLoading:   s.PortOfLoading,
		PortOfDischarge: s.PortOfDischarge,
		ETD:             s.ETD,
		ETA:             s.ETA,
		ATD:             s.ATD,
		ATA:             s.ATA,
		Status:          string(s.Status),
		Subscribed:      s.Subscribed,
		SubscriptionID:  s.SubscriptionID,
		SubscribedAt:    s.SubscribedAt,
		UnsubscribedAt:  s.UnsubscribedAt,
		LastEventAt:     s.LastEventAt,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
		Version:         s.Version,
	}
}

// ToTrackingEventDTOs converts tracking events to DTOs
func ToTrackingEventDTOs(events []shipment.TrackingEvent) []TrackingEventDTO {
	out := make([]TrackingEventDTO, len(events))
	for i, e := range events {
		out[i] = TrackingEventDTO{
			ID:          e.ID,
			Code:        e.Code,
			Description: e.Description,
			Location:    e.Location,
			Vessel:      e.Vessel,
			Voyage:      e.Voyage,
			OccurredAt:  e.OccurredAt,
			Source:      e.Source,
		}
	}
	return out
}
