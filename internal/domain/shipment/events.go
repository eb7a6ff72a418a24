package shipment

import (
	"time"

	"github.com/freightport/backend/internal/domain/shared"
)

// AggregateTypeShipment is the aggregate type for shipments
const AggregateTypeShipment = "Shipment"

// EventTypeMilestone is published when a shipment changes status
const EventTypeMilestone = "shipment.milestone"

// MilestoneEvent reports a status change driven by tracking data
type MilestoneEvent struct {
	shared.BaseDomainEvent
	TrackingNumber string    `json:"tracking_number"`
	FromStatus     Status    `json:"from_status"`
	ToStatus       Status    `json:"to_status"`
	Code           string    `json:"code"`
	Location       string    `json:"location"`
	OccurredAtTime time.Time `json:"occurred_at"`
}

// NewMilestoneEvent creates a MilestoneEvent
func NewMilestoneEvent(s *Shipment, from Status, trigger TrackingEvent) *MilestoneEvent {
	return &MilestoneEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMilestone, AggregateTypeShipment, s.ID, s.CompanyID),
		TrackingNumber:  s.Number,
		FromStatus:      from,
		ToStatus:        s.Status,
		Code:            trigger.Code,
		Location:        trigger.Location,
		OccurredAtTime:  trigger.OccurredAt,
	}
}
