package shipment

import (
	"sort"
	"strings"
	"time"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// TrackingType is the kind of reference a shipment is tracked by
type TrackingType string

const (
	TrackingContainer    TrackingType = "CONTAINER"
	TrackingBooking      TrackingType = "BOOKING"
	TrackingBillOfLading TrackingType = "BILL_OF_LADING"
)

// IsValid checks if the tracking type is known
func (t TrackingType) IsValid() bool {
	switch t {
	case TrackingContainer, TrackingBooking, TrackingBillOfLading:
		return true
	}
	return false
}

// Reference identifies what is tracked with the provider
type Reference struct {
	Type    TrackingType
	Number  string
	Carrier string
}

// Normalize upper-cases the reference
func (r Reference) Normalize() Reference {
	r.Number = strings.ToUpper(strings.TrimSpace(r.Number))
	r.Carrier = strings.ToUpper(strings.TrimSpace(r.Carrier))
	return r
}

// Validate checks the reference, including the container check digit
func (r Reference) Validate() error {
	if !r.Type.IsValid() {
		return shared.NewDomainError("INVALID_TRACKING_TYPE", "Unknown tracking type")
	}
	if r.Number == "" || len(r.Number) > 40 {
		return shared.NewDomainError("INVALID_TRACKING_NUMBER", "Tracking number must be 1-40 characters")
	}
	if r.Type == TrackingContainer && !IsValidContainerNumber(r.Number) {
		return shared.NewDomainError("INVALID_CONTAINER_NUMBER", "Container number fails ISO 6346 check")
	}
	if len(r.Carrier) > 10 {
		return shared.NewDomainError("INVALID_CARRIER", "Carrier code cannot exceed 10 characters")
	}
	return nil
}

// TrackingEvent is one milestone reported for a shipment
type TrackingEvent struct {
	ID          uuid.UUID
	ShipmentID  uuid.UUID
	Code        string
	Description string
	Location    string
	Vessel      string
	Voyage      string
	OccurredAt  time.Time
	Source      string
	CreatedAt   time.Time
}

func (e TrackingEvent) key() string {
	return e.Code + "|" + e.OccurredAt.UTC().Format(time.RFC3339) + "|" + e.Location
}

// Shipment is a tracked container or booking, optionally linked to an order
type Shipment struct {
	shared.CompanyAggregateRoot
	OrderID *uuid.UUID
	Reference
	Vessel          string
	Voyage          string
	PortOfLoading   string
	PortOfDischarge string
	ETD             *time.Time
	ETA             *time.Time
	ATD             *time.Time
	ATA             *time.Time
	Status          Status
	Subscribed      bool
	SubscriptionID  string
	SubscribedAt    *time.Time
	UnsubscribedAt  *time.Time
	LastEventAt     *time.Time
	Events          []TrackingEvent
}

// NewShipment creates a shipment in CREATED status
func NewShipment(companyID, createdBy uuid.UUID, orderID *uuid.UUID, ref Reference) (*Shipment, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COMPANY", "Company is required")
	}
	ref = ref.Normalize()
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	return &Shipment{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID, &createdBy),
		OrderID:              orderID,
		Reference:            ref,
		Status:               StatusCreated,
		Events:               make([]TrackingEvent, 0),
	}, nil
}

// SetRoute records vessel and port details
func (s *Shipment) SetRoute(vessel, voyage, pol, pod string, etd, eta *time.Time) {
	s.Vessel = strings.TrimSpace(vessel)
	s.Voyage = strings.TrimSpace(voyage)
	s.PortOfLoading = strings.ToUpper(strings.TrimSpace(pol))
	s.PortOfDischarge = strings.ToUpper(strings.TrimSpace(pod))
	s.ETD = etd
	s.ETA = eta
	s.IncrementVersion()
}

// Subscribe records an active provider subscription
func (s *Shipment) Subscribe(subscriptionID string) error {
	if s.Subscribed {
		return shared.NewDomainError("ALREADY_SUBSCRIBED", "Shipment is already subscribed for tracking")
	}
	if strings.TrimSpace(subscriptionID) == "" {
		return shared.NewDomainError("INVALID_SUBSCRIPTION", "Subscription id is required")
	}
	now := time.Now()
	s.Subscribed = true
	s.SubscriptionID = subscriptionID
	s.SubscribedAt = &now
	s.UnsubscribedAt = nil
	s.IncrementVersion()
	return nil
}

// EnsureSubscribable fails when the shipment is already subscribed
func (s *Shipment) EnsureSubscribable() error {
	if s.Subscribed {
		return shared.NewDomainError("ALREADY_SUBSCRIBED", "Shipment is already subscribed for tracking")
	}
	return nil
}

// Unsubscribe ends the provider subscription
func (s *Shipment) Unsubscribe() error {
	if !s.Subscribed {
		return shared.NewDomainError("NOT_SUBSCRIBED", "Shipment is not subscribed for tracking")
	}
	now := time.Now()
	s.Subscribed = false
	s.SubscriptionID = ""
	s.UnsubscribedAt = &now
	s.IncrementVersion()
	return nil
}

// ApplyEvents merges provider events into the shipment. Duplicates (same
// code, time and location) are ignored, status only moves forward, and the
// newly added events are returned.
func (s *Shipment) ApplyEvents(incoming []TrackingEvent, eta *time.Time) []TrackingEvent {
	seen := make(map[string]bool, len(s.Events))
	for _, e := range s.Events {
		seen[e.key()] = true
	}

	sorted := make([]TrackingEvent, len(incoming))
	copy(sorted, incoming)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OccurredAt.Before(sorted[j].OccurredAt)
	})

	previous := s.Status
	added := make([]TrackingEvent, 0, len(sorted))
	for _, e := range sorted {
		e.Code = strings.ToUpper(strings.TrimSpace(e.Code))
		if e.Code == "" || e.OccurredAt.IsZero() || seen[e.key()] {
			continue
		}
		seen[e.key()] = true
		e.ID = uuid.New()
		e.ShipmentID = s.ID
		e.CreatedAt = time.Now()
		s.Events = append(s.Events, e)
		added = append(added, e)

		occurred := e.OccurredAt
		if s.LastEventAt == nil || occurred.After(*s.LastEventAt) {
			s.LastEventAt = &occurred
		}
		switch e.Code {
		case CodeDeparted:
			if s.ATD == nil {
				s.ATD = &occurred
			}
		case CodeArrived:
			s.ATA = &occurred
		}
		if e.Vessel != "" {
			s.Vessel = e.Vessel
		}
		if e.Voyage != "" {
			s.Voyage = e.Voyage
		}
		if next, ok := StatusForCode(e.Code); ok && next.IsAfter(s.Status) {
			s.Status = next
		}
	}

	if eta != nil {
		s.ETA = eta
	}
	if len(added) == 0 && eta == nil {
		return added
	}
	s.IncrementVersion()
	if s.Status != previous {
		last := added[len(added)-1]
		s.RecordEvent(NewMilestoneEvent(s, previous, last))
	}
	return added
}
