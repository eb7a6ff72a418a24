package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Envelope is the wire form of a domain event on the integration topic
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	Type          string          `json:"type"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	CompanyID     *uuid.UUID      `json:"company_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope wraps event, encoding the full event as the payload
func NewEnvelope(event shared.DomainEvent) (Envelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s event: %w", event.EventType(), err)
	}
	env := Envelope{
		ID:            event.EventID(),
		Type:          event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		OccurredAt:    event.OccurredAt().UTC(),
		Payload:       payload,
	}
	if companyID := event.CompanyID(); companyID != uuid.Nil {
		env.CompanyID = &companyID
	}
	return env, nil
}

// DecodePayload unmarshals the payload into target
func (e Envelope) DecodePayload(target any) error {
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}
