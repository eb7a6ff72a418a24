package tracking

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/domain/shipment"
)

// Webhook is a decoded provider delivery
type Webhook struct {
	SubscriptionID string
	Reference      shipment.Reference
	ETA            *time.Time
	Events         []shipment.TrackingEvent
}

type webhookPayload struct {
	SubscriptionID string         `json:"subscription_id"`
	Type           string         `json:"tracking_type"`
	Number         string         `json:"tracking_number"`
	Carrier        string         `json:"carrier"`
	ETA            *time.Time     `json:"eta"`
	Events         []webhookEvent `json:"events"`
}

type webhookEvent struct {
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Vessel      string    `json:"vessel"`
	Voyage      string    `json:"voyage"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// ParseWebhook decodes a delivery body. Events without a code or time are dropped.
func (c *Client) ParseWebhook(body []byte) (*Webhook, error) {
	return ParseWebhook(body)
}

// ParseWebhook decodes a delivery body
func ParseWebhook(body []byte) (*Webhook, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: malformed tracking payload: %v", shared.ErrInvalidInput, err)
	}
	if p.SubscriptionID == "" && p.Number == "" {
		return nil, fmt.Errorf("%w: tracking payload names no subscription or number", shared.ErrInvalidInput)
	}

	w := &Webhook{
		SubscriptionID: p.SubscriptionID,
		Reference: shipment.Reference{
			Type:    shipment.TrackingType(strings.ToUpper(p.Type)),
			Number:  p.Number,
			Carrier: p.Carrier,
		}.Normalize(),
	}
	if p.ETA != nil && !p.ETA.IsZero() {
		eta := p.ETA.UTC()
		w.ETA = &eta
	}
	for _, e := range p.Events {
		code := strings.ToUpper(strings.TrimSpace(e.Code))
		if code == "" || e.OccurredAt.IsZero() {
			continue
		}
		w.Events = append(w.Events, shipment.TrackingEvent{
			Code:        code,
			Description: e.Description,
			Location:    strings.TrimSpace(e.Location),
			Vessel:      e.Vessel,
			Voyage:      e.Voyage,
			OccurredAt:  e.OccurredAt.UTC(),
			Source:      "webhook",
		})
	}
	return w, nil
}
