package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/domain/shipment"
)

func TestParseWebhook(t *testing.T) {
	body := []byte(`{
	  "subscription_id": "sub-1",
	  "tracking_type": "container",
	  "tracking_number": " csqu3054383 ",
	  "carrier": "cosco",
	  "eta": "2026-11-02T08:00:00+08:00",
	  "events": [
	    {"code": "departed", "location": "CNSHA ", "vessel": "EVER GIVEN", "occurred_at": "2026-10-20T10:00:00Z"},
	    {"code": "", "occurred_at": "2026-10-21T10:00:00Z"},
	    {"code": "LOADED"}
	  ]
	}`)

	w, err := ParseWebhook(body)
	require.NoError(t, err)

	assert.Equal(t, "sub-1", w.SubscriptionID)
	assert.Equal(t, shipment.Reference{Type: shipment.TrackingContainer, Number: "CSQU3054383", Carrier: "COSCO"}, w.Reference)
	require.NotNil(t, w.ETA)
	assert.True(t, w.ETA.Equal(time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)))
	require.Len(t, w.Events, 1)
	assert.Equal(t, "DEPARTED", w.Events[0].Code)
	assert.Equal(t, "CNSHA", w.Events[0].Location)
	assert.Equal(t, "webhook", w.Events[0].Source)
}

func TestParseWebhook_Invalid(t *testing.T) {
	_, err := ParseWebhook([]byte(`not json`))
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = ParseWebhook([]byte(`{"events":[]}`))
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
