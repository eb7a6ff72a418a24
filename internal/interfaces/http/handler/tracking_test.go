package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	shipmentapp "github.com/freightport/backend/internal/application/shipment"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/infrastructure/tracking"
	"github.com/freightport/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trackingRoutes(svc *shipmentapp.Service, a shared.Actor) *gin.Engine {
	h := NewTrackingHandler(svc)
	r := routes(a, func(g *gin.RouterGroup) {
		g.POST("/tracking/shipments", h.CreateShipment)
		g.GET("/tracking/shipments", h.ListShipments)
		g.GET("/tracking/shipments/:id", h.GetShipment)
		g.GET("/tracking/shipments/:id/events", h.Events)
		g.POST("/tracking/subscriptions", h.Subscribe)
		g.DELETE("/tracking/subscriptions/:id", h.Unsubscribe)
	})
	// the webhook is public
	r.POST("/api/v1/tracking/webhook", h.Webhook)
	return r
}

func deliver(t *testing.T, r http.Handler, payload any, signature, eventID string) testResponse {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	if signature == "" {
		signature = tracking.Sign([]byte(testWebhookSecret), body)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tracking/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(tracking.SignatureHeader, signature)
	if eventID != "" {
		req.Header.Set(tracking.EventIDHeader, eventID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	resp := testResponse{Code: w.Code, Header: w.Header(), Body: w.Body.Bytes()}
	require.NoError(t, json.Unmarshal(resp.Body, &resp))
	return resp
}

// fakeProvider answers subscription calls the way the tracking provider does
func fakeProvider(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		switch r.Method {
		case http.MethodPost:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"sub_123","status":"active"}`))
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestTrackingHandler_SubscribeAndWebhook(t *testing.T) {
	env := newTestEnv(t)
	srv, calls := fakeProvider(t)
	svc := env.trackingAt(srv.URL)
	cust := env.customer(testLicense, 1000)
	r := trackingRoutes(svc, cust)

	resp := do(t, r, http.MethodPost, "/api/v1/tracking/subscriptions", SubscribeRequest{
		TrackingType: "CONTAINER", TrackingNumber: "msku1234565", Carrier: "maeu",
	})
	require.Equal(t, http.StatusCreated, resp.Code, string(resp.Body))
	var sh shipmentapp.ShipmentDTO
	resp.decode(t, &sh)
	assert.True(t, sh.Subscribed)
	assert.Equal(t, "sub_123", sh.SubscriptionID)
	assert.Equal(t, "MSKU1234565", sh.TrackingNumber)
	assert.EqualValues(t, 1, calls.Load())

	payload := map[string]any{
		"subscription_id": "sub_123",
		"tracking_type":   "CONTAINER",
		"tracking_number": "MSKU1234565",
		"eta":             "2026-11-20T08:00:00Z",
		"events": []map[string]any{
			{"code": "departed", "location": "CNSHA", "vessel": "MAERSK ESSEN", "occurred_at": "2026-11-03T10:00:00Z"},
			{"code": "LOADED", "location": "CNSHA", "occurred_at": "2026-11-02T22:00:00Z"},
			{"code": "", "occurred_at": "2026-11-02T20:00:00Z"},
		},
	}
	resp = deliver(t, r, payload, "", "evt-1")
	require.Equal(t, http.StatusOK, resp.Code, string(resp.Body))
	var result shipmentapp.IngestResult
	resp.decode(t, &result)
	assert.Equal(t, 1, result.Shipments)
	assert.Equal(t, 2, result.EventsAdded)

	// redelivery of the same event id is acknowledged only
	resp = deliver(t, r, payload, "", "evt-1")
	require.Equal(t, http.StatusOK, resp.Code)
	resp.decode(t, &result)
	assert.True(t, result.Duplicate)

	resp = do(t, r, http.MethodGet, "/api/v1/tracking/shipments/"+sh.ID.String(), nil)
	resp.decode(t, &sh)
	assert.Equal(t, "IN_TRANSIT", sh.Status)
	assert.Equal(t, "MAERSK ESSEN", sh.Vessel)
	require.NotNil(t, sh.ATD)
	require.NotNil(t, sh.ETA)

	resp = do(t, r, http.MethodGet, "/api/v1/tracking/shipments/"+sh.ID.String()+"/events", nil)
	var events []shipmentapp.TrackingEventDTO
	resp.decode(t, &events)
	require.Len(t, events, 2)
	assert.Equal(t, "LOADED", events[0].Code)
	assert.Equal(t, "DEPARTED", events[1].Code)

	resp = do(t, r, http.MethodDelete, "/api/v1/tracking/subscriptions/"+sh.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.Code, string(resp.Body))
	resp.decode(t, &sh)
	assert.False(t, sh.Subscribed)

	resp = do(t, r, http.MethodDelete, "/api/v1/tracking/subscriptions/"+sh.ID.String(), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestTrackingHandler_WebhookSignature(t *testing.T) {
	env := newTestEnv(t)
	r := trackingRoutes(env.tracking, env.admin)
	payload := map[string]any{"tracking_number": "MSKU1234565"}

	resp := deliver(t, r, payload, "deadbeef", "evt-2")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = deliver(t, r, payload, "not-hex", "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	// a valid delivery that matches nothing is still acknowledged
	resp = deliver(t, r, payload, "", "evt-3")
	require.Equal(t, http.StatusOK, resp.Code)
	var result shipmentapp.IngestResult
	resp.decode(t, &result)
	assert.Zero(t, result.Shipments)

	resp = deliver(t, r, map[string]any{"events": []any{}}, "", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestTrackingHandler_CreateShipment(t *testing.T) {
	env := newTestEnv(t)
	cust := env.customer(testLicense, 50000)
	r := trackingRoutes(env.tracking, cust)

	req := CreateShipmentRequest{
		TrackingType:    "BILL_OF_LADING",
		TrackingNumber:  "MAEU240001234",
		PortOfLoading:   "cnsha",
		PortOfDischarge: "uslax",
	}
	resp := do(t, r, http.MethodPost, "/api/v1/tracking/shipments", req)
	require.Equal(t, http.StatusCreated, resp.Code, string(resp.Body))
	var sh shipmentapp.ShipmentDTO
	resp.decode(t, &sh)
	assert.Equal(t, *cust.CompanyID, sh.CompanyID)
	assert.Equal(t, "CNSHA", sh.PortOfLoading)
	assert.Equal(t, "CREATED", sh.Status)

	dup := do(t, r, http.MethodPost, "/api/v1/tracking/shipments", req)
	assert.Equal(t, http.StatusConflict, dup.Code)

	// a pending order cannot be tracked yet
	o := createOrder(t, orderRoutes(env, cust))
	req.TrackingNumber = "MAEU240009999"
	req.OrderID = &o.ID
	resp = do(t, r, http.MethodPost, "/api/v1/tracking/shipments", req)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, dto.ErrCodeInvalidState, resp.errorCode())

	list := do(t, r, http.MethodGet, "/api/v1/tracking/shipments?subscribed=false", nil)
	require.Equal(t, http.StatusOK, list.Code)
	assert.EqualValues(t, 1, list.Meta.Total)

	other := trackingRoutes(env.tracking, env.customer(otherLicense, 1000))
	resp = do(t, other, http.MethodGet, "/api/v1/tracking/shipments/"+sh.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestTrackingHandler_SubscribeProviderFailure(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"carrier_down","message":"MAEU unavailable"}`))
	}))
	defer srv.Close()

	r := trackingRoutes(env.trackingAt(srv.URL), env.customer(testLicense, 1000))
	resp := do(t, r, http.MethodPost, "/api/v1/tracking/subscriptions", SubscribeRequest{
		TrackingType: "CONTAINER", TrackingNumber: "MSKU7654328",
	})
	assert.Equal(t, http.StatusBadGateway, resp.Code)
	assert.Equal(t, dto.ErrCodeUpstream, resp.errorCode())
}
