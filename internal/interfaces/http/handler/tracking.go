package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/freightport/backend/internal/application/shipment"
	"github.com/freightport/backend/internal/infrastructure/tracking"
	"github.com/freightport/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateShipmentRequest registers a shipment
type CreateShipmentRequest struct {
	OrderID         *uuid.UUID `json:"order_id"`
	CompanyID       *uuid.UUID `json:"company_id"`
	TrackingType    string     `json:"tracking_type" binding:"required,oneof=CONTAINER BOOKING BILL_OF_LADING"`
	TrackingNumber  string     `json:"tracking_number" binding:"required,max=50"`
	Carrier         string     `json:"carrier" binding:"omitempty,max=10" example:"MAEU"`
	Vessel          string     `json:"vessel" binding:"omitempty,max=100"`
	Voyage          string     `json:"voyage" binding:"omitempty,max=50"`
	PortOfLoading   string     `json:"port_of_loading" binding:"omitempty,unlocode"`
	PortOfDischarge string     `json:"port_of_discharge" binding:"omitempty,unlocode"`
	ETD             *time.Time `json:"etd"`
	ETA             *time.Time `json:"eta"`
}

// SubscribeRequest subscribes a reference with the tracking provider
type SubscribeRequest struct {
	TrackingType   string     `json:"tracking_type" binding:"required,oneof=CONTAINER BOOKING BILL_OF_LADING"`
	TrackingNumber string     `json:"tracking_number" binding:"required,max=50"`
	Carrier        string     `json:"carrier" binding:"omitempty,max=10"`
	OrderID        *uuid.UUID `json:"order_id"`
	CompanyID      *uuid.UUID `json:"company_id"`
}

// TrackingHandler handles shipments, subscriptions and the provider webhook
type TrackingHandler struct {
	BaseHandler
	service *shipment.Service
}

// NewTrackingHandler creates a new tracking handler
func NewTrackingHandler(service *shipment.Service) *TrackingHandler {
	return &TrackingHandler{service: service}
}

// CreateShipment godoc
// @ID           createShipment
// @Summary      Register a shipment
// @Description  With an order the shipment inherits its company; the order must be confirmed or in processing
// @Tags         tracking
// @Accept       json
// @Produce      json
// @Param        request body CreateShipmentRequest true "Shipment"
// @Success      201 {object} APIResponse[shipment.ShipmentDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /tracking/shipments [post]
func (h *TrackingHandler) CreateShipment(c *gin.Context) {
	var req CreateShipmentRequest
	if !h.bind(c, &req) {
		return
	}
	dto, err := h.service.Create(c.Request.Context(), actor(c), shipment.CreateShipmentInput{
		OrderID:         req.OrderID,
		CompanyID:       req.CompanyID,
		TrackingType:    req.TrackingType,
		TrackingNumber:  req.TrackingNumber,
		Carrier:         req.Carrier,
		Vessel:          req.Vessel,
		Voyage:          req.Voyage,
		PortOfLoading:   strings.ToUpper(req.PortOfLoading),
		PortOfDischarge: strings.ToUpper(req.PortOfDischarge),
		ETD:             req.ETD,
		ETA:             req.ETA,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto)
}

// ListShipments godoc
// @ID           listShipments
// @Summary      List shipments
// @Tags         tracking
// @Produce      json
// @Param        page          query int    false "Page number" default(1)
// @Param        page_size     query int    false "Page size" default(20) maximum(100)
// @Param        search        query string false "Tracking number"
// @Param        status        query string false "CREATED, IN_TRANSIT, ARRIVED or DELIVERED"
// @Param        tracking_type query string false "CONTAINER, BOOKING or BILL_OF_LADING"
// @Param        subscribed    query bool   false "Only (un)subscribed shipments"
// @Param        order_id      query string false "Order ID" format(uuid)
// @Param        company_id    query string false "Company ID (staff)" format(uuid)
// @Success      200 {object} APIResponse[[]shipment.ShipmentDTO]
// @Security     BearerAuth
// @Router       /tracking/shipments [get]
func (h *TrackingHandler) ListShipments(c *gin.Context) {
	filter, ok := h.bindFilter(c, []string{"status", "tracking_type"}, []string{"subscribed"}, []string{"order_id", "company_id"})
	if !ok {
		return
	}
	page, err := h.service.List(c.Request.Context(), actor(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(&h.BaseHandler, c, page)
}

// GetShipment godoc
// @ID           getShipment
// @Summary      Get a shipment
// @Tags         tracking
// @Produce      json
// @Param        id path string true "Shipment ID" format(uuid)
// @Success      200 {object} APIResponse[shipment.ShipmentDTO]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /tracking/shipments/{id} [get]
func (h *TrackingHandler) GetShipment(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	dto, err := h.service.Get(c.Request.Context(), actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto)
}

// Events godoc
// @ID           listShipmentEvents
// @Summary      Tracking events of a shipment
// @Description  Events are ordered by occurrence time
// @Tags         tracking
// @Produce      json
// @Param        id path string true "Shipment ID" format(uuid)
// @Success      200 {object} APIResponse[[]shipment.TrackingEventDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /tracking/shipments/{id}/events [get]
func (h *TrackingHandler) Events(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	events, err := h.service.Events(c.Request.Context(), actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, events)
}

// Subscribe godoc
// @ID           subscribeShipment
// @Summary      Subscribe to tracking updates
// @Description  Finds or creates the shipment and subscribes it with the tracking provider
// @Tags         tracking
// @Accept       json
// @Produce      json
// @Param        request body SubscribeRequest true "Reference"
// @Success      201 {object} APIResponse[shipment.ShipmentDTO]
// @Failure      409 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /tracking/subscriptions [post]
func (h *TrackingHandler) Subscribe(c *gin.Context) {
	var req SubscribeRequest
	if !h.bind(c, &req) {
		return
	}
	dto, err := h.service.Subscribe(c.Request.Context(), actor(c), shipment.SubscribeInput{
		TrackingType:   req.TrackingType,
		TrackingNumber: req.TrackingNumber,
		Carrier:        req.Carrier,
		OrderID:        req.OrderID,
		CompanyID:      req.CompanyID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto)
}

// Unsubscribe godoc
// @ID           unsubscribeShipment
// @Summary      Stop tracking a shipment
// @Tags         tracking
// @Produce      json
// @Param        id path string true "Shipment ID" format(uuid)
// @Success      200 {object} APIResponse[shipment.ShipmentDTO]
// @Failure      422 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /tracking/subscriptions/{id} [delete]
func (h *TrackingHandler) Unsubscribe(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	dto, err := h.service.Unsubscribe(c.Request.Context(), actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto)
}

// Webhook godoc
// @ID           trackingWebhook
// @Summary      Tracking provider webhook
// @Description  Signed with X-Tracking-Signature = hex(HMAC-SHA256(secret, body)). Deliveries are deduplicated by X-Event-ID.
// @Tags         tracking
// @Accept       json
// @Produce      json
// @Param        X-Tracking-Signature header string true  "Body signature"
// @Param        X-Event-ID           header string false "Delivery ID"
// @Success      200 {object} APIResponse[shipment.IngestResult]
// @Failure      401 {object} ErrorResponse
// @Router       /tracking/webhook [post]
func (h *TrackingHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodePayloadTooLarge, "Request body too large")
			return
		}
		h.BadRequest(c, "Unable to read request body")
		return
	}

	result, err := h.service.IngestEvents(c.Request.Context(), body,
		c.GetHeader(tracking.SignatureHeader), c.GetHeader(tracking.EventIDHeader))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
