package handler

import (
	"context"
	"strings"
	"time"

	"github.com/freightport/backend/internal/application/order"
	"github.com/freightport/backend/internal/application/shipment"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CargoRequest carries the booking fields of an order
type CargoRequest struct {
	ServiceType      string          `json:"service_type" binding:"required,oneof=SEA_FCL SEA_LCL AIR RAIL TRUCK"`
	OriginPort       string          `json:"origin_port" binding:"required,unlocode"`
	DestinationPort  string          `json:"destination_port" binding:"required,unlocode"`
	CargoDescription string          `json:"cargo_description" binding:"required,max=500"`
	ContainerType    string          `json:"container_type" binding:"omitempty,oneof=20GP 40GP 40HQ 45HQ 20RF 40RF NONE"`
	ContainerQty     int             `json:"container_qty" binding:"omitempty,min=0,max=999"`
	GrossWeightKg    decimal.Decimal `json:"gross_weight_kg" swaggertype:"string" example:"18000"`
	VolumeCBM        decimal.Decimal `json:"volume_cbm" swaggertype:"string" example:"66.5"`
	Incoterm         string          `json:"incoterm" binding:"omitempty,len=3"`
	CargoReadyDate   string          `json:"cargo_ready_date" binding:"omitempty,datetime=2006-01-02" example:"2026-11-02"`
	Remark           string          `json:"remark" binding:"omitempty,max=1000"`
}

func (r CargoRequest) toInput() order.CargoInput {
	in := order.CargoInput{
		ServiceType:      r.ServiceType,
		OriginPort:       strings.ToUpper(strings.TrimSpace(r.OriginPort)),
		DestinationPort:  strings.ToUpper(strings.TrimSpace(r.DestinationPort)),
		CargoDescription: strings.TrimSpace(r.CargoDescription),
		ContainerType:    r.ContainerType,
		ContainerQty:     r.ContainerQty,
		GrossWeightKg:    r.GrossWeightKg,
		VolumeCBM:        r.VolumeCBM,
		Incoterm:         strings.ToUpper(r.Incoterm),
		Remark:           r.Remark,
	}
	if r.CargoReadyDate != "" {
		if t, err := time.Parse(time.DateOnly, r.CargoReadyDate); err == nil {
			in.CargoReadyDate = &t
		}
	}
	return in
}

// CreateOrderRequest books an order. company_id is honoured for staff only.
type CreateOrderRequest struct {
	CargoRequest
	CompanyID *uuid.UUID `json:"company_id"`
}

// ConfirmOrderRequest carries the quote
type ConfirmOrderRequest struct {
	QuotedAmount *decimal.Decimal `json:"quoted_amount" binding:"required" swaggertype:"string" example:"12800.00"`
	Currency     string           `json:"currency" binding:"omitempty,len=3" example:"CNY"`
}

// CancelRequest carries an optional cancellation reason
type CancelRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

var orderListKeys = []string{"status", "service_type"}

// OrderHandler handles freight order booking and its lifecycle
type OrderHandler struct {
	BaseHandler
	service   *order.Service
	shipments *shipment.Service
}

// NewOrderHandler creates a new order handler. shipments serves the
// per-order shipment listing.
func NewOrderHandler(service *order.Service, shipments *shipment.Service) *OrderHandler {
	return &OrderHandler{service: service, shipments: shipments}
}

// Create godoc
// @ID           createOrder
// @Summary      Book an order
// @Description  The booking company must be approved. Staff pass company_id to book on behalf of a customer.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        request body CreateOrderRequest true "Booking"
// @Success      201 {object} APIResponse[order.OrderDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	var req CreateOrderRequest
	if !h.bind(c, &req) {
		return
	}
	dto, err := h.service.Create(c.Request.Context(), actor(c), order.CreateOrderInput{
		CompanyID: req.CompanyID,
		Cargo:     req.toInput(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto)
}

// Update godoc
// @ID           updateOrder
// @Summary      Edit a pending order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id      path string       true "Order ID" format(uuid)
// @Param        request body CargoRequest true "Booking fields"
// @Success      200 {object} APIResponse[order.OrderDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id} [put]
func (h *OrderHandler) Update(c *gin.Context) {
	var req CargoRequest
	h.act(c, &req, func(ctx context.Context, a shared.Actor, id uuid.UUID) (*order.OrderDTO, error) {
		return h.service.Update(ctx, a, id, req.toInput())
	})
}

// Get godoc
// @ID           getOrder
// @Summary      Get an order
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[order.OrderDTO]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	h.act(c, nil, h.service.Get)
}

// History godoc
// @ID           getOrderHistory
// @Summary      Order status history
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[[]order.StatusChangeDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/history [get]
func (h *OrderHandler) History(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	history, err := h.service.History(c.Request.Context(), actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, history)
}

// Shipments godoc
// @ID           listOrderShipments
// @Summary      Shipments of an order
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[[]shipment.ShipmentDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/shipments [get]
func (h *OrderHandler) Shipments(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	list, err := h.shipments.ListByOrder(c.Request.Context(), actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, list)
}

// List godoc
// @ID           listOrders
// @Summary      List orders
// @Description  Customers only see their own company's orders
// @Tags         orders
// @Produce      json
// @Param        page         query int    false "Page number" default(1)
// @Param        page_size    query int    false "Page size" default(20) maximum(100)
// @Param        order_by     query string false "Sort field" default(created_at)
// @Param        order_dir    query string false "asc or desc" default(desc)
// @Param        search       query string false "Order number, ports or cargo"
// @Param        status       query string false "Order status"
// @Param        service_type query string false "Service type"
// @Param        company_id   query string false "Company ID (staff)" format(uuid)
// @Param        from         query string false "Created on or after (YYYY-MM-DD)"
// @Param        to           query string false "Created on or before (YYYY-MM-DD)"
// @Success      200 {object} APIResponse[[]order.OrderDTO]
// @Security     BearerAuth
// @Router       /orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	filter, ok := h.bindFilter(c, orderListKeys, nil, []string{"company_id"})
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

// Export godoc
// @ID           exportOrders
// @Summary      Export orders to Excel
// @Description  Accepts the same filters as the list endpoint
// @Tags         orders
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success      200 {file} file
// @Security     BearerAuth
// @Router       /orders/export [get]
func (h *OrderHandler) Export(c *gin.Context) {
	filter, ok := h.bindFilter(c, orderListKeys, nil, []string{"company_id"})
	if !ok {
		return
	}
	data, err := h.service.Export(c.Request.Context(), actor(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Attachment(c, contentTypeXLSX, exportFilename("orders", time.Now()), data)
}

// Confirm godoc
// @ID           confirmOrder
// @Summary      Confirm with a quote
// @Description  Reserves the quoted amount on the company's credit line
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id      path string              true "Order ID" format(uuid)
// @Param        request body ConfirmOrderRequest true "Quote"
// @Success      200 {object} APIResponse[order.OrderDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/confirm [post]
func (h *OrderHandler) Confirm(c *gin.Context) {
	var req ConfirmOrderRequest
	h.act(c, &req, func(ctx context.Context, a shared.Actor, id uuid.UUID) (*order.OrderDTO, error) {
		return h.service.Confirm(ctx, a, id, *req.QuotedAmount, strings.ToUpper(req.Currency))
	})
}

// Reject godoc
// @ID           rejectOrder
// @Summary      Reject a pending order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id      path string        true "Order ID" format(uuid)
// @Param        request body ReasonRequest true "Reason"
// @Success      200 {object} APIResponse[order.OrderDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/reject [post]
func (h *OrderHandler) Reject(c *gin.Context) {
	var req ReasonRequest
	h.act(c, &req, func(ctx context.Context, a shared.Actor, id uuid.UUID) (*order.OrderDTO, error) {
		return h.service.Reject(ctx, a, id, req.Reason)
	})
}

// Start godoc
// @ID           startOrder
// @Summary      Start processing a confirmed order
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[order.OrderDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/start [post]
func (h *OrderHandler) Start(c *gin.Context) {
	h.act(c, nil, h.service.StartProcessing)
}

// Complete godoc
// @ID           completeOrder
// @Summary      Complete an order in processing
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[order.OrderDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/complete [post]
func (h *OrderHandler) Complete(c *gin.Context) {
	h.act(c, nil, h.service.Complete)
}

// Cancel godoc
// @ID           cancelOrder
// @Summary      Cancel an order
// @Description  Customers may cancel pending orders, staff also confirmed ones. Reserved credit is released.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id      path string        true  "Order ID" format(uuid)
// @Param        request body CancelRequest false "Reason"
// @Success      200 {object} APIResponse[order.OrderDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(c *gin.Context) {
	var req CancelRequest
	if c.Request.ContentLength == 0 {
		h.act(c, nil, func(ctx context.Context, a shared.Actor, id uuid.UUID) (*order.OrderDTO, error) {
			return h.service.Cancel(ctx, a, id, "")
		})
		return
	}
	h.act(c, &req, func(ctx context.Context, a shared.Actor, id uuid.UUID) (*order.OrderDTO, error) {
		return h.service.Cancel(ctx, a, id, req.Reason)
	})
}

// act parses the id and optional body, then runs one order operation
func (h *OrderHandler) act(c *gin.Context, req any, fn func(context.Context, shared.Actor, uuid.UUID) (*order.OrderDTO, error)) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	if req != nil && !h.bind(c, req) {
		return
	}
	dto, err := fn(c.Request.Context(), actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto)
}
