package handler

import (
	"context"
	"strings"
	"time"

	"github.com/freightport/backend/internal/application/billing"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillItemRequest is one charge line
type BillItemRequest struct {
	ChargeCode  string          `json:"charge_code" binding:"required,oneof=OCEAN_FREIGHT AIR_FREIGHT THC DOC_FEE CUSTOMS TRUCKING INSURANCE OTHER"`
	Description string          `json:"description" binding:"omitempty,max=200"`
	Quantity    decimal.Decimal `json:"quantity" swaggertype:"string" example:"2"`
	UnitPrice   decimal.Decimal `json:"unit_price" swaggertype:"string" example:"1500.00"`
}

// CreateBillRequest raises a draft bill against an order
type CreateBillRequest struct {
	OrderID  uuid.UUID         `json:"order_id" binding:"required"`
	Currency string            `json:"currency" binding:"omitempty,len=3"`
	Items    []BillItemRequest `json:"items" binding:"required,min=1,max=50,dive"`
	DueDate  string            `json:"due_date" binding:"omitempty,datetime=2006-01-02" example:"2026-12-31"`
	Remark   string            `json:"remark" binding:"omitempty,max=500"`
}

// UpdateBillRequest replaces the lines of a draft bill
type UpdateBillRequest struct {
	Items   []BillItemRequest `json:"items" binding:"required,min=1,max=50,dive"`
	DueDate string            `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
	Remark  string            `json:"remark" binding:"omitempty,max=500"`
}

// PaymentRequest records a received payment
type PaymentRequest struct {
	Amount    *decimal.Decimal `json:"amount" binding:"required" swaggertype:"string" example:"3000.00"`
	Method    string           `json:"method" binding:"required,oneof=BANK_TRANSFER WECHAT_PAY ALIPAY CASH OTHER"`
	Reference string           `json:"reference" binding:"omitempty,max=100"`
	PaidAt    *time.Time       `json:"paid_at"`
}

func toItemInputs(items []BillItemRequest) []billing.ItemInput {
	out := make([]billing.ItemInput, len(items))
	for i, it := range items {
		out[i] = billing.ItemInput{
			ChargeCode:  it.ChargeCode,
			Description: strings.TrimSpace(it.Description),
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		}
	}
	return out
}

// dueDate parses an already validated YYYY-MM-DD value
func dueDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil
	}
	return &t
}

var billListKeys = []string{"status"}

// BillHandler handles bills, payments and invoice documents
type BillHandler struct {
	BaseHandler
	service *billing.Service
}

// NewBillHandler creates a new bill handler
func NewBillHandler(service *billing.Service) *BillHandler {
	return &BillHandler{service: service}
}

// Create godoc
// @ID           createBill
// @Summary      Raise a draft bill
// @Tags         bills
// @Accept       json
// @Produce      json
// @Param        request body CreateBillRequest true "Bill"
// @Success      201 {object} APIResponse[billing.BillDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bills [post]
func (h *BillHandler) Create(c *gin.Context) {
	var req CreateBillRequest
	if !h.bind(c, &req) {
		return
	}
	dto, err := h.service.Create(c.Request.Context(), actor(c), billing.CreateBillInput{
		OrderID:  req.OrderID,
		Currency: strings.ToUpper(req.Currency),
		Items:    toItemInputs(req.Items),
		DueDate:  dueDate(req.DueDate),
		Remark:   req.Remark,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto)
}

// List godoc
// @ID           listBills
// @Summary      List bills
// @Tags         bills
// @Produce      json
// @Param        page       query int    false "Page number" default(1)
// @Param        page_size  query int    false "Page size" default(20) maximum(100)
// @Param        search     query string false "Bill number"
// @Param        status     query string false "Bill status"
// @Param        overdue    query bool   false "Only overdue bills"
// @Param        order_id   query string false "Order ID" format(uuid)
// @Param        company_id query string false "Company ID (staff)" format(uuid)
// @Success      200 {object} APIResponse[[]billing.BillDTO]
// @Security     BearerAuth
// @Router       /bills [get]
func (h *BillHandler) List(c *gin.Context) {
	filter, ok := h.bindFilter(c, billListKeys, []string{"overdue"}, []string{"order_id", "company_id"})
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
// @ID           exportBills
// @Summary      Export bills to Excel
// @Tags         bills
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success      200 {file} file
// @Security     BearerAuth
// @Router       /bills/export [get]
func (h *BillHandler) Export(c *gin.Context) {
	filter, ok := h.bindFilter(c, billListKeys, []string{"overdue"}, []string{"order_id", "company_id"})
	if !ok {
		return
	}
	data, err := h.service.Export(c.Request.Context(), actor(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Attachment(c, contentTypeXLSX, exportFilename("bills", time.Now()), data)
}

// Get godoc
// @ID           getBill
// @Summary      Get a bill
// @Tags         bills
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Success      200 {object} APIResponse[billing.BillDTO]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bills/{id} [get]
func (h *BillHandler) Get(c *gin.Context) {
	h.act(c, nil, h.service.Get)
}

// History godoc
// @ID           getBillHistory
// @Summary      Bill status history
// @Tags         bills
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Success      200 {object} APIResponse[[]billing.StatusChangeDTO]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bills/{id}/history [get]
func (h *BillHandler) History(c *gin.Context) {
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

// Update godoc
// @ID           updateBill
// @Summary      Replace the lines of a draft bill
// @Tags         bills
// @Accept       json
// @Produce      json
// @Param        id      path string            true "Bill ID" format(uuid)
// @Param        request body UpdateBillRequest true "Lines"
// @Success      200 {object} APIResponse[billing.BillDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bills/{id} [put]
func (h *BillHandler) Update(c *gin.Context) {
	var req UpdateBillRequest
	h.act(c, &req, func(ctx context.Context, a shared.Actor, id uuid.UUID) (*billing.BillDTO, error) {
		return h.service.UpdateItems(ctx, a, id, billing.UpdateBillInput{
			Items:   toItemInputs(req.Items),
			DueDate: dueDate(req.DueDate),
			Remark:  req.Remark,
		})
	})
}

// Issue godoc
// @ID           issueBill
// @Summary      Issue a draft bill
// @Tags         bills
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Success      200 {object} APIResponse[billing.BillDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bills/{id}/issue [post]
func (h *BillHandler) Issue(c *gin.Context) {
	h.act(c, nil, h.service.Issue)
}

// RecordPayment godoc
// @ID           recordBillPayment
// @Summary      Record a payment
// @Description  A payment larger than the outstanding amount is rejected. A fully paid bill releases the order's reserved credit.
// @Tags         bills
// @Accept       json
// @Produce      json
// @Param        id      path string         true "Bill ID" format(uuid)
// @Param        request body PaymentRequest true "Payment"
// @Success      200 {object} APIResponse[billing.BillDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bills/{id}/payments [post]
func (h *BillHandler) RecordPayment(c *gin.Context) {
	var req PaymentRequest
	h.act(c, &req, func(ctx context.Context, a shared.Actor, id uuid.UUID) (*billing.BillDTO, error) {
		return h.service.RecordPayment(ctx, a, id, billing.PaymentInput{
			Amount:    *req.Amount,
			Method:    req.Method,
			Reference: req.Reference,
			PaidAt:    req.PaidAt,
		})
	})
}

// Cancel godoc
// @ID           cancelBill
// @Summary      Cancel a bill
// @Description  Allowed for drafts and for issued bills without payments
// @Tags         bills
// @Accept       json
// @Produce      json
// @Param        id      path string        true "Bill ID" format(uuid)
// @Param        request body ReasonRequest true "Reason"
// @Success      200 {object} APIResponse[billing.BillDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bills/{id}/cancel [post]
func (h *BillHandler) Cancel(c *gin.Context) {
	var req ReasonRequest
	h.act(c, &req, func(ctx context.Context, a shared.Actor, id uuid.UUID) (*billing.BillDTO, error) {
		return h.service.Cancel(ctx, a, id, req.Reason)
	})
}

// PDF godoc
// @ID           downloadBillPDF
// @Summary      Download the invoice PDF
// @Tags         bills
// @Produce      application/pdf
// @Param        id path string true "Bill ID" format(uuid)
// @Success      200 {file} file
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bills/{id}/pdf [get]
func (h *BillHandler) PDF(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	data, filename, err := h.service.PDF(c.Request.Context(), actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Attachment(c, contentTypePDF, filename, data)
}

func (h *BillHandler) act(c *gin.Context, req any, fn func(context.Context, shared.Actor, uuid.UUID) (*billing.BillDTO, error)) {
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
