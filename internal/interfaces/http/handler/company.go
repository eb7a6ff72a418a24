package handler

import (
	"context"
	"strings"

	"github.com/freightport/backend/internal/application/company"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CompanyProfileRequest carries the onboarding form
type CompanyProfileRequest struct {
	Name           string `json:"name" binding:"required,max=200"`
	LicenseNo      string `json:"license_no" binding:"required,len=18"`
	ContactName    string `json:"contact_name" binding:"required,max=100"`
	ContactPhone   string `json:"contact_phone" binding:"required,max=50"`
	ContactEmail   string `json:"contact_email" binding:"omitempty,email,max=200"`
	Address        string `json:"address" binding:"omitempty,max=500"`
	LicenseFileKey string `json:"license_file_key" binding:"omitempty,max=500"`
}

func (r CompanyProfileRequest) toInput() company.ProfileInput {
	return company.ProfileInput{
		Name:           strings.TrimSpace(r.Name),
		LicenseNo:      strings.ToUpper(strings.TrimSpace(r.LicenseNo)),
		ContactName:    strings.TrimSpace(r.ContactName),
		ContactPhone:   strings.TrimSpace(r.ContactPhone),
		ContactEmail:   strings.TrimSpace(r.ContactEmail),
		Address:        strings.TrimSpace(r.Address),
		LicenseFileKey: r.LicenseFileKey,
	}
}

// CreditLimitRequest carries a credit limit as a decimal string
type CreditLimitRequest struct {
	CreditLimit *decimal.Decimal `json:"credit_limit" binding:"required" swaggertype:"string" example:"500000.00"`
}

// ReasonRequest carries the reason of a rejection, suspension or cancellation
type ReasonRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// CompanyHandler handles onboarding and credit administration
type CompanyHandler struct {
	BaseHandler
	service *company.Service
}

// NewCompanyHandler creates a new company handler
func NewCompanyHandler(service *company.Service) *CompanyHandler {
	return &CompanyHandler{service: service}
}

// Submit godoc
// @ID           submitCompany
// @Summary      Submit company for review
// @Description  Creates the caller's company in PENDING_REVIEW. The auto-approval rule may approve it immediately. Refresh the token afterwards to pick up the company.
// @Tags         companies
// @Accept       json
// @Produce      json
// @Param        request body CompanyProfileRequest true "Company profile"
// @Success      201 {object} APIResponse[company.CompanyDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /companies [post]
func (h *CompanyHandler) Submit(c *gin.Context) {
	var req CompanyProfileRequest
	if !h.bind(c, &req) {
		return
	}
	dto, err := h.service.Submit(c.Request.Context(), actor(c), req.toInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto)
}

// Resubmit godoc
// @ID           resubmitCompany
// @Summary      Resubmit a rejected company
// @Tags         companies
// @Accept       json
// @Produce      json
// @Param        request body CompanyProfileRequest true "Corrected profile"
// @Success      200 {object} APIResponse[company.CompanyDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /companies/mine [put]
func (h *CompanyHandler) Resubmit(c *gin.Context) {
	var req CompanyProfileRequest
	if !h.bind(c, &req) {
		return
	}
	dto, err := h.service.Resubmit(c.Request.Context(), actor(c), req.toInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto)
}

// GetMine godoc
// @ID           getMyCompany
// @Summary      The caller's company
// @Tags         companies
// @Produce      json
// @Success      200 {object} APIResponse[company.CompanyDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /companies/mine [get]
func (h *CompanyHandler) GetMine(c *gin.Context) {
	dto, err := h.service.GetMine(c.Request.Context(), actor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto)
}

// Get godoc
// @ID           getCompany
// @Summary      Get a company
// @Tags         companies
// @Produce      json
// @Param        id path string true "Company ID" format(uuid)
// @Success      200 {object} APIResponse[company.CompanyDTO]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /companies/{id} [get]
func (h *CompanyHandler) Get(c *gin.Context) {
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

// List godoc
// @ID           listCompanies
// @Summary      List companies
// @Tags         companies
// @Produce      json
// @Param        page      query int    false "Page number" default(1)
// @Param        page_size query int    false "Page size" default(20) maximum(100)
// @Param        search    query string false "Name, license number or contact"
// @Param        status    query string false "PENDING_REVIEW, APPROVED, REJECTED or SUSPENDED"
// @Success      200 {object} APIResponse[[]company.CompanyDTO]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /companies [get]
func (h *CompanyHandler) List(c *gin.Context) {
	filter, ok := h.bindFilter(c, []string{"status"}, nil, nil)
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

// Approve godoc
// @ID           approveCompany
// @Summary      Approve a company
// @Tags         companies
// @Accept       json
// @Produce      json
// @Param        id      path string             true "Company ID" format(uuid)
// @Param        request body CreditLimitRequest true "Initial credit limit"
// @Success      200 {object} APIResponse[company.CompanyDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /companies/{id}/approve [post]
func (h *CompanyHandler) Approve(c *gin.Context) {
	var req CreditLimitRequest
	h.review(c, &req, func(ctx context.Context, a shared.Actor, id uuid.UUID) (*company.CompanyDTO, error) {
		return h.service.Approve(ctx, a, id, *req.CreditLimit)
	})
}

// Reject godoc
// @ID           rejectCompany
// @Summary      Reject a company
// @Tags         companies
// @Accept       json
// @Produce      json
// @Param        id      path string        true "Company ID" format(uuid)
// @Param        request body ReasonRequest true "Rejection reason"
// @Success      200 {object} APIResponse[company.CompanyDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /companies/{id}/reject [post]
func (h *CompanyHandler) Reject(c *gin.Context) {
	var req ReasonRequest
	h.review(c, &req, func(ctx context.Context, a shared.Actor, id uuid.UUID) (*company.CompanyDTO, error) {
		return h.service.Reject(ctx, a, id, req.Reason)
	})
}

// Suspend godoc
// @ID           suspendCompany
// @Summary      Suspend an approved company
// @Tags         companies
// @Accept       json
// @Produce      json
// @Param        id      path string        true "Company ID" format(uuid)
// @Param        request body ReasonRequest true "Suspension reason"
// @Success      200 {object} APIResponse[company.CompanyDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /companies/{id}/suspend [post]
func (h *CompanyHandler) Suspend(c *gin.Context) {
	var req ReasonRequest
	h.review(c, &req, func(ctx context.Context, a shared.Actor, id uuid.UUID) (*company.CompanyDTO, error) {
		return h.service.Suspend(ctx, a, id, req.Reason)
	})
}

// Reinstate godoc
// @ID           reinstateCompany
// @Summary      Reinstate a suspended company
// @Tags         companies
// @Produce      json
// @Param        id path string true "Company ID" format(uuid)
// @Success      200 {object} APIResponse[company.CompanyDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /companies/{id}/reinstate [post]
func (h *CompanyHandler) Reinstate(c *gin.Context) {
	h.review(c, nil, h.service.Reinstate)
}

// AdjustCreditLimit godoc
// @ID           adjustCompanyCreditLimit
// @Summary      Change the credit limit
// @Description  The new limit may not be below the credit already in use
// @Tags         companies
// @Accept       json
// @Produce      json
// @Param        id      path string             true "Company ID" format(uuid)
// @Param        request body CreditLimitRequest true "New credit limit"
// @Success      200 {object} APIResponse[company.CompanyDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /companies/{id}/credit-limit [put]
func (h *CompanyHandler) AdjustCreditLimit(c *gin.Context) {
	var req CreditLimitRequest
	h.review(c, &req, func(ctx context.Context, a shared.Actor, id uuid.UUID) (*company.CompanyDTO, error) {
		return h.service.AdjustCreditLimit(ctx, a, id, *req.CreditLimit)
	})
}

// review parses the id and optional body, then runs a staff action
func (h *CompanyHandler) review(c *gin.Context, req any, fn func(context.Context, shared.Actor, uuid.UUID) (*company.CompanyDTO, error)) {
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
