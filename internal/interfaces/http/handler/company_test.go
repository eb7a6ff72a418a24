package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/freightport/backend/internal/application/company"
	"github.com/freightport/backend/internal/domain/identity"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func companyRoutes(env *testEnv, a shared.Actor) *gin.Engine {
	h := NewCompanyHandler(env.company)
	return routes(a, func(g *gin.RouterGroup) {
		g.POST("/companies", h.Submit)
		g.PUT("/companies/mine", h.Resubmit)
		g.GET("/companies/mine", h.GetMine)
		g.GET("/companies", h.List)
		g.GET("/companies/:id", h.Get)
		g.POST("/companies/:id/approve", h.Approve)
		g.POST("/companies/:id/reject", h.Reject)
		g.POST("/companies/:id/suspend", h.Suspend)
		g.POST("/companies/:id/reinstate", h.Reinstate)
		g.PUT("/companies/:id/credit-limit", h.AdjustCreditLimit)
	})
}

// newcomer stores a customer that has not onboarded yet
func (e *testEnv) newcomer(name string) shared.Actor {
	e.t.Helper()
	u, err := identity.NewCustomer(name, name+"@example.com", "Secret123")
	require.NoError(e.t, err)
	require.NoError(e.t, e.users.Create(context.Background(), u))
	return shared.Actor{UserID: u.ID, Username: u.Username, Role: shared.RoleCustomer}
}

func profile(license string) CompanyProfileRequest {
	return CompanyProfileRequest{
		Name:         "Shenzhen Bright Lamps Co., Ltd.",
		LicenseNo:    license,
		ContactName:  "Zhang Min",
		ContactPhone: "+86 755 8888 0000",
		ContactEmail: "ops@brightlamps.example",
	}
}

func TestCompanyHandler_Onboarding(t *testing.T) {
	env := newTestEnv(t)
	applicant := env.newcomer("brightlamps")
	customer := companyRoutes(env, applicant)
	admin := companyRoutes(env, env.admin)

	resp := do(t, customer, http.MethodPost, "/api/v1/companies", profile(testLicense))
	require.Equal(t, http.StatusCreated, resp.Code, string(resp.Body))
	var c company.CompanyDTO
	resp.decode(t, &c)
	assert.Equal(t, "PENDING_REVIEW", c.Status)
	assert.True(t, c.CreditLimit.IsZero())

	// the stale token still has no company, the user record does
	resp = do(t, customer, http.MethodPost, "/api/v1/companies", profile(otherLicense))
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, dto.ErrCodeAlreadyOnboarded, resp.errorCode())

	list := do(t, admin, http.MethodGet, "/api/v1/companies?status=pending_review", nil)
	require.Equal(t, http.StatusOK, list.Code)
	assert.EqualValues(t, 1, list.Meta.Total)
	assert.Equal(t, http.StatusForbidden, do(t, customer, http.MethodGet, "/api/v1/companies", nil).Code)

	base := "/api/v1/companies/" + c.ID.String()
	assert.Equal(t, http.StatusBadRequest, do(t, admin, http.MethodPost, base+"/reject", nil).Code)

	resp = do(t, admin, http.MethodPost, base+"/reject", ReasonRequest{Reason: "License scan is unreadable"})
	require.Equal(t, http.StatusOK, resp.Code, string(resp.Body))
	resp.decode(t, &c)
	assert.Equal(t, "REJECTED", c.Status)
	assert.Equal(t, "License scan is unreadable", c.RejectReason)

	applicant.CompanyID = &c.ID
	customer = companyRoutes(env, applicant)
	updated := profile(testLicense)
	updated.LicenseFileKey = "uploads/license/rescan.png"
	resp = do(t, customer, http.MethodPut, "/api/v1/companies/mine", updated)
	require.Equal(t, http.StatusOK, resp.Code, string(resp.Body))
	resp.decode(t, &c)
	assert.Equal(t, "PENDING_REVIEW", c.Status)

	resp = do(t, customer, http.MethodPost, base+"/approve", CreditLimitRequest{CreditLimit: dec("80000")})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = do(t, admin, http.MethodPost, base+"/approve", CreditLimitRequest{CreditLimit: dec("80000")})
	require.Equal(t, http.StatusOK, resp.Code, string(resp.Body))
	resp.decode(t, &c)
	assert.Equal(t, "APPROVED", c.Status)
	assert.True(t, c.AvailableCredit.Equal(decimal.NewFromInt(80000)))
	require.NotNil(t, c.ReviewedBy)
	assert.Equal(t, env.admin.UserID, *c.ReviewedBy)

	mine := do(t, customer, http.MethodGet, "/api/v1/companies/mine", nil)
	require.Equal(t, http.StatusOK, mine.Code)
}

func TestCompanyHandler_CreditAndSuspension(t *testing.T) {
	env := newTestEnv(t)
	cust := env.customer(testLicense, 20000)
	confirmedOrder(t, env, cust, "15000")
	admin := companyRoutes(env, env.admin)
	base := "/api/v1/companies/" + cust.CompanyID.String()

	resp := do(t, admin, http.MethodPut, base+"/credit-limit", CreditLimitRequest{CreditLimit: dec("10000")})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "ERR_INVALID_CREDIT_LIMIT", resp.errorCode())

	resp = do(t, admin, http.MethodPut, base+"/credit-limit", CreditLimitRequest{CreditLimit: dec("30000")})
	require.Equal(t, http.StatusOK, resp.Code)
	var c company.CompanyDTO
	resp.decode(t, &c)
	assert.True(t, c.AvailableCredit.Equal(decimal.NewFromInt(15000)), c.AvailableCredit.String())

	resp = do(t, admin, http.MethodPost, base+"/suspend", ReasonRequest{Reason: "Overdue payments"})
	require.Equal(t, http.StatusOK, resp.Code)
	resp.decode(t, &c)
	assert.Equal(t, "SUSPENDED", c.Status)

	// suspended companies cannot book
	resp = do(t, orderRoutes(env, cust), http.MethodPost, "/api/v1/orders", CreateOrderRequest{CargoRequest: booking()})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = do(t, admin, http.MethodPost, base+"/reinstate", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	resp.decode(t, &c)
	assert.Equal(t, "APPROVED", c.Status)
}

func TestCompanyHandler_Validation(t *testing.T) {
	env := newTestEnv(t)
	customer := companyRoutes(env, env.newcomer("sloppy"))

	short := profile("9131000")
	resp := do(t, customer, http.MethodPost, "/api/v1/companies", short)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, dto.ErrCodeValidation, resp.errorCode())

	resp = do(t, customer, http.MethodPost, "/api/v1/companies", profile("IIIIIIIIIIIIIIIIII"))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "ERR_INVALID_LICENSE_NO", resp.errorCode())

	resp = do(t, customer, http.MethodGet, "/api/v1/companies/mine", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
