package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/freightport/backend/internal/application/billing"
	"github.com/freightport/backend/internal/application/company"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func billRoutes(env *testEnv, a shared.Actor) *gin.Engine {
	h := NewBillHandler(env.bills)
	companies := NewCompanyHandler(env.company)
	return routes(a, func(g *gin.RouterGroup) {
		g.POST("/bills", h.Create)
		g.GET("/bills", h.List)
		g.GET("/bills/export", h.Export)
		g.GET("/bills/:id", h.Get)
		g.PUT("/bills/:id", h.Update)
		g.POST("/bills/:id/issue", h.Issue)
		g.POST("/bills/:id/payments", h.RecordPayment)
		g.POST("/bills/:id/cancel", h.Cancel)
		g.GET("/bills/:id/pdf", h.PDF)
		g.GET("/bills/:id/history", h.History)
		g.GET("/companies/mine", companies.GetMine)
	})
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// confirmedOrder books and confirms an order quoted at amount
func confirmedOrder(t *testing.T, env *testEnv, cust shared.Actor, amount string) uuid.UUID {
	t.Helper()
	o := createOrder(t, orderRoutes(env, cust))
	resp := do(t, orderRoutes(env, env.admin), http.MethodPost, "/api/v1/orders/"+o.ID.String()+"/confirm",
		ConfirmOrderRequest{QuotedAmount: dec(amount)})
	require.Equal(t, http.StatusOK, resp.Code, string(resp.Body))
	return o.ID
}

func freightItems() []BillItemRequest {
	return []BillItemRequest{
		{ChargeCode: "OCEAN_FREIGHT", Description: "CNSHA-USLAX 40HQ", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(6000)},
		{ChargeCode: "DOC_FEE", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(800)},
	}
}

func TestBillHandler_IssueAndSettle(t *testing.T) {
	env := newTestEnv(t)
	cust := env.customer(testLicense, 50000)
	orderID := confirmedOrder(t, env, cust, "12800")
	staff := billRoutes(env, env.staff(shared.RoleOperator))
	customer := billRoutes(env, cust)

	create := CreateBillRequest{OrderID: orderID, Items: freightItems(), DueDate: time.Now().AddDate(0, 2, 0).Format("2006-01-02")}
	resp := do(t, customer, http.MethodPost, "/api/v1/bills", create)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = do(t, staff, http.MethodPost, "/api/v1/bills", create)
	require.Equal(t, http.StatusCreated, resp.Code, string(resp.Body))
	var bill billing.BillDTO
	resp.decode(t, &bill)
	assert.Equal(t, "DRAFT", bill.Status)
	assert.True(t, bill.Amount.Equal(decimal.NewFromInt(12800)), bill.Amount.String())
	assert.Len(t, bill.Items, 2)
	require.NotNil(t, bill.DueDate)
	base := "/api/v1/bills/" + bill.ID.String()

	pay := func(amount string) testResponse {
		return do(t, staff, http.MethodPost, base+"/payments", PaymentRequest{Amount: dec(amount), Method: "BANK_TRANSFER"})
	}

	resp = pay("100")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, dto.ErrCodeInvalidState, resp.errorCode())

	require.Equal(t, http.StatusOK, do(t, staff, http.MethodPost, base+"/issue", nil).Code)

	resp = pay("5000")
	require.Equal(t, http.StatusOK, resp.Code, string(resp.Body))
	resp.decode(t, &bill)
	assert.Equal(t, "PARTIAL_PAID", bill.Status)
	assert.True(t, bill.Outstanding.Equal(decimal.NewFromInt(7800)))

	resp = pay("10000")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, dto.ErrCodeExceedsOutstanding, resp.errorCode())

	resp = pay("7800")
	require.Equal(t, http.StatusOK, resp.Code)
	resp.decode(t, &bill)
	assert.Equal(t, "PAID", bill.Status)
	assert.Len(t, bill.Payments, 2)

	// settling the bill returns the order's reservation to the credit line
	mine := do(t, customer, http.MethodGet, "/api/v1/companies/mine", nil)
	var c company.CompanyDTO
	mine.decode(t, &c)
	assert.True(t, c.CreditUsed.IsZero(), c.CreditUsed.String())

	resp = do(t, staff, http.MethodPost, base+"/cancel", ReasonRequest{Reason: "duplicate"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = do(t, customer, http.MethodGet, base+"/history", nil)
	require.Equal(t, http.StatusOK, resp.Code, string(resp.Body))
	var history []billing.StatusChangeDTO
	resp.decode(t, &history)
	steps := make([]string, len(history))
	for i, h := range history {
		steps[i] = h.To
	}
	assert.Equal(t, []string{"DRAFT", "ISSUED", "PARTIAL_PAID", "PAID"}, steps)
}

func TestBillHandler_Validation(t *testing.T) {
	env := newTestEnv(t)
	cust := env.customer(testLicense, 50000)
	orderID := confirmedOrder(t, env, cust, "1000")
	staff := billRoutes(env, env.admin)

	resp := do(t, staff, http.MethodPost, "/api/v1/bills", CreateBillRequest{OrderID: orderID})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	items := freightItems()
	items[0].ChargeCode = "BUNKER"
	resp = do(t, staff, http.MethodPost, "/api/v1/bills", CreateBillRequest{OrderID: orderID, Items: items})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(t, staff, http.MethodPost, "/api/v1/bills", CreateBillRequest{OrderID: uuid.New(), Items: freightItems()})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = do(t, staff, http.MethodPost, "/api/v1/bills/"+uuid.NewString()+"/payments", `{"method":"CASH"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestBillHandler_DocumentsAndScoping(t *testing.T) {
	env := newTestEnv(t)
	cust := env.customer(testLicense, 50000)
	orderID := confirmedOrder(t, env, cust, "12800")
	staff := billRoutes(env, env.admin)

	resp := do(t, staff, http.MethodPost, "/api/v1/bills", CreateBillRequest{OrderID: orderID, Items: freightItems()})
	require.Equal(t, http.StatusCreated, resp.Code, string(resp.Body))
	var bill billing.BillDTO
	resp.decode(t, &bill)

	customer := billRoutes(env, cust)
	pdf := do(t, customer, http.MethodGet, "/api/v1/bills/"+bill.ID.String()+"/pdf", nil)
	require.Equal(t, http.StatusOK, pdf.Code)
	assert.Equal(t, contentTypePDF, pdf.Header.Get("Content-Type"))
	assert.Contains(t, pdf.Header.Get("Content-Disposition"), bill.BillNumber+".pdf")
	assert.Equal(t, "%PDF", string(pdf.Body[:4]))

	list := do(t, customer, http.MethodGet, "/api/v1/bills?status=draft&overdue=false", nil)
	require.Equal(t, http.StatusOK, list.Code)
	assert.EqualValues(t, 1, list.Meta.Total)

	export := do(t, staff, http.MethodGet, "/api/v1/bills/export", nil)
	require.Equal(t, http.StatusOK, export.Code)
	assert.Equal(t, contentTypeXLSX, export.Header.Get("Content-Type"))

	other := billRoutes(env, env.customer(otherLicense, 1000))
	resp = do(t, other, http.MethodGet, "/api/v1/bills/"+bill.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	resp = do(t, other, http.MethodGet, "/api/v1/bills/"+bill.ID.String()+"/pdf", nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}
