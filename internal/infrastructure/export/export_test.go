package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/freightport/backend/internal/domain/billing"
	"github.com/freightport/backend/internal/domain/order"
)

func testBill(t *testing.T) *billing.Bill {
	t.Helper()
	due := time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC)
	b, err := billing.NewBill(uuid.New(), uuid.New(), uuid.New(), "ORD-20261019-0001", "INV-2026-00001", "usd",
		[]billing.ItemInput{
			{ChargeCode: billing.ChargeOceanFreight, Description: "Shanghai to Rotterdam 40HQ", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(1500)},
			{ChargeCode: billing.ChargeDocFee, Description: "B/L fee", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("50.25")},
		}, &due, "Net 30")
	require.NoError(t, err)
	require.NoError(t, b.Issue(uuid.New(), time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)))
	_, err = b.RecordPayment(uuid.New(), decimal.NewFromInt(1000), billing.MethodBankTransfer, "TT-778", time.Date(2026, 10, 25, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return b
}

func TestLabelAndMoney(t *testing.T) {
	assert.Equal(t, "Partial Paid", Label("PARTIAL_PAID"))
	assert.Equal(t, "Sea Fcl", Label("SEA_FCL"))
	assert.Equal(t, "", Label(""))
	assert.Equal(t, "3,050.25", Money(decimal.RequireFromString("3050.25")))
	assert.Equal(t, "0.00", Money(decimal.Zero))
}

func TestRenderer_BillPDF(t *testing.T) {
	r := NewRenderer(Issuer{Name: "FreightPort Logistics", Address: "1 Harbour Rd"})
	out, err := r.BillPDF(testBill(t), "Acme Trading Co.")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Greater(t, len(out), 1000)
}

func TestRenderer_BillsWorkbook(t *testing.T) {
	r := NewRenderer(Issuer{})
	out, err := r.BillsWorkbook([]*billing.Bill{testBill(t)})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Bills")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Bill No.", rows[0][0])
	assert.Equal(t, "INV-2026-00001", rows[1][0])
	assert.Equal(t, "Partial Paid", rows[1][2])
	assert.Equal(t, "USD", rows[1][3])

	items, err := f.GetRows("Items")
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, "Ocean Freight", items[1][1])
}

func TestRenderer_OrdersWorkbook(t *testing.T) {
	ready := time.Date(2026, 10, 30, 0, 0, 0, 0, time.UTC)
	o, err := order.NewOrder(uuid.New(), uuid.New(), "ORD-20261019-0001", order.Cargo{
		ServiceType:      order.ServiceSeaFCL,
		OriginPort:       "CNSHA",
		DestinationPort:  "NLRTM",
		CargoDescription: "Furniture",
		ContainerType:    order.Container40HQ,
		ContainerQty:     2,
		GrossWeightKg:    decimal.NewFromInt(18000),
		VolumeCBM:        decimal.NewFromInt(120),
		Incoterm:         "FOB",
		CargoReadyDate:   &ready,
	})
	require.NoError(t, err)

	out, err := NewRenderer(Issuer{}).OrdersWorkbook([]*order.Order{o})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Orders")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ORD-20261019-0001", rows[1][0])
	assert.Equal(t, "Pending", rows[1][1])
	assert.Equal(t, "CNSHA", rows[1][3])
	assert.Equal(t, "2026-10-30", rows[1][11])
}
