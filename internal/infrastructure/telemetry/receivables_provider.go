package telemetry

import (
	"context"

	"github.com/freightport/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// billTotals is the slice of the bill repository the provider reads
type billTotals interface {
	SumOutstanding(ctx context.Context) (billing.Totals, error)
}

// BillReceivablesProvider implements ReceivablesProvider on the bill repository.
type BillReceivablesProvider struct {
	bills billTotals
}

// NewBillReceivablesProvider creates a provider backed by bill totals.
func NewBillReceivablesProvider(bills billTotals) *BillReceivablesProvider {
	return &BillReceivablesProvider{bills: bills}
}

// Receivables returns outstanding and overdue totals.
func (p *BillReceivablesProvider) Receivables(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	totals, err := p.bills.SumOutstanding(ctx)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return totals.Outstanding, totals.Overdue, nil
}
