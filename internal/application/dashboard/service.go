// Package dashboard aggregates the operations overview shown to staff.
package dashboard

import (
	"context"

	"github.com/freightport/backend/internal/domain/billing"
	"github.com/freightport/backend/internal/domain/company"
	"github.com/freightport/backend/internal/domain/order"
	"github.com/freightport/backend/internal/domain/shared"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Summary is the staff dashboard
type Summary struct {
	Orders                 map[string]int64 `json:"orders"`
	Bills                  map[string]int64 `json:"bills"`
	OutstandingAmount      string           `json:"outstanding_amount"`
	OverdueAmount          string           `json:"overdue_amount"`
	CompaniesPendingReview int64            `json:"companies_pending_review"`
}

// Service builds the dashboard from repository aggregates
type Service struct {
	orders    order.Repository
	bills     billing.Repository
	companies company.Repository
	logger    *zap.Logger
}

// NewService creates a dashboard service
func NewService(orders order.Repository, bills billing.Repository, companies company.Repository, logger *zap.Logger) *Service {
	return &Service{orders: orders, bills: bills, companies: companies, logger: logger}
}

// Summary returns order and bill counts per status, money outstanding and
// the companies waiting for review. Every status appears, zero or not.
func (s *Service) Summary(ctx context.Context, actor shared.Actor) (*Summary, error) {
	if err := actor.RequireStaff(); err != nil {
		return nil, err
	}

	var (
		orderCounts map[order.Status]int64
		billCounts  map[billing.Status]int64
		totals      billing.Totals
		pending     int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		orderCounts, err = s.orders.CountByStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		billCounts, err = s.bills.CountByStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		totals, err = s.bills.SumOutstanding(gctx)
		return err
	})
	g.Go(func() (err error) {
		pending, err = s.companies.CountByStatus(gctx, company.StatusPendingReview)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("Dashboard aggregation failed", zap.Error(err))
		return nil, err
	}

	summary := &Summary{
		Orders:                 make(map[string]int64, len(order.AllStatuses())),
		Bills:                  make(map[string]int64, len(billing.AllStatuses())),
		OutstandingAmount:      totals.Outstanding.StringFixed(2),
		OverdueAmount:          totals.Overdue.StringFixed(2),
		CompaniesPendingReview: pending,
	}
	for _, st := range order.AllStatuses() {
		summary.Orders[string(st)] = orderCounts[st]
	}
	for _, st := range billing.AllStatuses() {
		summary.Bills[string(st)] = billCounts[st]
	}
	return summary, nil
}
