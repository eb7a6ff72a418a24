// Package order implements freight order booking and its lifecycle, including
// the credit reservation made on confirmation.
package order

import (
	"cmp"
	"context"
	"strings"

	"github.com/freightport/backend/internal/application/common"
	"github.com/freightport/backend/internal/domain/company"
	"github.com/freightport/backend/internal/domain/order"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Metrics records order business metrics
type Metrics interface {
	RecordOrderCreated(ctx context.Context, serviceType string)
	RecordOrderConfirmed(ctx context.Context, currency string, quoted decimal.Decimal)
}

// WorkbookRenderer renders orders as a spreadsheet
type WorkbookRenderer interface {
	OrdersWorkbook(orders []*order.Order) ([]byte, error)
}

// Service handles order operations
type Service struct {
	repo      order.Repository
	companies company.Repository
	scope     common.TransactionScope
	workbook  WorkbookRenderer
	metrics   Metrics
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewService creates an order service. workbook, metrics and publisher may be nil.
func NewService(
	repo order.Repository,
	companies company.Repository,
	scope common.TransactionScope,
	workbook WorkbookRenderer,
	metrics Metrics,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:      repo,
		companies: companies,
		scope:     scope,
		workbook:  workbook,
		metrics:   metrics,
		publisher: publisher,
		logger:    logger,
	}
}

var errCompanyNotApproved = shared.NewDomainError("COMPANY_NOT_APPROVED", "Company is not approved")

// Create books a pending order
func (s *Service) Create(ctx context.Context, actor shared.Actor, input CreateOrderInput) (*OrderDTO, error) {
	companyID, err := s.resolveCompany(actor, input.CompanyID)
	if err != nil {
		return nil, err
	}
	c, err := s.companies.FindByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if !c.IsApproved() {
		return nil, errCompanyNotApproved
	}

	number, err := s.repo.GenerateOrderNumber(ctx)
	if err != nil {
		return nil, err
	}
	o, err := order.NewOrder(companyID, actor.UserID, number, input.Cargo.toCargo())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, o); err != nil {
		return nil, err
	}

	s.logger.Info("Order created",
		zap.String("order_id", o.ID.String()),
		zap.String("order_number", o.OrderNumber),
		zap.String("company_id", companyID.String()))

	if s.metrics != nil {
		s.metrics.RecordOrderCreated(ctx, string(o.ServiceType))
	}
	common.PublishEvents(ctx, s.publisher, s.logger, o)
	dto := ToOrderDTO(o)
	return &dto, nil
}

func (s *Service) resolveCompany(actor shared.Actor, requested *uuid.UUID) (uuid.UUID, error) {
	if actor.IsStaff() {
		if requested == nil || *requested == uuid.Nil {
			return uuid.Nil, shared.NewDomainError("INVALID_COMPANY", "Company is required")
		}
		return *requested, nil
	}
	if actor.CompanyID == nil {
		return uuid.Nil, errCompanyNotApproved
	}
	if requested != nil && *requested != *actor.CompanyID {
		return uuid.Nil, shared.ErrForbidden
	}
	return *actor.CompanyID, nil
}

// Update replaces the booking details of a pending order
func (s *Service) Update(ctx context.Context, actor shared.Actor, id uuid.UUID, input CargoInput) (*OrderDTO, error) {
	o, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := o.Update(input.toCargo()); err != nil {
		return nil, err
	}
	if err := s.repo.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}
	dto := ToOrderDTO(o)
	return &dto, nil
}

// Confirm accepts a pending order at the quoted price and reserves the quote
// on the company's credit line in the same transaction.
func (s *Service) Confirm(ctx context.Context, actor shared.Actor, id uuid.UUID, quoted decimal.Decimal, currency string) (*OrderDTO, error) {
	if err := actor.RequireStaff(); err != nil {
		return nil, err
	}

	var o *order.Order
	err := s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		var err error
		o, err = repos.Orders().FindByID(ctx, id)
		if err != nil {
			return err
		}
		c, err := repos.Companies().FindByID(ctx, o.CompanyID)
		if err != nil {
			return err
		}
		// quotes are in the company's currency unless the operator says otherwise
		if strings.TrimSpace(currency) == "" {
			currency = cmp.Or(c.Currency, company.DefaultCurrency)
		}
		if err := o.Confirm(actor.UserID, quoted, currency); err != nil {
			return err
		}
		if err := c.ReserveCredit(o.CreditReserved); err != nil {
			return err
		}
		if err := repos.Companies().SaveWithLock(ctx, c); err != nil {
			return err
		}
		return repos.Orders().SaveWithLock(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order confirmed",
		zap.String("order_number", o.OrderNumber),
		zap.String("quoted", o.QuotedAmount.StringFixed(2)),
		zap.String("currency", o.Currency))

	if s.metrics != nil {
		s.metrics.RecordOrderConfirmed(ctx, o.Currency, o.QuotedAmount)
	}
	common.PublishEvents(ctx, s.publisher, s.logger, o)
	dto := ToOrderDTO(o)
	return &dto, nil
}

// Reject declines a pending order
func (s *Service) Reject(ctx context.Context, actor shared.Actor, id uuid.UUID, reason string) (*OrderDTO, error) {
	return s.staffTransition(ctx, actor, id, func(o *order.Order) error {
		return o.Reject(actor.UserID, reason)
	})
}

// StartProcessing moves a confirmed order into execution
func (s *Service) StartProcessing(ctx context.Context, actor shared.Actor, id uuid.UUID) (*OrderDTO, error) {
	return s.staffTransition(ctx, actor, id, func(o *order.Order) error {
		return o.StartProcessing(actor.UserID)
	})
}

// Complete closes an order in processing
func (s *Service) Complete(ctx context.Context, actor shared.Actor, id uuid.UUID) (*OrderDTO, error) {
	return s.staffTransition(ctx, actor, id, func(o *order.Order) error {
		return o.Complete(actor.UserID)
	})
}

func (s *Service) staffTransition(ctx context.Context, actor shared.Actor, id uuid.UUID, apply func(*order.Order) error) (*OrderDTO, error) {
	if err := actor.RequireStaff(); err != nil {
		return nil, err
	}
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(o); err != nil {
		return nil, err
	}
	if err := s.repo.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}

	s.logger.Info("Order status changed",
		zap.String("order_number", o.OrderNumber),
		zap.String("status", string(o.Status)))

	common.PublishEvents(ctx, s.publisher, s.logger, o)
	dto := ToOrderDTO(o)
	return &dto, nil
}

// Cancel cancels an order and releases its credit reservation. Customers
// may only cancel their own pending orders.
func (s *Service) Cancel(ctx context.Context, actor shared.Actor, id uuid.UUID, reason string) (*OrderDTO, error) {
	var o *order.Order
	err := s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		var err error
		o, err = repos.Orders().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := actor.RequireCompanyAccess(o.CompanyID); err != nil {
			return err
		}
		if !actor.IsStaff() && o.Status != order.StatusPending {
			return shared.NewDomainErrorf("INVALID_STATE", "Only pending orders can be cancelled, order is %s", o.Status)
		}

		released, err := o.Cancel(actor.UserID, reason)
		if err != nil {
			return err
		}
		if released.IsPositive() {
			c, err := repos.Companies().FindByID(ctx, o.CompanyID)
			if err != nil {
				return err
			}
			c.ReleaseCredit(released)
			if err := repos.Companies().SaveWithLock(ctx, c); err != nil {
				return err
			}
		}
		return repos.Orders().SaveWithLock(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order cancelled",
		zap.String("order_number", o.OrderNumber),
		zap.String("by", actor.UserID.String()))

	common.PublishEvents(ctx, s.publisher, s.logger, o)
	dto := ToOrderDTO(o)
	return &dto, nil
}

// Get returns an order the actor may see
func (s *Service) Get(ctx context.Context, actor shared.Actor, id uuid.UUID) (*OrderDTO, error) {
	o, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	dto := ToOrderDTO(o)
	return &dto, nil
}

// History returns the status history of an order, oldest first
func (s *Service) History(ctx context.Context, actor shared.Actor, id uuid.UUID) ([]StatusChangeDTO, error) {
	if _, err := s.load(ctx, actor, id); err != nil {
		return nil, err
	}
	history, err := s.repo.History(ctx, id)
	if err != nil {
		return nil, err
	}
	return toStatusChangeDTOs(history), nil
}

// List returns a page of orders visible to the actor. Supported filters:
// status, service_type, company_id.
func (s *Service) List(ctx context.Context, actor shared.Actor, filter shared.Filter) (*shared.Paginated[OrderDTO], error) {
	filter, err := common.ScopeFilter(actor, filter.Normalize())
	if err != nil {
		return nil, err
	}
	orders, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]OrderDTO, len(orders))
	for i := range orders {
		items[i] = ToOrderDTO(&orders[i])
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Export renders the orders matching filter as an Excel workbook
func (s *Service) Export(ctx context.Context, actor shared.Actor, filter shared.Filter) ([]byte, error) {
	if s.workbook == nil {
		return nil, shared.NewDomainError("SERVICE_UNAVAILABLE", "Export is not available")
	}
	filter, err := common.ScopeFilter(actor, filter)
	if err != nil {
		return nil, err
	}
	rows, err := common.CollectPages(ctx, filter, common.MaxExportRows, s.repo.FindAll)
	if err != nil {
		return nil, err
	}
	orders := make([]*order.Order, len(rows))
	for i := range rows {
		orders[i] = &rows[i]
	}
	return s.workbook.OrdersWorkbook(orders)
}

func (s *Service) load(ctx context.Context, actor shared.Actor, id uuid.UUID) (*order.Order, error) {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := actor.RequireCompanyAccess(o.CompanyID); err != nil {
		return nil, err
	}
	return o, nil
}
