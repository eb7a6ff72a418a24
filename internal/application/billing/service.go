// Package billing implements invoicing against orders: drafting, issuing,
// payments, overdue sweeps and the PDF and spreadsheet renditions.
package billing

import (
	"context"
	"errors"
	"time"

	"github.com/freightport/backend/internal/application/common"
	"github.com/freightport/backend/internal/domain/billing"
	"github.com/freightport/backend/internal/domain/company"
	"github.com/freightport/backend/internal/domain/order"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Metrics records billing business metrics
type Metrics interface {
	RecordPayment(ctx context.Context, method, currency string, amount decimal.Decimal)
}

// Renderer produces the customer-facing renditions of bills
type Renderer interface {
	BillPDF(b *billing.Bill, customer string) ([]byte, error)
	BillsWorkbook(bills []*billing.Bill) ([]byte, error)
}

// Service handles bill operations
type Service struct {
	repo      billing.Repository
	orders    order.Repository
	companies company.Repository
	scope     common.TransactionScope
	renderer  Renderer
	storage   common.ObjectStorage
	metrics   Metrics
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewService creates a bill service. renderer, storage, metrics and
// publisher may be nil.
func NewService(
	repo billing.Repository,
	orders order.Repository,
	companies company.Repository,
	scope common.TransactionScope,
	renderer Renderer,
	storage common.ObjectStorage,
	metrics Metrics,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:      repo,
		orders:    orders,
		companies: companies,
		scope:     scope,
		renderer:  renderer,
		storage:   storage,
		metrics:   metrics,
		publisher: publisher,
		logger:    logger,
	}
}

// PDFKey is the storage key of a bill's rendered invoice
func PDFKey(billNumber string) string {
	return "bills/" + billNumber + ".pdf"
}

// Create drafts a bill for an order that is neither cancelled nor rejected
func (s *Service) Create(ctx context.Context, actor shared.Actor, input CreateBillInput) (*BillDTO, error) {
	if err := actor.RequireStaff(); err != nil {
		return nil, err
	}
	o, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if !o.IsBillable() {
		return nil, shared.NewDomainErrorf("INVALID_STATE", "Cannot bill an order in %s status", o.Status)
	}

	currency := input.Currency
	if currency == "" {
		currency = o.Currency
	}
	if currency == "" {
		currency = company.DefaultCurrency
	}
	number, err := s.repo.GenerateBillNumber(ctx)
	if err != nil {
		return nil, err
	}
	b, err := billing.NewBill(o.CompanyID, actor.UserID, o.ID, o.OrderNumber, number, currency,
		toItemInputs(input.Items), input.DueDate, input.Remark)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, b); err != nil {
		return nil, err
	}

	s.logger.Info("Bill created",
		zap.String("bill_number", b.BillNumber),
		zap.String("order_number", o.OrderNumber),
		zap.String("amount", b.Amount.StringFixed(2)))

	dto := ToBillDTO(b)
	return &dto, nil
}

// UpdateItems replaces the lines and due date of a draft bill
func (s *Service) UpdateItems(ctx context.Context, actor shared.Actor, id uuid.UUID, input UpdateBillInput) (*BillDTO, error) {
	return s.staffUpdate(ctx, actor, id, func(b *billing.Bill) error {
		return b.UpdateDraft(toItemInputs(input.Items), input.DueDate, input.Remark)
	})
}

// Issue sends a draft bill to the customer
func (s *Service) Issue(ctx context.Context, actor shared.Actor, id uuid.UUID) (*BillDTO, error) {
	return s.staffUpdate(ctx, actor, id, func(b *billing.Bill) error {
		return b.Issue(actor.UserID, time.Now())
	})
}

// Cancel voids a draft bill or an unpaid issued bill
func (s *Service) Cancel(ctx context.Context, actor shared.Actor, id uuid.UUID, reason string) (*BillDTO, error) {
	return s.staffUpdate(ctx, actor, id, func(b *billing.Bill) error {
		return b.Cancel(actor.UserID, reason)
	})
}

func (s *Service) staffUpdate(ctx context.Context, actor shared.Actor, id uuid.UUID, apply func(*billing.Bill) error) (*BillDTO, error) {
	if err := actor.RequireStaff(); err != nil {
		return nil, err
	}
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(b); err != nil {
		return nil, err
	}
	if err := s.repo.SaveWithLock(ctx, b); err != nil {
		return nil, err
	}

	s.logger.Info("Bill updated",
		zap.String("bill_number", b.BillNumber),
		zap.String("status", string(b.Status)),
		zap.String("by", actor.UserID.String()))

	common.PublishEvents(ctx, s.publisher, s.logger, b)
	dto := ToBillDTO(b)
	return &dto, nil
}

// RecordPayment applies a payment. When the bill becomes fully paid the
// order's credit reservation goes back to the company in the same
// transaction.
func (s *Service) RecordPayment(ctx context.Context, actor shared.Actor, id uuid.UUID, input PaymentInput) (*BillDTO, error) {
	if err := actor.RequireStaff(); err != nil {
		return nil, err
	}
	paidAt := time.Now()
	if input.PaidAt != nil {
		paidAt = *input.PaidAt
	}

	var b *billing.Bill
	var released decimal.Decimal
	err := s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		var err error
		b, err = repos.Bills().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if _, err := b.RecordPayment(actor.UserID, input.Amount, billing.PaymentMethod(input.Method), input.Reference, paidAt); err != nil {
			return err
		}
		if b.Status == billing.StatusPaid {
			released, err = s.releaseOrderCredit(ctx, repos, b.OrderID)
			if err != nil {
				return err
			}
		}
		return repos.Bills().SaveWithLock(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment recorded",
		zap.String("bill_number", b.BillNumber),
		zap.String("amount", input.Amount.StringFixed(2)),
		zap.String("method", input.Method),
		zap.String("status", string(b.Status)),
		zap.String("credit_released", released.StringFixed(2)))

	if s.metrics != nil {
		s.metrics.RecordPayment(ctx, input.Method, b.Currency, input.Amount)
	}
	common.PublishEvents(ctx, s.publisher, s.logger, b)
	dto := ToBillDTO(b)
	return &dto, nil
}

func (s *Service) releaseOrderCredit(ctx context.Context, repos common.TransactionalRepositories, orderID uuid.UUID) (decimal.Decimal, error) {
	o, err := repos.Orders().FindByID(ctx, orderID)
	if err != nil {
		return decimal.Zero, err
	}
	released := o.ReleaseReservedCredit()
	if !released.IsPositive() {
		return decimal.Zero, nil
	}
	o.IncrementVersion()
	c, err := repos.Companies().FindByID(ctx, o.CompanyID)
	if err != nil {
		return decimal.Zero, err
	}
	c.ReleaseCredit(released)
	if err := repos.Companies().SaveWithLock(ctx, c); err != nil {
		return decimal.Zero, err
	}
	if err := repos.Orders().SaveWithLock(ctx, o); err != nil {
		return decimal.Zero, err
	}
	return released, nil
}

// SweepOverdue marks issued and partially paid bills past their due date as
// overdue. It returns how many bills changed.
func (s *Service) SweepOverdue(ctx context.Context, now time.Time, limit int) (int, error) {
	bills, err := s.repo.FindPastDue(ctx, now, limit)
	if err != nil {
		return 0, err
	}
	marked := 0
	for i := range bills {
		b := &bills[i]
		changed, err := b.MarkOverdue(now)
		if err != nil || !changed {
			continue
		}
		if err := s.repo.SaveWithLock(ctx, b); err != nil {
			if errors.Is(err, shared.ErrConcurrencyConflict) {
				// picked up by the next sweep
				continue
			}
			return marked, err
		}
		marked++
		common.PublishEvents(ctx, s.publisher, s.logger, b)
	}
	if marked > 0 {
		s.logger.Info("Bills marked overdue", zap.Int("count", marked))
	}
	return marked, nil
}

// Get returns a bill the actor may see
func (s *Service) Get(ctx context.Context, actor shared.Actor, id uuid.UUID) (*BillDTO, error) {
	b, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	dto := ToBillDTO(b)
	return &dto, nil
}

// List returns a page of bills visible to the actor. Supported filters:
// status, company_id, order_id, overdue (bool).
func (s *Service) List(ctx context.Context, actor shared.Actor, filter shared.Filter) (*shared.Paginated[BillDTO], error) {
	filter, err := common.ScopeFilter(actor, filter.Normalize())
	if err != nil {
		return nil, err
	}
	bills, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]BillDTO, len(bills))
	for i := range bills {
		items[i] = ToBillDTO(&bills[i])
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// PDF renders a bill as a PDF invoice and, when storage is configured,
// keeps a copy under PDFKey.
func (s *Service) PDF(ctx context.Context, actor shared.Actor, id uuid.UUID) ([]byte, string, error) {
	if s.renderer == nil {
		return nil, "", shared.NewDomainError("SERVICE_UNAVAILABLE", "PDF rendering is not available")
	}
	b, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, "", err
	}
	customer := ""
	if c, err := s.companies.FindByID(ctx, b.CompanyID); err == nil {
		customer = c.Name
	} else {
		s.logger.Warn("Bill company lookup failed", zap.String("bill_number", b.BillNumber), zap.Error(err))
	}

	data, err := s.renderer.BillPDF(b, customer)
	if err != nil {
		return nil, "", err
	}
	if s.storage != nil {
		if err := s.storage.Upload(ctx, PDFKey(b.BillNumber), data, "application/pdf"); err != nil {
			s.logger.Warn("Bill PDF upload failed", zap.String("bill_number", b.BillNumber), zap.Error(err))
		}
	}
	return data, b.BillNumber + ".pdf", nil
}

// Export renders the bills matching filter as an Excel workbook
func (s *Service) Export(ctx context.Context, actor shared.Actor, filter shared.Filter) ([]byte, error) {
	if s.renderer == nil {
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
	bills := make([]*billing.Bill, len(rows))
	for i := range rows {
		bills[i] = &rows[i]
	}
	return s.renderer.BillsWorkbook(bills)
}

// History returns the status changes of a bill, oldest first
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

func (s *Service) load(ctx context.Context, actor shared.Actor, id uuid.UUID) (*billing.Bill, error) {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := actor.RequireCompanyAccess(b.CompanyID); err != nil {
		return nil, err
	}
	return b, nil
}
