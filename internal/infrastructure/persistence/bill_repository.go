package persistence

import (
	"context"
	"time"

	"github.com/freightport/backend/internal/domain/billing"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBillRepository implements billing.Repository using GORM
type GormBillRepository struct {
	db *gorm.DB
}

// NewGormBillRepository creates a new GormBillRepository
func NewGormBillRepository(db *gorm.DB) *GormBillRepository {
	return &GormBillRepository{db: db}
}

func (r *GormBillRepository) withLines(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("paid_at ASC")
		})
}

// FindByID finds a bill with its items and payments
func (r *GormBillRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Bill, error) {
	var model models.BillModel
	if err := r.withLines(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll returns bills matching the filter with pagination. Lines are loaded
// so exports can render them.
func (r *GormBillRepository) FindAll(ctx context.Context, filter shared.Filter) ([]billing.Bill, int64, error) {
	filter = filter.Normalize()
	query := r.db.WithContext(ctx).
		Model(&models.BillModel{}).
		Scopes(
			equalityScope(filter.Filters, "company_id", "status", "order_id"),
			searchScope(filter.Search, "bill_number", "order_number"),
			createdRangeScope(filter),
		)
	if overdue, ok := filter.Filters["overdue"].(bool); ok && overdue {
		query = query.Where("status = ?", billing.StatusOverdue)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var billModels []models.BillModel
	if err := query.
		Preload("Items").
		Scopes(pageScope(filter, billSort, "created_at")).
		Find(&billModels).Error; err != nil {
		return nil, 0, err
	}
	return billsToDomain(billModels), total, nil
}

// FindByOrder returns every bill raised against an order
func (r *GormBillRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]billing.Bill, error) {
	var billModels []models.BillModel
	if err := r.withLines(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&billModels).Error; err != nil {
		return nil, err
	}
	return billsToDomain(billModels), nil
}

// FindPastDue returns ISSUED and PARTIAL_PAID bills due before asOf
func (r *GormBillRepository) FindPastDue(ctx context.Context, asOf time.Time, limit int) ([]billing.Bill, error) {
	if limit <= 0 {
		limit = 100
	}
	var billModels []models.BillModel
	if err := r.withLines(ctx).
		Where("status IN ? AND due_date < ?", []billing.Status{billing.StatusIssued, billing.StatusPartialPaid}, asOf).
		Order("due_date ASC").
		Limit(limit).
		Find(&billModels).Error; err != nil {
		return nil, err
	}
	return billsToDomain(billModels), nil
}

func billsToDomain(billModels []models.BillModel) []billing.Bill {
	bills := make([]billing.Bill, len(billModels))
	for i := range billModels {
		bills[i] = *billModels[i].ToDomain()
	}
	return bills
}

// Save persists the bill, replacing its items and inserting new payments
func (r *GormBillRepository) Save(ctx context.Context, b *billing.Bill) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.BillModelFromDomain(b)
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}
		if err := r.saveLines(tx, b); err != nil {
			return err
		}
		return r.appendHistory(tx, b)
	})
	if err != nil {
		return translateError(err)
	}
	b.MarkPersisted()
	return nil
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormBillRepository) SaveWithLock(ctx context.Context, b *billing.Bill) error {
	if b.PersistedVersion() == 0 {
		return r.Save(ctx, b)
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.BillModelFromDomain(b)
		result := tx.Model(&models.BillModel{}).
			Where("id = ? AND version = ?", b.ID, b.PersistedVersion()).
			Select("*").
			Omit("id", "created_at").
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		if err := r.saveLines(tx, b); err != nil {
			return err
		}
		return r.appendHistory(tx, b)
	})
	if err != nil {
		return translateError(err)
	}
	b.MarkPersisted()
	return nil
}

func (r *GormBillRepository) saveLines(tx *gorm.DB, b *billing.Bill) error {
	if err := tx.Where("bill_id = ?", b.ID).Delete(&models.BillItemModel{}).Error; err != nil {
		return err
	}
	if len(b.Items) > 0 {
		items := make([]*models.BillItemModel, len(b.Items))
		for i, item := range b.Items {
			items[i] = models.BillItemModelFromDomain(item)
			items[i].BillID = b.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
	}
	if len(b.Payments) > 0 {
		payments := make([]*models.PaymentModel, len(b.Payments))
		for i, p := range b.Payments {
			payments[i] = models.PaymentModelFromDomain(p)
			payments[i].BillID = b.ID
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&payments).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *GormBillRepository) appendHistory(tx *gorm.DB, b *billing.Bill) error {
	if len(b.History) == 0 {
		return nil
	}
	rows := models.BillHistoryRows(b)
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// History returns the status history of a bill, oldest first
func (r *GormBillRepository) History(ctx context.Context, billID uuid.UUID) ([]billing.StatusChange, error) {
	var rows []models.BillStatusChangeModel
	if err := r.db.WithContext(ctx).
		Where("bill_id = ?", billID).
		Order("changed_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	history := make([]billing.StatusChange, len(rows))
	for i := range rows {
		history[i] = rows[i].ToDomain()
	}
	return history, nil
}

// CountByStatus counts bills grouped by status
func (r *GormBillRepository) CountByStatus(ctx context.Context) (map[billing.Status]int64, error) {
	var rows []struct {
		Status billing.Status
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.BillModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[billing.Status]int64, len(billing.AllStatuses()))
	for _, s := range billing.AllStatuses() {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// SumOutstanding totals unpaid money on issued, partially paid and overdue bills
func (r *GormBillRepository) SumOutstanding(ctx context.Context) (billing.Totals, error) {
	var rows []struct {
		Status billing.Status
		Amount decimal.Decimal
		Paid   decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.BillModel{}).
		Select("status, COALESCE(SUM(amount), 0) AS amount, COALESCE(SUM(paid_amount), 0) AS paid").
		Where("status IN ?", []billing.Status{billing.StatusIssued, billing.StatusPartialPaid, billing.StatusOverdue}).
		Group("status").
		Scan(&rows).Error; err != nil {
		return billing.Totals{}, err
	}
	totals := billing.Totals{Outstanding: decimal.Zero, Overdue: decimal.Zero}
	for _, row := range rows {
		unpaid := row.Amount.Sub(row.Paid)
		totals.Outstanding = totals.Outstanding.Add(unpaid)
		if row.Status == billing.StatusOverdue {
			totals.Overdue = totals.Overdue.Add(unpaid)
		}
	}
	return totals, nil
}

// GenerateBillNumber generates the next bill number.
// Format: INV-YYYY-NNNNN (e.g., INV-2026-00001)
func (r *GormBillRepository) GenerateBillNumber(ctx context.Context) (string, error) {
	return nextYearlyNumber(ctx, r.db, &models.BillModel{}, "bill_number", "INV", time.Now())
}

var _ billing.Repository = (*GormBillRepository)(nil)
