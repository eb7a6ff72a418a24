package persistence

import (
	"context"
	"time"

	"github.com/freightport/backend/internal/domain/order"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order by ID. History is loaded separately through History.
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.one(ctx, "id = ?", id)
}

// FindByNumber finds an order by its order number
func (r *GormOrderRepository) FindByNumber(ctx context.Context, number string) (*order.Order, error) {
	return r.one(ctx, "order_number = ?", number)
}

// FindAll returns orders matching the filter with pagination
func (r *GormOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]order.Order, int64, error) {
	filter = filter.Normalize()
	query := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Scopes(
			equalityScope(filter.Filters, "company_id", "status", "service_type"),
			searchScope(filter.Search, "order_number", "origin_port", "destination_port", "cargo_description"),
			createdRangeScope(filter),
		)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orderModels []models.OrderModel
	if err := query.Scopes(pageScope(filter, orderSort, "created_at")).
		Find(&orderModels).Error; err != nil {
		return nil, 0, err
	}

	orders := make([]order.Order, len(orderModels))
	for i := range orderModels {
		orders[i] = *orderModels[i].ToDomain()
	}
	return orders, total, nil
}

// Save inserts or overwrites the order and appends unsaved history entries
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.OrderModelFromDomain(o)
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}
		return r.appendHistory(tx, o)
	})
	if err != nil {
		return translateError(err)
	}
	o.MarkPersisted()
	return nil
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, o *order.Order) error {
	if o.PersistedVersion() == 0 {
		return r.Save(ctx, o)
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.OrderModelFromDomain(o)
		result := tx.Model(&models.OrderModel{}).
			Where("id = ? AND version = ?", o.ID, o.PersistedVersion()).
			Select("*").
			Omit("id", "created_at").
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		return r.appendHistory(tx, o)
	})
	if err != nil {
		return translateError(err)
	}
	o.MarkPersisted()
	return nil
}

func (r *GormOrderRepository) appendHistory(tx *gorm.DB, o *order.Order) error {
	if len(o.History) == 0 {
		return nil
	}
	rows := make([]*models.OrderStatusChangeModel, len(o.History))
	for i, change := range o.History {
		rows[i] = models.OrderStatusChangeModelFromDomain(change)
		rows[i].OrderID = o.ID
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// History returns the status history of an order, oldest first
func (r *GormOrderRepository) History(ctx context.Context, orderID uuid.UUID) ([]order.StatusChange, error) {
	var rows []models.OrderStatusChangeModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("changed_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	history := make([]order.StatusChange, len(rows))
	for i := range rows {
		history[i] = rows[i].ToDomain()
	}
	return history, nil
}

// CountByStatus counts orders grouped by status
func (r *GormOrderRepository) CountByStatus(ctx context.Context) (map[order.Status]int64, error) {
	var rows []struct {
		Status order.Status
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[order.Status]int64, len(order.AllStatuses()))
	for _, s := range order.AllStatuses() {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// GenerateOrderNumber generates the next order number.
// Format: FO-YYYY-NNNNN (e.g., FO-2026-00001)
func (r *GormOrderRepository) GenerateOrderNumber(ctx context.Context) (string, error) {
	return nextYearlyNumber(ctx, r.db, &models.OrderModel{}, "order_number", "FO", time.Now())
}

func (r *GormOrderRepository) one(ctx context.Context, query string, args ...any) (*order.Order, error) {
	row, err := firstWhere[models.OrderModel](ctx, r.db, query, args...)
	if err != nil {
		return nil, err
	}
	return row.ToDomain(), nil
}

var _ order.Repository = (*GormOrderRepository)(nil)
