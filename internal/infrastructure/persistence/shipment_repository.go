package persistence

import (
	"context"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/domain/shipment"
	"github.com/freightport/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormShipmentRepository implements shipment.Repository using GORM
type GormShipmentRepository struct {
	db *gorm.DB
}

// NewGormShipmentRepository creates a new GormShipmentRepository
func NewGormShipmentRepository(db *gorm.DB) *GormShipmentRepository {
	return &GormShipmentRepository{db: db}
}

func preloadEvents(db *gorm.DB) *gorm.DB {
	return db.Order("occurred_at ASC")
}

// FindByID finds a shipment with its tracking events
func (r *GormShipmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*shipment.Shipment, error) {
	var model models.ShipmentModel
	if err := r.db.WithContext(ctx).
		Preload("Events", preloadEvents).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByReference finds a company's shipment by tracking reference
func (r *GormShipmentRepository) FindByReference(ctx context.Context, companyID uuid.UUID, ref shipment.Reference) (*shipment.Shipment, error) {
	ref = ref.Normalize()
	var model models.ShipmentModel
	if err := r.db.WithContext(ctx).
		Preload("Events", preloadEvents).
		Scopes(CompanyScope(companyID)).
		Where("tracking_type = ? AND tracking_number = ?", ref.Type, ref.Number).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindBySubscriptionID finds the shipment holding a provider subscription
func (r *GormShipmentRepository) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*shipment.Shipment, error) {
	if subscriptionID == "" {
		return nil, shared.ErrNotFound
	}
	var model models.ShipmentModel
	if err := r.db.WithContext(ctx).
		Preload("Events", preloadEvents).
		Where("subscription_id = ?", subscriptionID).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindSubscribedByNumber finds subscribed shipments tracking the given number
func (r *GormShipmentRepository) FindSubscribedByNumber(ctx context.Context, number string) ([]shipment.Shipment, error) {
	var shipmentModels []models.ShipmentModel
	if err := r.db.WithContext(ctx).
		Preload("Events", preloadEvents).
		Where("tracking_number = ? AND subscribed = ?", number, true).
		Find(&shipmentModels).Error; err != nil {
		return nil, err
	}
	shipments := make([]shipment.Shipment, len(shipmentModels))
	for i := range shipmentModels {
		shipments[i] = *shipmentModels[i].ToDomain()
	}
	return shipments, nil
}

// FindAll returns shipments matching the filter with pagination. Events are not loaded.
func (r *GormShipmentRepository) FindAll(ctx context.Context, filter shared.Filter) ([]shipment.Shipment, int64, error) {
	filter = filter.Normalize()
	query := r.db.WithContext(ctx).
		Model(&models.ShipmentModel{}).
		Scopes(
			equalityScope(filter.Filters, "company_id", "status", "subscribed", "order_id", "tracking_type"),
			searchScope(filter.Search, "tracking_number", "vessel"),
			createdRangeScope(filter),
		)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var shipmentModels []models.ShipmentModel
	if err := query.Scopes(pageScope(filter, shipmentSort, "created_at")).
		Find(&shipmentModels).Error; err != nil {
		return nil, 0, err
	}

	shipments := make([]shipment.Shipment, len(shipmentModels))
	for i := range shipmentModels {
		shipments[i] = *shipmentModels[i].ToDomain()
	}
	return shipments, total, nil
}

// Save persists the shipment and inserts events not yet stored
func (r *GormShipmentRepository) Save(ctx context.Context, s *shipment.Shipment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.ShipmentModelFromDomain(s)
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}
		return r.insertEvents(tx, s)
	})
	if err != nil {
		return translateError(err)
	}
	s.MarkPersisted()
	return nil
}

// SaveWithLock updates the shipment only if the stored version is the one it
// was loaded at, then inserts new events
func (r *GormShipmentRepository) SaveWithLock(ctx context.Context, s *shipment.Shipment) error {
	if s.PersistedVersion() == 0 {
		return r.Save(ctx, s)
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.ShipmentModel{}).
			Where("id = ? AND version = ?", s.ID, s.PersistedVersion()).
			Select("*").
			Omit("id", "created_at", clause.Associations).
			Updates(models.ShipmentModelFromDomain(s))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		return r.insertEvents(tx, s)
	})
	if err != nil {
		return translateError(err)
	}
	s.MarkPersisted()
	return nil
}

func (r *GormShipmentRepository) insertEvents(tx *gorm.DB, s *shipment.Shipment) error {
	if len(s.Events) == 0 {
		return nil
	}
	rows := make([]*models.TrackingEventModel, len(s.Events))
	for i, e := range s.Events {
		rows[i] = models.TrackingEventModelFromDomain(e)
		rows[i].ShipmentID = s.ID
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// Events returns a shipment's tracking events, oldest first
func (r *GormShipmentRepository) Events(ctx context.Context, shipmentID uuid.UUID) ([]shipment.TrackingEvent, error) {
	var rows []models.TrackingEventModel
	if err := preloadEvents(r.db.WithContext(ctx)).
		Where("shipment_id = ?", shipmentID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	events := make([]shipment.TrackingEvent, len(rows))
	for i := range rows {
		events[i] = rows[i].ToDomain()
	}
	return events, nil
}

var _ shipment.Repository = (*GormShipmentRepository)(nil)
