package persistence

import (
	"context"
	"strings"

	"github.com/freightport/backend/internal/domain/company"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCompanyRepository implements company.Repository using GORM
type GormCompanyRepository struct {
	db *gorm.DB
}

// NewGormCompanyRepository creates a new GormCompanyRepository
func NewGormCompanyRepository(db *gorm.DB) *GormCompanyRepository {
	return &GormCompanyRepository{db: db}
}

// FindByID finds a company by ID
func (r *GormCompanyRepository) FindByID(ctx context.Context, id uuid.UUID) (*company.Company, error) {
	return r.one(ctx, "id = ?", id)
}

// FindByLicenseNo finds a company by its business license number
func (r *GormCompanyRepository) FindByLicenseNo(ctx context.Context, licenseNo string) (*company.Company, error) {
	return r.one(ctx, "license_no = ?", strings.ToUpper(strings.TrimSpace(licenseNo)))
}

// FindAll returns companies matching the filter with pagination
func (r *GormCompanyRepository) FindAll(ctx context.Context, filter shared.Filter) ([]company.Company, int64, error) {
	filter = filter.Normalize()
	query := r.db.WithContext(ctx).
		Model(&models.CompanyModel{}).
		Scopes(
			equalityScope(filter.Filters, "status"),
			searchScope(filter.Search, "name", "license_no", "contact_name"),
			createdRangeScope(filter),
		)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var companyModels []models.CompanyModel
	if err := query.Scopes(pageScope(filter, companySort, "created_at")).
		Find(&companyModels).Error; err != nil {
		return nil, 0, err
	}

	companies := make([]company.Company, len(companyModels))
	for i := range companyModels {
		companies[i] = *companyModels[i].ToDomain()
	}
	return companies, total, nil
}

// Save inserts a new company or overwrites an existing one
func (r *GormCompanyRepository) Save(ctx context.Context, c *company.Company) error {
	model := models.CompanyModelFromDomain(c)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return translateError(err)
	}
	c.MarkPersisted()
	return nil
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormCompanyRepository) SaveWithLock(ctx context.Context, c *company.Company) error {
	if c.PersistedVersion() == 0 {
		return r.Save(ctx, c)
	}
	model := models.CompanyModelFromDomain(c)
	result := r.db.WithContext(ctx).
		Model(&models.CompanyModel{}).
		Where("id = ? AND version = ?", c.ID, c.PersistedVersion()).
		Select("*").
		Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	c.MarkPersisted()
	return nil
}

// CountByStatus counts companies in a status
func (r *GormCompanyRepository) CountByStatus(ctx context.Context, status company.Status) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.CompanyModel{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormCompanyRepository) one(ctx context.Context, query string, args ...any) (*company.Company, error) {
	row, err := firstWhere[models.CompanyModel](ctx, r.db, query, args...)
	if err != nil {
		return nil, err
	}
	return row.ToDomain(), nil
}

var _ company.Repository = (*GormCompanyRepository)(nil)
