package persistence

import (
	"context"
	"strings"

	"github.com/freightport/backend/internal/domain/identity"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormUserRepository stores portal accounts in the users table.
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// login identifiers are stored lowercased
func loginKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (r *GormUserRepository) Create(ctx context.Context, user *identity.User) error {
	if err := r.db.WithContext(ctx).Create(models.NewUserModel(user)).Error; err != nil {
		return translateError(err)
	}
	user.MarkPersisted()
	return nil
}

// Update overwrites every mutable column of an existing account.
func (r *GormUserRepository) Update(ctx context.Context, user *identity.User) error {
	res := r.db.WithContext(ctx).
		Model(&models.UserModel{}).
		Where("id = ?", user.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(models.NewUserModel(user))
	switch {
	case res.Error != nil:
		return translateError(res.Error)
	case res.RowsAffected == 0:
		return shared.ErrNotFound
	}
	user.MarkPersisted()
	return nil
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	return r.one(ctx, "id = ?", id)
}

func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	return r.one(ctx, "username = ?", loginKey(username))
}

func (r *GormUserRepository) FindByWechatOpenID(ctx context.Context, openID string) (*identity.User, error) {
	if openID == "" {
		return nil, shared.ErrNotFound
	}
	return r.one(ctx, "wechat_open_id = ?", openID)
}

func (r *GormUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return existsWhere[models.UserModel](ctx, r.db, "username = ?", loginKey(username))
}

// ExistsByEmail reports false for a blank address.
func (r *GormUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	key := loginKey(email)
	if key == "" {
		return false, nil
	}
	return existsWhere[models.UserModel](ctx, r.db, "email = ?", key)
}

// FindByCompany lists the active members of a company, oldest first.
func (r *GormUserRepository) FindByCompany(ctx context.Context, companyID uuid.UUID) ([]*identity.User, error) {
	var rows []models.UserModel
	err := r.db.WithContext(ctx).
		Scopes(CompanyScope(companyID)).
		Where("status = ?", identity.UserStatusActive).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainAll[identity.User](rows), nil
}

func (r *GormUserRepository) FindAll(ctx context.Context, filter shared.Filter) ([]*identity.User, int64, error) {
	filter = filter.Normalize()
	base := r.db.WithContext(ctx).Model(&models.UserModel{}).Scopes(
		equalityScope(filter.Filters, "role", "status", "company_id"),
		searchScope(filter.Search, "username", "email", "display_name"),
		createdRangeScope(filter),
	)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.UserModel
	if err := base.Scopes(pageScope(filter, userSort, "created_at")).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toDomainAll[identity.User](rows), total, nil
}

func (r *GormUserRepository) one(ctx context.Context, query string, args ...any) (*identity.User, error) {
	row, err := firstWhere[models.UserModel](ctx, r.db, query, args...)
	if err != nil {
		return nil, err
	}
	return row.ToDomain(), nil
}

var _ identity.UserRepository = (*GormUserRepository)(nil)
