package identity

import (
	"context"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByWechatOpenID(ctx context.Context, openID string) (*User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// FindByCompany returns all active members of a company
	FindByCompany(ctx context.Context, companyID uuid.UUID) ([]*User, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]*User, int64, error)
}
