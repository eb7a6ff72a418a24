package company

import (
	"context"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository defines the interface for company persistence
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Company, error)
	FindByLicenseNo(ctx context.Context, licenseNo string) (*Company, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Company, int64, error)
	Save(ctx context.Context, c *Company) error
	// SaveWithLock saves only if the stored version still matches
	SaveWithLock(ctx context.Context, c *Company) error
	CountByStatus(ctx context.Context, status Status) (int64, error)
}
