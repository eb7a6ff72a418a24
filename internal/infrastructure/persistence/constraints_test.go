package persistence

import (
	"context"
	"testing"

	"github.com/freightport/backend/internal/domain/identity"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/domain/shipment"
	"github.com/freightport/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniqueIndexes(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	t.Run("indexes exist after AutoMigrate", func(t *testing.T) {
		assert.True(t, db.Migrator().HasIndex(&models.UserModel{}, "idx_users_email"))
		assert.True(t, db.Migrator().HasIndex(&models.ShipmentModel{}, "idx_shipments_reference"))
	})

	t.Run("email is unique when set", func(t *testing.T) {
		users := NewGormUserRepository(db)
		first, err := identity.NewCustomer("bob", "bob@example.com", "secret123")
		require.NoError(t, err)
		require.NoError(t, users.Create(ctx, first))

		dup, err := identity.NewCustomer("robert", "BOB@example.com", "secret123")
		require.NoError(t, err)
		assert.ErrorIs(t, users.Create(ctx, dup), shared.ErrAlreadyExists)
	})

	t.Run("blank emails never collide", func(t *testing.T) {
		users := NewGormUserRepository(db)
		for _, name := range []string{"carol", "dave"} {
			u, err := identity.NewCustomer(name, "", "secret123")
			require.NoError(t, err)
			require.NoError(t, users.Create(ctx, u))
		}
	})

	t.Run("shipment reference is unique per company", func(t *testing.T) {
		shipments := NewGormShipmentRepository(db)
		companyID := uuid.New()
		ref := shipment.Reference{Type: shipment.TrackingBillOfLading, Number: "COSU6312345670"}

		first, err := shipment.NewShipment(companyID, uuid.New(), nil, ref)
		require.NoError(t, err)
		require.NoError(t, shipments.Save(ctx, first))

		dup, err := shipment.NewShipment(companyID, uuid.New(), nil, shipment.Reference{Type: ref.Type, Number: " cosu6312345670 "})
		require.NoError(t, err)
		assert.ErrorIs(t, shipments.Save(ctx, dup), shared.ErrAlreadyExists)

		other, err := shipment.NewShipment(uuid.New(), uuid.New(), nil, ref)
		require.NoError(t, err)
		assert.NoError(t, shipments.Save(ctx, other))

		booking, err := shipment.NewShipment(companyID, uuid.New(), nil, shipment.Reference{Type: shipment.TrackingBooking, Number: ref.Number})
		require.NoError(t, err)
		assert.NoError(t, shipments.Save(ctx, booking))
	})
}

func TestUniqueIndex_CreateSQL(t *testing.T) {
	email := uniqueIndexes[0]
	assert.Equal(t, "CREATE UNIQUE INDEX idx_users_email ON users (email) WHERE email <> ''", email.createSQL("sqlite"))
	assert.Equal(t, "CREATE UNIQUE INDEX idx_users_email ON users ((NULLIF(email, '')))", email.createSQL("mysql"))

	ref := uniqueIndexes[1]
	assert.Equal(t, "CREATE UNIQUE INDEX idx_shipments_reference ON shipments (company_id, tracking_type, tracking_number)", ref.createSQL("postgres"))
}
