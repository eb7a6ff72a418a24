package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/domain/shipment"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormShipmentRepository_SaveAndEvents(t *testing.T) {
	repo := NewGormShipmentRepository(setupTestDB(t))
	ctx := context.Background()
	companyID := uuid.New()

	s, err := shipment.NewShipment(companyID, uuid.New(), nil, shipment.Reference{
		Type:    shipment.TrackingContainer,
		Number:  "csqu3054383",
		Carrier: "cosco",
	})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, s))

	t.Run("finds by normalized reference", func(t *testing.T) {
		found, err := repo.FindByReference(ctx, companyID, shipment.Reference{Type: shipment.TrackingContainer, Number: " CSQU3054383 "})
		require.NoError(t, err)
		assert.Equal(t, s.ID, found.ID)
		assert.Equal(t, "COSCO", found.Carrier)

		_, err = repo.FindByReference(ctx, uuid.New(), s.Reference)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("applied events are stored once", func(t *testing.T) {
		departed := time.Date(2026, 10, 3, 8, 0, 0, 0, time.UTC)
		loaded, err := repo.FindByID(ctx, s.ID)
		require.NoError(t, err)
		require.NoError(t, loaded.Subscribe("sub-001"))
		added := loaded.ApplyEvents([]shipment.TrackingEvent{
			{Code: shipment.CodeDeparted, Location: "CNSHA", OccurredAt: departed, Vessel: "COSCO SHIPPING ARIES"},
			{Code: shipment.CodeGateIn, Location: "CNSHA", OccurredAt: departed.Add(-24 * time.Hour)},
		}, nil)
		require.Len(t, added, 2)
		require.NoError(t, repo.Save(ctx, loaded))

		// the second save carries the stored events again
		loaded.ApplyEvents([]shipment.TrackingEvent{
			{Code: shipment.CodeArrived, Location: "USLAX", OccurredAt: departed.Add(14 * 24 * time.Hour)},
		}, nil)
		require.NoError(t, repo.Save(ctx, loaded))

		events, err := repo.Events(ctx, s.ID)
		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.Equal(t, shipment.CodeGateIn, events[0].Code)
		assert.Equal(t, shipment.CodeArrived, events[2].Code)

		reloaded, err := repo.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, shipment.StatusArrived, reloaded.Status)
		assert.Equal(t, "COSCO SHIPPING ARIES", reloaded.Vessel)
		assert.Len(t, reloaded.Events, 3)
		require.NotNil(t, reloaded.ATD)
		assert.True(t, reloaded.ATD.Equal(departed))
	})

	t.Run("subscription lookups", func(t *testing.T) {
		bySub, err := repo.FindBySubscriptionID(ctx, "sub-001")
		require.NoError(t, err)
		assert.Equal(t, s.ID, bySub.ID)

		_, err = repo.FindBySubscriptionID(ctx, "")
		assert.ErrorIs(t, err, shared.ErrNotFound)

		subscribed, err := repo.FindSubscribedByNumber(ctx, "CSQU3054383")
		require.NoError(t, err)
		require.Len(t, subscribed, 1)
		assert.Len(t, subscribed[0].Events, 3)
	})
}

func TestGormShipmentRepository_SaveWithLockConflict(t *testing.T) {
	repo := NewGormShipmentRepository(setupTestDB(t))
	ctx := context.Background()

	s, err := shipment.NewShipment(uuid.New(), uuid.New(), nil, shipment.Reference{Type: shipment.TrackingContainer, Number: "CSQU3054383"})
	require.NoError(t, err)
	require.NoError(t, repo.SaveWithLock(ctx, s), "a new shipment is inserted")

	a, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	b, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)

	departed := time.Date(2026, 10, 3, 8, 0, 0, 0, time.UTC)
	require.Len(t, a.ApplyEvents([]shipment.TrackingEvent{{Code: shipment.CodeDeparted, Location: "CNSHA", OccurredAt: departed}}, nil), 1)
	require.NoError(t, repo.SaveWithLock(ctx, a))

	require.NoError(t, b.Subscribe("sub-late"))
	require.Len(t, b.ApplyEvents([]shipment.TrackingEvent{{Code: shipment.CodeGateIn, Location: "CNSHA", OccurredAt: departed.Add(-time.Hour)}}, nil), 1)
	assert.ErrorIs(t, repo.SaveWithLock(ctx, b), shared.ErrConcurrencyConflict)

	// the losing write left nothing behind
	stored, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, stored.Subscribed)
	assert.Equal(t, shipment.StatusInTransit, stored.Status)
	require.Len(t, stored.Events, 1)
	assert.Equal(t, shipment.CodeDeparted, stored.Events[0].Code)
	assert.Equal(t, a.Version, stored.Version)
}

func TestGormShipmentRepository_FindAll(t *testing.T) {
	repo := NewGormShipmentRepository(setupTestDB(t))
	ctx := context.Background()
	companyID := uuid.New()

	refs := []shipment.Reference{
		{Type: shipment.TrackingContainer, Number: "CSQU3054383"},
		{Type: shipment.TrackingBooking, Number: "BK2026001"},
		{Type: shipment.TrackingBillOfLading, Number: "COSU6312345670"},
	}
	for i, ref := range refs {
		s, err := shipment.NewShipment(companyID, uuid.New(), nil, ref)
		require.NoError(t, err)
		if i == 0 {
			require.NoError(t, s.Subscribe("sub-1"))
		}
		require.NoError(t, repo.Save(ctx, s))
	}
	other, err := shipment.NewShipment(uuid.New(), uuid.New(), nil, refs[1])
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, other))

	filter := shared.DefaultFilter()
	filter.Filters["company_id"] = companyID
	items, total, err := repo.FindAll(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, items, 3)

	filter.Filters["subscribed"] = true
	_, total, err = repo.FindAll(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	filter = shared.DefaultFilter()
	filter.Search = "bk2026"
	_, total, err = repo.FindAll(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}
