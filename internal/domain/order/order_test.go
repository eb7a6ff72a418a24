package order

import (
	"testing"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fclCargo() Cargo {
	return Cargo{
		ServiceType:      ServiceSeaFCL,
		OriginPort:       "cnsha",
		DestinationPort:  "USLAX",
		CargoDescription: "  Furniture, flat packed ",
		ContainerType:    Container40HQ,
		ContainerQty:     2,
		GrossWeightKg:    decimal.NewFromInt(18000),
		VolumeCBM:        decimal.NewFromInt(120),
		Incoterm:         "fob",
	}
}

func newPending(t *testing.T) *Order {
	t.Helper()
	o, err := NewOrder(uuid.New(), uuid.New(), "FO-2026-00001", fclCargo())
	require.NoError(t, err)
	return o
}

func TestStatus_CanTransitionTo(t *testing.T) {
	allowed := map[Status][]Status{
		StatusPending:    {StatusConfirmed, StatusRejected, StatusCancelled},
		StatusConfirmed:  {StatusProcessing, StatusCancelled},
		StatusProcessing: {StatusCompleted},
	}
	for _, from := range AllStatuses() {
		for _, to := range AllStatuses() {
			expected := false
			for _, a := range allowed[from] {
				if a == to {
					expected = true
				}
			}
			assert.Equal(t, expected, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
	assert.False(t, StatusConfirmed.IsTerminal())
	assert.False(t, Status("SHIPPED").IsValid())
}

func TestNewOrder(t *testing.T) {
	companyID := uuid.New()
	creator := uuid.New()

	o, err := NewOrder(companyID, creator, "FO-2026-00001", fclCargo())
	require.NoError(t, err)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, companyID, o.CompanyID)
	assert.Equal(t, "CNSHA", o.OriginPort)
	assert.Equal(t, "Furniture, flat packed", o.CargoDescription)
	assert.Equal(t, "FOB", o.Incoterm)
	assert.True(t, o.QuotedAmount.IsZero())
	require.Len(t, o.History, 1)
	assert.Equal(t, Status(""), o.History[0].FromStatus)
	assert.Equal(t, StatusPending, o.History[0].ToStatus)

	events := o.PendingEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "order.pending", events[0].EventType())
	assert.Equal(t, companyID, events[0].CompanyID())
}

func TestNewOrder_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Cargo)
		code   string
	}{
		{"unknown service", func(c *Cargo) { c.ServiceType = "SPACE" }, "INVALID_SERVICE_TYPE"},
		{"bad port", func(c *Cargo) { c.OriginPort = "SHANGHAI" }, "INVALID_PORT"},
		{"same ports", func(c *Cargo) { c.DestinationPort = "CNSHA" }, "INVALID_PORT"},
		{"missing cargo", func(c *Cargo) { c.CargoDescription = "" }, "INVALID_CARGO"},
		{"fcl without containers", func(c *Cargo) { c.ContainerQty = 0 }, "INVALID_CONTAINER"},
		{"zero weight", func(c *Cargo) { c.GrossWeightKg = decimal.Zero }, "INVALID_WEIGHT"},
		{"bad incoterm", func(c *Cargo) { c.Incoterm = "XYZ" }, "INVALID_INCOTERM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := fclCargo()
			tt.mutate(&c)
			_, err := NewOrder(uuid.New(), uuid.New(), "FO-2026-00001", c)
			var de *shared.DomainError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.code, de.Code)
		})
	}

	t.Run("air cargo needs no containers", func(t *testing.T) {
		c := fclCargo()
		c.ServiceType = ServiceAir
		c.ContainerType = ""
		c.ContainerQty = 0
		o, err := NewOrder(uuid.New(), uuid.New(), "FO-2026-00002", c)
		require.NoError(t, err)
		assert.Equal(t, ContainerNone, o.ContainerType)
	})
}

func TestOrder_Update(t *testing.T) {
	o := newPending(t)

	c := fclCargo()
	c.ContainerQty = 3
	require.NoError(t, o.Update(c))
	assert.Equal(t, 3, o.ContainerQty)
	assert.Equal(t, 2, o.Version)

	require.NoError(t, o.Confirm(uuid.New(), decimal.NewFromInt(3000), "usd"))
	err := o.Update(c)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestOrder_HappyPath(t *testing.T) {
	o := newPending(t)
	op := uuid.New()
	o.ClearEvents()

	require.NoError(t, o.Confirm(op, decimal.NewFromInt(4200), "usd"))
	assert.Equal(t, StatusConfirmed, o.Status)
	assert.Equal(t, "USD", o.Currency)
	assert.True(t, o.CreditReserved.Equal(decimal.NewFromInt(4200)))
	assert.NotNil(t, o.ConfirmedAt)

	require.NoError(t, o.StartProcessing(op))
	require.NoError(t, o.Complete(op))
	assert.Equal(t, StatusCompleted, o.Status)
	assert.NotNil(t, o.CompletedAt)

	require.Len(t, o.History, 4)
	assert.Equal(t, StatusProcessing, o.History[3].FromStatus)
	assert.Equal(t, StatusCompleted, o.History[3].ToStatus)
	assert.Equal(t, &op, o.History[3].OperatorID)

	events := o.PendingEvents()
	require.Len(t, events, 3)
	assert.Equal(t, "order.confirmed", events[0].EventType())
	assert.Equal(t, "order.processing", events[1].EventType())
	assert.Equal(t, "order.completed", events[2].EventType())

	_, err := o.Cancel(op, "too late")
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestOrder_ConfirmValidation(t *testing.T) {
	o := newPending(t)
	assert.Error(t, o.Confirm(uuid.New(), decimal.Zero, "USD"))
	assert.Error(t, o.Confirm(uuid.New(), decimal.NewFromInt(10), "dollars"))
	assert.Equal(t, StatusPending, o.Status)
}

func TestOrder_Reject(t *testing.T) {
	o := newPending(t)
	assert.Error(t, o.Reject(uuid.New(), ""))
	require.NoError(t, o.Reject(uuid.New(), "No vessel space"))
	assert.Equal(t, StatusRejected, o.Status)
	assert.Equal(t, "No vessel space", o.RejectReason)

	assert.ErrorIs(t, o.StartProcessing(uuid.New()), shared.ErrInvalidState)
}

func TestOrder_Cancel(t *testing.T) {
	t.Run("pending order releases nothing", func(t *testing.T) {
		o := newPending(t)
		released, err := o.Cancel(uuid.New(), "changed plans")
		require.NoError(t, err)
		assert.True(t, released.IsZero())
		assert.Equal(t, StatusCancelled, o.Status)
		assert.NotNil(t, o.CancelledAt)
	})

	t.Run("confirmed order releases reservation", func(t *testing.T) {
		o := newPending(t)
		require.NoError(t, o.Confirm(uuid.New(), decimal.NewFromInt(900), "CNY"))
		released, err := o.Cancel(uuid.New(), "cargo not ready")
		require.NoError(t, err)
		assert.True(t, released.Equal(decimal.NewFromInt(900)))
		assert.True(t, o.CreditReserved.IsZero())
	})

	t.Run("reason optional", func(t *testing.T) {
		o := newPending(t)
		_, err := o.Cancel(uuid.New(), " ")
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, o.Status)
		assert.Empty(t, o.CancelReason)
		assert.Empty(t, o.History[len(o.History)-1].Reason)
	})

	t.Run("processing order cannot be cancelled", func(t *testing.T) {
		o := newPending(t)
		require.NoError(t, o.Confirm(uuid.New(), decimal.NewFromInt(900), "CNY"))
		require.NoError(t, o.StartProcessing(uuid.New()))
		_, err := o.Cancel(uuid.New(), "stop")
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})
}

func TestOrder_Predicates(t *testing.T) {
	o := newPending(t)
	assert.True(t, o.IsBillable())
	assert.False(t, o.IsTrackable())

	require.NoError(t, o.Confirm(uuid.New(), decimal.NewFromInt(1), "CNY"))
	assert.True(t, o.IsTrackable())

	_, err := o.Cancel(uuid.New(), "x")
	require.NoError(t, err)
	assert.False(t, o.IsBillable())
	assert.False(t, o.IsTrackable())
}

func TestEventTypes(t *testing.T) {
	assert.Contains(t, AllEventTypes(), "order.rejected")
	assert.Len(t, AllEventTypes(), 6)
}
