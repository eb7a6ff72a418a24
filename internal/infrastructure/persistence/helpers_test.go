package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/freightport/backend/internal/domain/company"
	"github.com/freightport/backend/internal/domain/order"
	"github.com/freightport/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupTestDB opens a migrated in-memory SQLite database
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(context.Background(), &config.DatabaseConfig{Driver: "sqlite", DBName: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(context.Background()))
	t.Cleanup(func() { _ = db.Close() })
	return db.DB
}

func newApprovedCompany(t *testing.T, licenseNo string, limit int64) *company.Company {
	t.Helper()
	c, err := company.Submit(company.Profile{
		Name:         "Ningbo Trading Co",
		LicenseNo:    licenseNo,
		ContactName:  "Li Wei",
		ContactPhone: "13800000000",
	}, uuid.New())
	require.NoError(t, err)
	require.NoError(t, c.Approve(uuid.New(), decimal.NewFromInt(limit)))
	return c
}

func newTestOrder(t *testing.T, companyID uuid.UUID, number string) *order.Order {
	t.Helper()
	ready := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)
	o, err := order.NewOrder(companyID, uuid.New(), number, order.Cargo{
		ServiceType:      order.ServiceSeaFCL,
		OriginPort:       "CNSHA",
		DestinationPort:  "USLAX",
		CargoDescription: "Furniture",
		ContainerType:    order.Container40HQ,
		ContainerQty:     2,
		GrossWeightKg:    decimal.NewFromInt(18000),
		VolumeCBM:        decimal.NewFromInt(120),
		Incoterm:         "FOB",
		CargoReadyDate:   &ready,
	})
	require.NoError(t, err)
	return o
}
