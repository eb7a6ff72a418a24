//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/freightport/backend/internal/infrastructure/migration"
	"github.com/freightport/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// The versioned schema must serve the same flows the GORM models do
func TestPostgres_MigratedSchemaServesBooking(t *testing.T) {
	db := NewPostgresDB(t)
	s := newTestServer(t, db, "")

	cust, company := onboard(t, s, "shantou.toys", "91440500MA4W2K7C5R", "40000")
	assert.Equal(t, "APPROVED", company.Status)

	o := book(t, cust)
	resp := s.admin().do(http.MethodPost, "/api/v1/orders/"+o.ID.String()+"/confirm", map[string]string{"quoted_amount": "15000"})
	require.Equal(t, http.StatusOK, resp.Code, string(resp.Body))

	// a duplicate license hits the unique index
	other := s.register("copycat")
	resp = other.do(http.MethodPost, "/api/v1/companies", map[string]string{
		"name": "Copycat", "license_no": "91440500MA4W2K7C5R", "contact_name": "X", "contact_phone": "1",
	})
	assert.Equal(t, http.StatusConflict, resp.Code)

	health := s.anonymous().do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestPostgres_MigrationsRoundTrip(t *testing.T) {
	db := NewPostgresDB(t)
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)

	m, err := migration.New(sqlDB, migration.Source{FS: migrations.FS}, zaptest.NewLogger(t))
	require.NoError(t, err)

	entries, err := migration.ListMigrations(migrations.FS)
	require.NoError(t, err)
	latest := entries[len(entries)-1].Version

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, latest, version)
	assert.False(t, dirty)

	require.NoError(t, m.Down())
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Zero(t, version)

	var tables int64
	require.NoError(t, db.DB.Raw(`SELECT count(*) FROM pg_tables WHERE schemaname = 'public' AND tablename <> 'schema_migrations'`).Scan(&tables).Error)
	assert.Zero(t, tables)

	require.NoError(t, m.Up())
	require.NoError(t, m.Up(), "re-running up is a no-op")
}
