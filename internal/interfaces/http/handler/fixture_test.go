package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	billingapp "github.com/freightport/backend/internal/application/billing"
	companyapp "github.com/freightport/backend/internal/application/company"
	identityapp "github.com/freightport/backend/internal/application/identity"
	orderapp "github.com/freightport/backend/internal/application/order"
	shipmentapp "github.com/freightport/backend/internal/application/shipment"
	"github.com/freightport/backend/internal/domain/identity"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/infrastructure/auth"
	"github.com/freightport/backend/internal/infrastructure/cache"
	"github.com/freightport/backend/internal/infrastructure/config"
	"github.com/freightport/backend/internal/infrastructure/export"
	"github.com/freightport/backend/internal/infrastructure/persistence"
	"github.com/freightport/backend/internal/infrastructure/tracking"
	"github.com/freightport/backend/internal/interfaces/http/dto"
	"github.com/freightport/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

const (
	testWebhookSecret = "whsec-test"
	testLicense       = "91310000MA1FL8XQ3K"
	otherLicense      = "91440300MA5F0XYP1R"
)

// testEnv wires the application services over an in-memory SQLite database
type testEnv struct {
	t           *testing.T
	db          *gorm.DB
	users       *persistence.GormUserRepository
	jwt         *auth.JWTService
	revocations *auth.MemoryRevocations
	auth        *identityapp.AuthService
	userSvc     *identityapp.UserService
	company     *companyapp.Service
	orders      *orderapp.Service
	tracking    *shipmentapp.Service
	bills       *billingapp.Service
	admin       shared.Actor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := persistence.Open(context.Background(), &config.DatabaseConfig{Driver: "sqlite", DBName: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(context.Background()))
	t.Cleanup(func() { _ = db.Close() })

	log := zap.NewNop()
	users := persistence.NewGormUserRepository(db.DB)
	companies := persistence.NewGormCompanyRepository(db.DB)
	orders := persistence.NewGormOrderRepository(db.DB)
	bills := persistence.NewGormBillRepository(db.DB)
	shipments := persistence.NewGormShipmentRepository(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB)
	renderer := export.NewRenderer(export.Issuer{Name: "FreightPort Test"})

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "handler-test-secret-long-enough-for-hs256",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "freightport-test",
		MaxRefreshCount:        3,
	})
	revocations := auth.NewMemoryRevocations()
	tracker := tracking.NewClient(config.TrackingConfig{WebhookSecret: testWebhookSecret}, log)

	env := &testEnv{
		t:           t,
		db:          db.DB,
		users:       users,
		jwt:         jwtService,
		revocations: revocations,
		auth:        identityapp.NewAuthService(users, jwtService, revocations, nil, identityapp.DefaultAuthServiceConfig(), log),
		userSvc:     identityapp.NewUserService(users, revocations, time.Hour, log),
		company:     companyapp.NewService(companies, scope, nil, decimal.Zero, nil, log),
		orders:      orderapp.NewService(orders, companies, scope, renderer, nil, nil, log),
		tracking:    shipmentapp.NewService(shipments, orders, tracker, cache.NewInMemoryIdempotencyStore(), nil, nil, log),
		bills:       billingapp.NewService(bills, orders, companies, scope, renderer, nil, nil, nil, log),
	}
	env.admin = env.staff(shared.RoleAdmin)
	return env
}

// trackingAt builds a shipment service whose provider lives at baseURL
func (e *testEnv) trackingAt(baseURL string) *shipmentapp.Service {
	client := tracking.NewClient(config.TrackingConfig{
		BaseURL:       baseURL,
		APIKey:        "test-key",
		WebhookSecret: testWebhookSecret,
		Timeout:       2 * time.Second,
	}, zap.NewNop())
	return shipmentapp.NewService(
		persistence.NewGormShipmentRepository(e.db),
		persistence.NewGormOrderRepository(e.db),
		client, cache.NewInMemoryIdempotencyStore(), nil, nil, zap.NewNop())
}

// staff stores a staff user and returns its actor
func (e *testEnv) staff(role shared.Role) shared.Actor {
	e.t.Helper()
	name := "staff" + uuid.NewString()[:8]
	u, err := identity.NewUser(name, name+"@freightport.test", "Staff1234", role)
	require.NoError(e.t, err)
	require.NoError(e.t, e.users.Create(context.Background(), u))
	return shared.Actor{UserID: u.ID, Username: u.Username, Role: role}
}

// customer registers a customer whose company is approved with limit
func (e *testEnv) customer(license string, limit int64) shared.Actor {
	e.t.Helper()
	ctx := context.Background()
	name := "cust" + uuid.NewString()[:8]
	u, err := identity.NewCustomer(name, name+"@example.com", "Secret123")
	require.NoError(e.t, err)
	require.NoError(e.t, e.users.Create(ctx, u))
	a := shared.Actor{UserID: u.ID, Username: u.Username, Role: shared.RoleCustomer}

	c, err := e.company.Submit(ctx, a, companyapp.ProfileInput{
		Name:         "Ningbo Trading " + name,
		LicenseNo:    license,
		ContactName:  "Li Wei",
		ContactPhone: "13800000000",
	})
	require.NoError(e.t, err)
	_, err = e.company.Approve(ctx, e.admin, c.ID, decimal.NewFromInt(limit))
	require.NoError(e.t, err)

	a.CompanyID = &c.ID
	return a
}

func subjectOf(a shared.Actor) auth.Subject {
	return auth.Subject{UserID: a.UserID, Username: a.Username, Role: a.Role, CompanyID: a.CompanyID}
}

// withActor stands in for the JWT middleware
func withActor(a shared.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ActorKey, a)
		c.Next()
	}
}

type testResponse struct {
	Code    int             `json:"-"`
	Header  http.Header     `json:"-"`
	Body    []byte          `json:"-"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

func do(t *testing.T, r http.Handler, method, path string, body any) testResponse {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	resp := testResponse{Code: w.Code, Header: w.Header(), Body: w.Body.Bytes()}
	if ct := w.Header().Get("Content-Type"); len(resp.Body) > 0 && bytes.HasPrefix([]byte(ct), []byte("application/json")) {
		require.NoError(t, json.Unmarshal(resp.Body, &resp))
	}
	return resp
}

func (r testResponse) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Data, v))
}

func (r testResponse) errorCode() string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Code
}

// routes builds an engine whose requests run as a
func routes(a shared.Actor, register func(g *gin.RouterGroup)) *gin.Engine {
	r := gin.New()
	register(r.Group("/api/v1", withActor(a)))
	return r
}
