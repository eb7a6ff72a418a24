package integration

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
	dashboardapp "github.com/freightport/backend/internal/application/dashboard"
	filesapp "github.com/freightport/backend/internal/application/files"
	identityapp "github.com/freightport/backend/internal/application/identity"
	notificationapp "github.com/freightport/backend/internal/application/notification"
	ocrapp "github.com/freightport/backend/internal/application/ocr"
	orderapp "github.com/freightport/backend/internal/application/order"
	shipmentapp "github.com/freightport/backend/internal/application/shipment"
	"github.com/freightport/backend/internal/infrastructure/auth"
	"github.com/freightport/backend/internal/infrastructure/cache"
	"github.com/freightport/backend/internal/infrastructure/config"
	"github.com/freightport/backend/internal/infrastructure/event"
	"github.com/freightport/backend/internal/infrastructure/export"
	"github.com/freightport/backend/internal/infrastructure/logger"
	"github.com/freightport/backend/internal/infrastructure/persistence"
	"github.com/freightport/backend/internal/infrastructure/storage"
	"github.com/freightport/backend/internal/infrastructure/telemetry"
	"github.com/freightport/backend/internal/infrastructure/tracking"
	"github.com/freightport/backend/internal/interfaces/http/handler"
	"github.com/freightport/backend/internal/interfaces/http/middleware"
	"github.com/freightport/backend/internal/interfaces/http/router"
	"github.com/freightport/backend/internal/interfaces/http/ws"
	"github.com/freightport/backend/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

const (
	webhookSecret = "whsec-integration"
	adminPassword = "Bootstrap123"
)

// testServer is the full HTTP stack over a real database
type testServer struct {
	t      *testing.T
	server *httptest.Server
	hub    *ws.Hub
	bills  *billingapp.Service
	events *testutil.EventRecorder
}

// newTestServer wires every service the way cmd/server does, with in-memory
// caches, stub object storage and trackerURL as the tracking provider.
func newTestServer(t *testing.T, db *persistence.Database, trackerURL string) *testServer {
	t.Helper()
	ctx := context.Background()
	log := zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))

	users := persistence.NewGormUserRepository(db.DB)
	companies := persistence.NewGormCompanyRepository(db.DB)
	orders := persistence.NewGormOrderRepository(db.DB)
	shipments := persistence.NewGormShipmentRepository(db.DB)
	bills := persistence.NewGormBillRepository(db.DB)
	notifications := persistence.NewGormNotificationRepository(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB)

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "integration-secret-long-enough-for-hs256",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "freightport-integration",
		MaxRefreshCount:        10,
	})
	revocations := auth.NewMemoryRevocations()
	idempotency := cache.NewInMemoryIdempotencyStore()
	objects := storage.NewStubObjectStorage()
	renderer := export.NewRenderer(export.Issuer{Name: "Freightport Integration"})
	tracker := tracking.NewClient(config.TrackingConfig{
		BaseURL:       trackerURL,
		APIKey:        "test-key",
		WebhookSecret: webhookSecret,
		Timeout:       2 * time.Second,
	}, log)

	ops := telemetry.NewOpsMetrics()
	bus := event.NewBus(log)
	hub := ws.NewHub(nil, log)
	t.Cleanup(hub.Close)

	authService := identityapp.NewAuthService(users, jwtService, revocations, nil, identityapp.DefaultAuthServiceConfig(), log)
	userService := identityapp.NewUserService(users, revocations, time.Hour, log)
	companyService := companyapp.NewService(companies, scope, nil, decimal.Zero, bus, log)
	orderService := orderapp.NewService(orders, companies, scope, renderer, nil, bus, log)
	shipmentService := shipmentapp.NewService(shipments, orders, tracker, idempotency, ops, bus, log)
	billService := billingapp.NewService(bills, orders, companies, scope, renderer, objects, nil, bus, log)
	notificationService := notificationapp.NewService(notifications, users, nil, nil, hub, ops, log)

	created, err := userService.EnsureAdmin(ctx, identityapp.CreateStaffInput{Username: "admin", Password: adminPassword})
	require.NoError(t, err)
	require.True(t, created)

	bus.Subscribe(event.NewIdempotentHandler("notifications",
		notificationapp.NewEventHandler(notificationService), idempotency, time.Hour, log))
	events := testutil.NewEventRecorder()
	bus.Subscribe(events)
	require.NoError(t, bus.Start(ctx))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.BodyLimit(1 << 20))
	jwtCfg := middleware.DefaultJWTConfig(jwtService)
	jwtCfg.Revocations = revocations
	jwtCfg.Logger = log
	engine.Use(middleware.JWTAuthMiddlewareWithConfig(jwtCfg))

	router.New(engine, router.Handlers{
		Auth:          handler.NewAuthHandler(authService),
		Users:         handler.NewUserHandler(userService),
		Companies:     handler.NewCompanyHandler(companyService),
		Orders:        handler.NewOrderHandler(orderService, shipmentService),
		Tracking:      handler.NewTrackingHandler(shipmentService),
		Bills:         handler.NewBillHandler(billService),
		Notifications: handler.NewNotificationHandler(notificationService),
		OCR:           handler.NewOCRHandler(ocrapp.NewService(nil, objects, log)),
		Files:         handler.NewFileHandler(filesapp.NewService(objects, time.Minute, log)),
		Dashboard:     handler.NewDashboardHandler(dashboardapp.NewService(orders, bills, companies, log)),
		System:        handler.NewSystemHandler("integration", handler.HealthCheck{Name: "database", Pinger: db}),
		Socket:        hub.Serve,
		Metrics:       ops.Handler(),
	}).Setup()

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return &testServer{t: t, server: srv, hub: hub, bills: billService, events: events}
}

// session is an API client holding one user's tokens
type session struct {
	s       *testServer
	userID  uuid.UUID
	access  string
	refresh string
}

func (s *testServer) anonymous() *session {
	return &session{s: s}
}

func (s *testServer) login(username, password string) *session {
	s.t.Helper()
	resp := s.anonymous().do(http.MethodPost, "/api/v1/auth/login", handler.LoginRequest{Username: username, Password: password})
	require.Equal(s.t, http.StatusOK, resp.Code, string(resp.Body))
	var out identityapp.Session
	resp.decode(s.t, &out)
	return &session{s: s, userID: out.User.ID, access: out.Token.AccessToken, refresh: out.Token.RefreshToken}
}

func (s *testServer) admin() *session {
	return s.login("admin", adminPassword)
}

// register signs a customer up and logs in
func (s *testServer) register(username string) *session {
	s.t.Helper()
	resp := s.anonymous().do(http.MethodPost, "/api/v1/auth/register", handler.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "Secret123",
	})
	require.Equal(s.t, http.StatusCreated, resp.Code, string(resp.Body))
	return s.login(username, "Secret123")
}

// reissue swaps the tokens so the access token carries the current company
func (c *session) reissue() {
	t := c.s.t
	t.Helper()
	resp := c.do(http.MethodPost, "/api/v1/auth/refresh", handler.RefreshTokenRequest{RefreshToken: c.refresh})
	require.Equal(t, http.StatusOK, resp.Code, string(resp.Body))
	var out identityapp.Session
	resp.decode(t, &out)
	c.access, c.refresh = out.Token.AccessToken, out.Token.RefreshToken
}

type apiResponse struct {
	testutil.Envelope
	Code   int         `json:"-"`
	Header http.Header `json:"-"`
	Body   []byte      `json:"-"`
}

func (r apiResponse) decode(t *testing.T, v any) {
	t.Helper()
	r.Decode(t, v)
}

func (r apiResponse) errorCode() string {
	return r.ErrorCode()
}

func (c *session) do(method, path string, body any) apiResponse {
	return c.send(method, path, body, nil)
}

func (c *session) send(method, path string, body any, header http.Header) apiResponse {
	t := c.s.t
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.s.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.access != "" {
		req.Header.Set(middleware.AuthHeaderKey, middleware.BearerPrefix+c.access)
	}
	for k, v := range header {
		req.Header[k] = v
	}

	res, err := c.s.server.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	out := apiResponse{Code: res.StatusCode, Header: res.Header, Body: raw}
	if len(raw) > 0 && bytes.HasPrefix([]byte(res.Header.Get("Content-Type")), []byte("application/json")) {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return out
}
