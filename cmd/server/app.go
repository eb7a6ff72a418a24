package main

import (
	"context"
	"fmt"

	billingapp "github.com/freightport/backend/internal/application/billing"
	"github.com/freightport/backend/internal/application/common"
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
	"github.com/freightport/backend/internal/infrastructure/ocr"
	"github.com/freightport/backend/internal/infrastructure/persistence"
	"github.com/freightport/backend/internal/infrastructure/policy"
	"github.com/freightport/backend/internal/infrastructure/scheduler"
	"github.com/freightport/backend/internal/infrastructure/storage"
	"github.com/freightport/backend/internal/infrastructure/telemetry"
	"github.com/freightport/backend/internal/infrastructure/tracking"
	"github.com/freightport/backend/internal/infrastructure/wechat"
	"github.com/freightport/backend/internal/interfaces/http/handler"
	"github.com/freightport/backend/internal/interfaces/http/router"
	"github.com/freightport/backend/internal/interfaces/http/ws"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// application is the wired dependency graph plus whatever needs stopping
type application struct {
	jwt         *auth.JWTService
	revocations auth.Revocations
	stores      *cache.Stores
	bus         *event.Bus
	kafka       *kafka.Writer
	hub         *ws.Hub
	scheduler   *scheduler.Scheduler
	ops         *telemetry.OpsMetrics
	business    *telemetry.BusinessMetrics
	handlers    router.Handlers
}

func buildApplication(ctx context.Context, cfg *config.Config, db *persistence.Database, obs *observability, log *zap.Logger) (*application, error) {
	app := &application{
		ops: telemetry.NewOpsMetrics(),
		bus: event.NewBus(log),
		hub: ws.NewHub(cfg.HTTP.CORSAllowOrigins, log.Named("ws")),
	}

	// Repositories
	users := persistence.NewGormUserRepository(db.DB)
	companies := persistence.NewGormCompanyRepository(db.DB)
	orders := persistence.NewGormOrderRepository(db.DB)
	shipments := persistence.NewGormShipmentRepository(db.DB)
	bills := persistence.NewGormBillRepository(db.DB)
	notifications := persistence.NewGormNotificationRepository(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB)

	// Caches and token revocation
	app.stores = cache.NewStores(ctx, cfg.Redis, log)
	if app.stores.Client != nil {
		app.revocations = auth.NewRedisRevocations(app.stores.Client)
	} else {
		app.revocations = auth.NewMemoryRevocations()
	}
	app.jwt = auth.NewJWTService(cfg.JWT)

	objects, err := newObjectStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	if meter := obs.Meter("freightport"); meter != nil {
		app.business, err = telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:       meter,
			Logger:      log,
			Receivables: telemetry.NewBillReceivablesProvider(bills),
		})
		if err != nil {
			return nil, fmt.Errorf("business metrics: %w", err)
		}
		app.business.StartPeriodicCollection(ctx, cfg.Telemetry.MetricsInterval)
	}
	var orderMetrics orderapp.Metrics
	var billMetrics billingapp.Metrics
	if app.business != nil {
		orderMetrics, billMetrics = app.business, app.business
	}

	// Outbound integrations. Optional ones stay nil interfaces when disabled.
	var (
		sessions  identityapp.WechatSessions
		sender    notificationapp.Sender
		templates notificationapp.Templates
	)
	if cfg.Wechat.Enabled {
		wx, err := wechat.NewClient(cfg.Wechat, app.stores.Values, wechat.WithLogger(log.Named("wechat")))
		if err != nil {
			return nil, fmt.Errorf("wechat client: %w", err)
		}
		sessions, sender = wx, wx
		if cfg.Wechat.TemplateFile != "" {
			catalogue, err := wechat.LoadTemplates(cfg.Wechat.TemplateFile)
			if err != nil {
				return nil, fmt.Errorf("wechat templates: %w", err)
			}
			templates = catalogue
		}
	}

	var recognizer ocrapp.Recognizer
	if cfg.OCR.Enabled {
		recognizer = ocr.NewClient(cfg.OCR, app.stores.Values, log.Named("ocr"))
	}

	var approver companyapp.AutoApprover
	rule, err := policy.CompileOnboardingRule(cfg.Onboarding.AutoApproveRule)
	if err != nil {
		return nil, err
	}
	if rule.Enabled() {
		approver = rule
		log.Info("Company auto approval enabled", zap.String("rule", rule.Expression()))
	}

	defaultCredit := decimal.Zero
	if s := cfg.Onboarding.DefaultCreditLimit; s != "" {
		if defaultCredit, err = decimal.NewFromString(s); err != nil {
			return nil, fmt.Errorf("onboarding default credit limit %q: %w", s, err)
		}
	}

	renderer := export.NewRenderer(export.Issuer{Name: cfg.App.Name})
	tracker := tracking.NewClient(cfg.Tracking, log.Named("tracking"))

	// Application services
	authService := identityapp.NewAuthService(users, app.jwt, app.revocations, sessions, identityapp.DefaultAuthServiceConfig(), log)
	userService := identityapp.NewUserService(users, app.revocations, cfg.JWT.RefreshTokenExpiration, log)
	companyService := companyapp.NewService(companies, scope, approver, defaultCredit, app.bus, log)
	orderService := orderapp.NewService(orders, companies, scope, renderer, orderMetrics, app.bus, log)
	shipmentService := shipmentapp.NewService(shipments, orders, tracker, app.stores.Idempotency, app.ops, app.bus, log)
	billService := billingapp.NewService(bills, orders, companies, scope, renderer, objects, billMetrics, app.bus, log)
	notificationService := notificationapp.NewService(notifications, users, sender, templates, app.hub, app.ops, log)
	ocrService := ocrapp.NewService(recognizer, objects, log)
	fileService := filesapp.NewService(objects, cfg.Storage.PresignExpiry, log)
	dashboardService := dashboardapp.NewService(orders, bills, companies, log)

	if cfg.Bootstrap.AdminPassword != "" {
		created, err := userService.EnsureAdmin(ctx, identityapp.CreateStaffInput{
			Username: cfg.Bootstrap.AdminUsername,
			Email:    cfg.Bootstrap.AdminEmail,
			Password: cfg.Bootstrap.AdminPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
		if created {
			log.Warn("Created bootstrap administrator, change its password",
				zap.String("username", cfg.Bootstrap.AdminUsername))
		}
	}

	// Event handlers
	notifier := event.NewIdempotentHandler("notifications",
		notificationapp.NewEventHandler(notificationService), app.stores.Idempotency, 0, log)
	app.bus.Subscribe(notifier)
	if cfg.Kafka.Enabled {
		app.kafka = event.NewKafkaWriter(cfg.Kafka, log)
		app.bus.Subscribe(event.NewKafkaForwarder(app.kafka, log))
		log.Info("Forwarding domain events to kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}
	log.Info("Event handlers registered", zap.Strings("notification_events", notifier.EventTypes()))

	app.scheduler, err = scheduler.New(cfg.Scheduler, billService, notificationService, app.ops, log.Named("scheduler"))
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	checks := []handler.HealthCheck{{Name: "database", Pinger: db}}
	if rdb := app.stores.Client; rdb != nil {
		checks = append(checks, handler.HealthCheck{Name: "redis", Pinger: handler.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})})
	}

	app.handlers = router.Handlers{
		Auth:          handler.NewAuthHandler(authService),
		Users:         handler.NewUserHandler(userService),
		Companies:     handler.NewCompanyHandler(companyService),
		Orders:        handler.NewOrderHandler(orderService, shipmentService),
		Tracking:      handler.NewTrackingHandler(shipmentService),
		Bills:         handler.NewBillHandler(billService),
		Notifications: handler.NewNotificationHandler(notificationService),
		OCR:           handler.NewOCRHandler(ocrService),
		Files:         handler.NewFileHandler(fileService),
		Dashboard:     handler.NewDashboardHandler(dashboardService),
		System:        handler.NewSystemHandler(Version, checks...),
		Socket:        app.hub.Serve,
		Metrics:       app.ops.Handler(),
	}
	return app, nil
}

func newObjectStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (common.ObjectStorage, error) {
	if !cfg.Storage.Enabled {
		log.Warn("Object storage disabled, keeping files in memory")
		return storage.NewStubObjectStorage(), nil
	}
	s3, err := storage.NewS3ObjectStorage(&cfg.Storage, storage.WithLogger(log.Named("storage")))
	if err != nil {
		return nil, fmt.Errorf("object storage: %w", err)
	}
	if err := s3.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("object storage bucket %s: %w", s3.Bucket(), err)
	}
	return s3, nil
}

// shutdown stops background work in dependency order: producers first, the
// bus and its sinks after.
func (a *application) shutdown(ctx context.Context, log *zap.Logger) {
	if err := a.scheduler.Stop(ctx); err != nil {
		log.Error("Error stopping scheduler", zap.Error(err))
	}
	a.hub.Close()
	if err := a.bus.Stop(ctx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			log.Error("Error closing kafka writer", zap.Error(err))
		}
	}
	if a.business != nil {
		a.business.Stop()
	}
	if err := a.stores.Close(); err != nil {
		log.Error("Error closing caches", zap.Error(err))
	}
}
