package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/freightport/backend/internal/infrastructure/config"
	"github.com/freightport/backend/internal/infrastructure/logger"
	"github.com/freightport/backend/internal/infrastructure/persistence"
	"github.com/freightport/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"

	_ "github.com/freightport/backend/docs"
)

//	@title			Freightport API
//	@version		1.0
//	@description	Freight forwarding portal: company onboarding, bookings, container tracking, billing and notifications.

//	@contact.name	Freightport API Support
//	@contact.email	api@freightport.example

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

// Version is set with -ldflags "-X main.Version=..."
var Version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs, err := setupTelemetry(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log = obs.bridgeLogger(cfg, log)
	defer func() { _ = log.Sync() }()

	log.Info("Starting Freightport API",
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", Version),
	)
	if err := run(ctx, cfg, obs, log); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		return
	}
	log.Info("Server exited")
}

func run(ctx context.Context, cfg *config.Config, obs *observability, log *zap.Logger) error {
	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if inst := instrumentDatabase(db, cfg, obs, log); inst != nil {
		defer func() { _ = inst.Close() }()
	}

	app, err := buildApplication(ctx, cfg, db, obs, log)
	if err != nil {
		return err
	}
	return serve(ctx, cfg, app, obs, log)
}

// openDatabase connects through a zap-backed GORM logger and, when enabled,
// migrates the schema.
func openDatabase(ctx context.Context, cfg *config.Config, log *zap.Logger) (*persistence.Database, error) {
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.Open(ctx, &cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info("Database schema migrated")
	}
	log.Info("Database connected", zap.String("driver", db.Driver))
	return db, nil
}

// instrumentDatabase attaches statement tracing and pool metrics when
// telemetry is on. A non-nil result must be closed.
func instrumentDatabase(db *persistence.Database, cfg *config.Config, obs *observability, log *zap.Logger) *telemetry.DBInstrumentation {
	if !cfg.Telemetry.Enabled {
		return nil
	}
	inst, err := telemetry.InstrumentDB(db.DB, telemetry.DBConfig{
		System:    db.Driver,
		Trace:     cfg.Telemetry.DBTraceEnabled,
		SlowQuery: cfg.Telemetry.DBSlowQueryThresh,
	}, obs.Meter("db.client"), log)
	if err != nil {
		log.Warn("Database instrumentation unavailable", zap.Error(err))
		return nil
	}
	return inst
}
