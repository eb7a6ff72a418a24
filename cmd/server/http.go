package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/freightport/backend/internal/infrastructure/config"
	"github.com/freightport/backend/internal/infrastructure/logger"
	"github.com/freightport/backend/internal/interfaces/http/middleware"
	"github.com/freightport/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

// serve runs the HTTP server, the event bus and the scheduler until ctx is
// cancelled, then drains them within shutdownTimeout.
func serve(ctx context.Context, cfg *config.Config, app *application, obs *observability, log *zap.Logger) error {
	engine, limiter := newEngine(cfg, app, obs, log)
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	if err := app.bus.Start(ctx); err != nil {
		return err
	}
	if err := app.scheduler.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if limiter != nil {
		g.Go(func() error {
			limiter.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(sctx)
		app.shutdown(sctx, log)
		obs.Shutdown(sctx, log)
		return err
	})
	return g.Wait()
}

// newEngine assembles the middleware chain and mounts the routes. The
// limiter is nil unless rate limiting is enabled.
func newEngine(cfg *config.Config, app *application, obs *observability, log *zap.Logger) (*gin.Engine, *middleware.RateLimiter) {
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Ignoring trusted proxies", zap.Error(err))
		}
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders

	// Order matters: the request id and recovery wrap everything, and
	// authentication runs before anything that labels by caller.
	chain := []gin.HandlerFunc{
		middleware.RequestID(),
		logger.Recovery(log),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
			SkipPaths:   []string{"/health", "/metrics"},
		}),
		logger.GinMiddleware(log),
		middleware.Secure(),
		middleware.CORSWithConfig(cors),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	}

	var limiter *middleware.RateLimiter
	if rl := cfg.HTTP; rl.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(float64(rl.RateLimitRequests)/rl.RateLimitWindow.Seconds(), rl.RateLimitRequests)
		chain = append(chain, middleware.RateLimit(limiter))
		log.Info("Rate limiting enabled", zap.Int("requests", rl.RateLimitRequests), zap.Duration("window", rl.RateLimitWindow))
	}

	auth := middleware.DefaultJWTConfig(app.jwt)
	auth.Revocations = app.revocations
	auth.Logger = log
	chain = append(chain,
		middleware.JWTAuthMiddlewareWithConfig(auth),
		middleware.SpanEnricher(),
		middleware.HTTPMetrics(obs.Meter("http.server")),
		middleware.Profiling(cfg.Telemetry.ProfilingEnabled),
	)
	engine.Use(chain...)

	handlers := app.handlers
	if cfg.HTTP.DocsEnabled {
		handlers.Docs = []gin.HandlerFunc{
			middleware.DocsGuard(true, cfg.HTTP.DocsAllowedIPs),
			ginSwagger.WrapHandler(swaggerFiles.Handler),
		}
	}
	r := router.New(engine, handlers, router.WithAPIVersion("v1"))
	r.Setup()
	log.Debug("Routes mounted", zap.Int("count", len(r.Routes())))
	return engine, limiter
}
