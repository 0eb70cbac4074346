package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	billingapp "github.com/restopos/backend/internal/application/billing"
	"github.com/restopos/backend/internal/domain/shared"
	"github.com/restopos/backend/internal/infrastructure/cache"
	"github.com/restopos/backend/internal/infrastructure/config"
	"github.com/restopos/backend/internal/infrastructure/event"
	"github.com/restopos/backend/internal/infrastructure/logger"
	"github.com/restopos/backend/internal/infrastructure/persistence"
	"github.com/restopos/backend/internal/infrastructure/telemetry"
	"github.com/restopos/backend/internal/interfaces/http/handler"
	"github.com/restopos/backend/internal/interfaces/http/middleware"
	"github.com/restopos/backend/internal/interfaces/http/router"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting RestoPOS Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize tracing
	ctx := context.Background()
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Trace SQL statements through the same provider as HTTP spans
	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled
	dbTracing.DBName = cfg.Database.DBName
	if err := telemetry.RegisterDBTracing(db.DB, dbTracing, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Initialize repositories
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	settingRepo := persistence.NewGormSettingRepository(db.DB)

	// Optional Redis mirror for the exchange rate
	var redisClient *redis.Client
	rateOpts := []cache.SettingRateProviderOption{cache.WithLogger(log)}
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("Redis unavailable, continuing without rate mirror", zap.Error(err))
			redisClient = nil
		} else {
			rateOpts = append(rateOpts, cache.WithRedisMirror(redisClient, cfg.Billing.RateCacheTTL))
			log.Info("Redis connected successfully", zap.String("addr", cfg.Redis.Addr()))
		}
	}
	defer func() {
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}()

	// Seed the exchange rate setting on first boot
	if err := seedExchangeRate(ctx, settingRepo, cfg.Billing.DefaultRate, log); err != nil {
		log.Fatal("Failed to seed exchange rate setting", zap.Error(err))
	}
	rateProvider := cache.NewSettingRateProvider(settingRepo, rateOpts...)

	// Event bus with the settlement activity log subscribed
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(billingapp.NewActivityLogHandler(log))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Application services
	coordinator := billingapp.NewCoordinator(invoiceRepo)
	settlementService := billingapp.NewSettlementService(
		invoiceRepo,
		paymentRepo,
		rateProvider,
		coordinator,
		eventBus,
	)

	// Gin engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()
	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanErrorMarker())

	// Routes
	r := router.NewRouter(engine)
	r.Register(handler.NewInvoiceHandler(settlementService)).
		Register(handler.NewExchangeRateHandler(settlementService, rateProvider)).
		Register(handler.NewSystemHandler(db, version))
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// seedExchangeRate writes the configured default rate when no rate setting
// exists yet. An already stored rate is never overwritten.
func seedExchangeRate(ctx context.Context, settings cache.SettingStore, defaultRate string, log *zap.Logger) error {
	if _, err := settings.Get(ctx, cache.SettingRateKey); err == nil {
		return nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	rate, err := decimal.NewFromString(defaultRate)
	if err != nil || rate.LessThanOrEqual(decimal.Zero) {
		log.Warn("Invalid default exchange rate, skipping seed", zap.String("rate", defaultRate))
		return nil
	}
	if err := settings.Set(ctx, cache.SettingRateKey, rate.String()); err != nil {
		return err
	}
	log.Info("Seeded default exchange rate", zap.String("rate", rate.String()))
	return nil
}
