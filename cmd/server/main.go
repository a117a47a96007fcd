package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	billingapp "github.com/daftar/backend/internal/application/billing"
	partnerapp "github.com/daftar/backend/internal/application/partner"
	"github.com/daftar/backend/internal/infrastructure/cache"
	"github.com/daftar/backend/internal/infrastructure/config"
	"github.com/daftar/backend/internal/infrastructure/event"
	"github.com/daftar/backend/internal/infrastructure/logger"
	"github.com/daftar/backend/internal/infrastructure/persistence"
	"github.com/daftar/backend/internal/infrastructure/telemetry"
	"github.com/daftar/backend/internal/interfaces/http/handler"
	"github.com/daftar/backend/internal/interfaces/http/middleware"
	"github.com/daftar/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.NewFromSettings(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Daftar Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Tracing (no-op provider when disabled)
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel,
		logger.WithSlowThreshold(cfg.Log.SlowQueryThreshold))

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := telemetry.RegisterOtelGorm(db.DB, telemetry.DBTracingConfig{
		Enabled: cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBName:  cfg.Database.DBName,
	}, log); err != nil {
		log.Warn("Failed to register database tracing", zap.Error(err))
	}

	// Initialize repositories
	merchantRepo := persistence.NewGormMerchantRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	statsReader := persistence.NewGormStatsReader(db.DB)

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)

	// Stats cache, invalidated through billing events
	statsCache := cache.NewInMemoryStatsCache(cache.WithStatsLogger(log))
	eventBus.Subscribe(cache.NewStatsInvalidationHandler(statsCache, log))

	// Redis change stream. The server keeps running without it when Redis
	// is down; writes simply stop emitting change notifications.
	var notifier *event.RedisChangeNotifier
	notifier, err = event.NewRedisChangeNotifier(&cfg.Redis, event.WithNotifierLogger(log))
	if err != nil {
		log.Warn("Change notifier unavailable, continuing without it", zap.Error(err))
		notifier = nil
	} else {
		defer func() {
			if err := notifier.Close(); err != nil {
				log.Error("Error closing change notifier", zap.Error(err))
			}
		}()
	}

	// Initialize application services
	merchantService := partnerapp.NewMerchantService(merchantRepo)
	invoiceService := billingapp.NewInvoiceService(invoiceRepo, paymentRepo, merchantRepo)
	paymentService := billingapp.NewPaymentService(invoiceRepo, paymentRepo)
	statsService := billingapp.NewStatsService(statsReader, merchantRepo)
	statsService.SetCache(statsCache)

	merchantService.SetEventPublisher(eventBus)
	invoiceService.SetEventPublisher(eventBus)
	paymentService.SetEventPublisher(eventBus)

	if notifier != nil {
		merchantService.SetChangeNotifier(notifier)
		invoiceService.SetChangeNotifier(notifier)
		paymentService.SetChangeNotifier(notifier)

		// Changes made by other nodes arrive over the redis stream; drop
		// cached stats so the next read recomputes. Local writes already
		// invalidate through the event bus.
		go func() {
			if err := notifier.Subscribe(context.Background(), func(msg event.ChangeMessage) {
				if msg.Table == "invoices" || msg.Table == "payments" {
					statsCache.Invalidate()
				}
			}); err != nil {
				log.Warn("Change subscription stopped", zap.Error(err))
			}
		}()
	}

	// Initialize HTTP handlers
	merchantHandler := handler.NewMerchantHandler(merchantService)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, paymentService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	statsHandler := handler.NewStatsHandler(statsService)
	var systemOpts []handler.SystemHandlerOption
	if notifier != nil {
		systemOpts = append(systemOpts, handler.WithRedis(notifier.Client()))
	}
	systemHandler := handler.NewSystemHandler(db.DB, systemOpts...)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack: request ID first so everything downstream can log it
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	if cfg.Telemetry.Enabled {
		engine.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Liveness endpoint outside API versioning, for load balancers
	engine.GET("/health", healthHandler(db))

	// Register API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(merchantHandler).
		Register(invoiceHandler).
		Register(paymentHandler).
		Register(statsHandler).
		Register(systemHandler)
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

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for the root health check endpoint
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
