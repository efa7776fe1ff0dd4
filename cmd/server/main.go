package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/erp/warehouse/docs"
	appinv "github.com/erp/warehouse/internal/application/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/cache"
	"github.com/erp/warehouse/internal/infrastructure/config"
	"github.com/erp/warehouse/internal/infrastructure/logger"
	"github.com/erp/warehouse/internal/infrastructure/migration"
	"github.com/erp/warehouse/internal/infrastructure/persistence"
	"github.com/erp/warehouse/internal/infrastructure/telemetry"
	"github.com/erp/warehouse/internal/interfaces/http/handler"
	"github.com/erp/warehouse/internal/interfaces/http/middleware"
	"github.com/erp/warehouse/internal/interfaces/http/router"
	"github.com/erp/warehouse/migrations"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is stamped at build time with -ldflags "-X main.version=..."
var version = "dev"

var probePaths = []string{"/health", "/health/ready"}

//	@title			Warehouse Ledger API
//	@version		1.0
//	@description	Batch-level inventory ledger: inbound and outbound orders, stocktake adjustments and the inventory transaction log.

//	@BasePath	/api/v1

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.FromAppConfig(cfg))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting warehouse ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	// Telemetry
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.ConfigFrom(cfg.Telemetry), log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfigFrom(cfg.Telemetry), log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfigFrom(cfg.Telemetry), log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	log = lp.Bridge(log, zapcore.InfoLevel)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfigFrom(cfg.Profiling, cfg.App.Name), log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tp.EnableSpanProfiles()
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(200*time.Millisecond),
		logger.WithFullSQL(cfg.Telemetry.DBLogFullSQL),
	)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	sqlDB := db.SQL()
	if cfg.Database.AutoMigrate {
		if err := runMigrations(sqlDB, log); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfigFrom(cfg.Telemetry, cfg.Database.DBName), log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	meter := mp.Meter(telemetry.TracerName)
	if _, err := telemetry.RegisterDBMetrics(db.DB, sqlDB, meter, 200*time.Millisecond, log); err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}

	// Ledger services
	isolation, err := persistence.ParseIsolationLevel(cfg.Ledger.IsolationLevel)
	if err != nil {
		log.Fatal("Invalid isolation level", zap.Error(err))
	}
	movements := appinv.NewMovementService(persistence.NewGormTransactionScope(db.DB, isolation), shared.SystemClock{})
	movements.SetLogger(log)
	ledgerMetrics, err := telemetry.NewLedgerMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create ledger metrics", zap.Error(err))
	}
	movements.SetMetrics(ledgerMetrics)
	if _, err := telemetry.RegisterStockGauge(meter, telemetry.NewGormStockLevelProvider(db.DB), log); err != nil {
		log.Fatal("Failed to register stock gauge", zap.Error(err))
	}

	queries := appinv.NewQueryService(
		persistence.NewGormInventoryBatchRepository(db.DB),
		persistence.NewGormInventoryDetailRepository(db.DB),
		persistence.NewGormInventoryTransactionRepository(db.DB),
		persistence.NewGormMaterialRepository(db.DB),
		persistence.NewGormInboundOrderRepository(db.DB),
		persistence.NewGormOutboundOrderRepository(db.DB),
	)

	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
	).CreateStore(ctx, cfg.Ledger.IdempotencyBackend)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	httpMetrics, err := middleware.HTTPMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create HTTP metrics", zap.Error(err))
	}
	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log, probePaths...),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     tp.IsEnabled(),
			SkipPaths:   probePaths,
		}),
		middleware.SpanEnricher(),
		middleware.Profiling(middleware.ProfilingConfig{
			Enabled:   profiler.IsEnabled(),
			SkipPaths: probePaths,
		}),
		httpMetrics,
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)
	if cfg.HTTP.RateLimitRPS > 0 {
		engine.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)))
		log.Info("Rate limiting enabled",
			zap.Float64("rps", cfg.HTTP.RateLimitRPS),
			zap.Int("burst", cfg.HTTP.RateLimitBurst),
		)
	}

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version).
		AddCheck("database", db.Ping)
	if pinger, ok := idempotencyStore.(interface{ Ping(context.Context) error }); ok {
		systemHandler.AddCheck("idempotency_store", pinger.Ping)
	}
	systemHandler.RegisterRoutes(engine)

	idempotent := middleware.Idempotency(idempotencyStore, cfg.Ledger.IdempotencyTTL)
	stockHandler := handler.NewStockHandler(movements, queries)

	groups := append([]*router.DomainGroup{
		handler.NewInboundOrderHandler(movements, queries).Routes(idempotent),
		handler.NewOutboundOrderHandler(movements, queries).Routes(idempotent),
		handler.NewTransactionHandler(queries).Routes(),
	}, stockHandler.Routes(idempotent)...)

	r := router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithSwagger(middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:    cfg.Swagger.Enabled,
			AllowedIPs: cfg.Swagger.AllowedIPs,
		})),
	)
	for _, group := range groups {
		r.Register(group)
		for _, route := range group.Routes() {
			log.Debug("Route mounted",
				zap.String("group", group.Name()),
				zap.String("method", route.Method),
				zap.String("path", r.Prefix()+route.Path),
			)
		}
	}
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr), zap.String("api", r.Prefix()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	profiler.Stop()
	for name, shutdown := range map[string]func(context.Context) error{
		"tracer": tp.Shutdown,
		"meter":  mp.Shutdown,
		"logger": lp.Shutdown,
	} {
		if err := shutdown(shutdownCtx); err != nil {
			log.Warn("Telemetry shutdown failed", zap.String("provider", name), zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}

// runMigrations applies the embedded schema before the server takes traffic.
func runMigrations(sqlDB *sql.DB, log *zap.Logger) error {
	m, err := migration.NewFromFS(sqlDB, migrations.FS, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()
	return m.Up()
}
