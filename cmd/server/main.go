package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	catalogapp "github.com/erp/backoffice/internal/application/catalog"
	inventoryapp "github.com/erp/backoffice/internal/application/inventory"
	numberingapp "github.com/erp/backoffice/internal/application/numbering"
	"github.com/erp/backoffice/internal/infrastructure/auth"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/erp/backoffice/internal/infrastructure/dynamodb"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/persistence"
	"github.com/erp/backoffice/internal/infrastructure/session"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/erp/backoffice/internal/interfaces/http/handler"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/erp/backoffice/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	tel, err := telemetry.Setup(ctx, cfg.Telemetry, cfg.App.Name, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log := tel.BridgeLogger(baseLog)
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			log.Error("Telemetry shutdown failed", zap.Error(err))
		}
		_ = log.Sync()
	}()

	log.Info("Starting ERP back-office",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("store", cfg.Store.Backend),
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	checks := make(map[string]handler.HealthCheck)
	var sysOpts []handler.SystemOption
	store, closeStore, err := openStore(ctx, cfg, log, checks, &sysOpts)
	if err != nil {
		log.Fatal("Failed to open document store", zap.Error(err))
	}
	defer closeStore()

	sessions, err := session.NewFactory(cfg.Redis, cfg.Session, session.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to create session store", zap.Error(err))
	}
	defer func() {
		_ = sessions.Close()
	}()
	if pinger, ok := sessions.(interface{ Ping(context.Context) error }); ok {
		checks["sessions"] = pinger.Ping
	}

	metrics := telemetry.DefaultBusinessMetrics()
	numbers := numberingapp.NewService(store, numberingapp.WithMetrics(metrics))

	authCfg := middleware.AuthConfig{Sessions: sessions}
	if cfg.JWT.Enabled {
		authCfg.JWTService = auth.NewJWTService(cfg.JWT)
	} else {
		log.Warn("JWT disabled, identity is taken from request headers")
	}

	engine, err := router.NewEngine(router.EngineConfig{
		Logger:         log,
		Auth:           authCfg,
		Tracing:        middleware.TracingConfig{ServiceName: cfg.App.Name, Enabled: tel.Enabled()},
		Meter:          tel.Meter("http.server"),
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
	}, router.Handlers{
		System:     handler.NewSystemHandler(cfg.App.Name, version, checks, sysOpts...),
		Numbering:  handler.NewNumberingHandler(numbers),
		Warehouses: handler.NewWarehouseHandler(inventoryapp.NewWarehouseService(store, numbers)),
		Stock:      handler.NewStockHandler(inventoryapp.NewStockService(store, metrics)),
		Movements:  handler.NewMovementHandler(inventoryapp.NewMovementService(store, numbers)),
		Products:   handler.NewProductHandler(catalogapp.NewProductService(store, numbers)),
		Session:    handler.NewSessionHandler(sessions),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

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
		return
	}
	log.Info("Server exited gracefully")
}

// openStore connects the configured document store backend and registers its health
// check and diagnostics
func openStore(
	ctx context.Context,
	cfg *config.Config,
	log *zap.Logger,
	checks map[string]handler.HealthCheck,
	sysOpts *[]handler.SystemOption,
) (docstore.Store, func(), error) {
	policy := docstore.RetryPolicy{
		MaxAttempts:     cfg.Store.TxMaxAttempts,
		InitialInterval: cfg.Store.TxInitialBackoff,
		MaxInterval:     cfg.Store.TxMaxBackoff,
	}

	switch cfg.Store.Backend {
	case "memory":
		log.Warn("Using the in-memory document store, data is lost on restart")
		return docstore.NewMemoryStore(policy), func() {}, nil

	case "dynamodb":
		client, err := dynamodb.NewClient(ctx, &cfg.Store)
		if err != nil {
			return nil, nil, err
		}
		checks["store"] = func(ctx context.Context) error {
			return dynamodb.Ping(ctx, client, cfg.Store.DynamoDBTable)
		}
		log.Info("DynamoDB document store ready", zap.String("table", cfg.Store.DynamoDBTable))
		return dynamodb.NewStore(client, cfg.Store.DynamoDBTable, policy), func() {}, nil

	default:
		gormLog := logger.NewGormLogger(log, cfg.Database.LogLevel)
		db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Database.Driver == "sqlite" {
			// embedded databases are migrated in place; postgres uses cmd/migrate
			if err := persistence.AutoMigrate(db); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
		}
		if cfg.Telemetry.Enabled && cfg.Telemetry.DBTracing {
			if err := telemetry.RegisterDBTracing(db.DB); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
		}
		checks["store"] = func(context.Context) error { return db.Ping() }
		*sysOpts = append(*sysOpts, handler.WithDiagnostic("database", func() (any, error) {
			return db.Stats()
		}))
		log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

		closeDB := func() {
			if err := db.Close(); err != nil {
				log.Error("Error closing database", zap.Error(err))
			}
		}
		return persistence.NewDocumentStore(db.DB, policy), closeDB, nil
	}
}
