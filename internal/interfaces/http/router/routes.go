package router

import (
	"fmt"

	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/interfaces/http/handler"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// HealthPath is served outside the versioned API and without authentication
const HealthPath = "/health"

// Handlers are the endpoint groups of the API
type Handlers struct {
	System     *handler.SystemHandler
	Numbering  *handler.NumberingHandler
	Warehouses *handler.WarehouseHandler
	Stock      *handler.StockHandler
	Movements  *handler.MovementHandler
	Products   *handler.ProductHandler
	Session    *handler.SessionHandler
}

// EngineConfig holds the cross-cutting middleware settings
type EngineConfig struct {
	Logger         *zap.Logger
	Auth           middleware.AuthConfig
	Tracing        middleware.TracingConfig
	Meter          metric.Meter // nil disables HTTP metrics
	CORSOrigins    []string
	TrustedProxies []string
	MaxBodyBytes   int64
}

// NewEngine builds the gin engine with middleware and every route registered
func NewEngine(cfg EngineConfig, h Handlers) (*gin.Engine, error) {
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	metrics, err := middleware.HTTPMetrics(cfg.Meter)
	if err != nil {
		return nil, fmt.Errorf("http metrics: %w", err)
	}

	engine.Use(
		middleware.Tracing(cfg.Tracing),
		middleware.SpanErrorMarker(),
		metrics,
		logger.GinMiddleware(cfg.Logger),
		logger.Recovery(),
		middleware.Secure(),
		middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)),
	)
	if cfg.MaxBodyBytes > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	}

	authCfg := cfg.Auth
	authCfg.SkipPaths = append(authCfg.SkipPaths, HealthPath)
	engine.Use(middleware.Authenticate(authCfg))

	engine.GET(HealthPath, h.System.Health)

	mountAPI(engine, domainGroups(h))
	return engine, nil
}

func domainGroups(h Handlers) []*DomainGroup {
	system := NewDomainGroup("/system").
		GET("/info", h.System.GetSystemInfo)

	numbering := NewDomainGroup("/numbering").
		GET("/settings", h.Numbering.GetSettings).
		POST("/settings/initialize", h.Numbering.InitializeSettings).
		POST("/sequences/:type/next", h.Numbering.Generate).
		GET("/sequences/:type/preview", h.Numbering.Preview).
		PUT("/sequences/:type/format", h.Numbering.UpdateFormat).
		PUT("/sequences/:type/counter", h.Numbering.ResetCounter)

	warehouses := NewDomainGroup("/warehouses").
		POST("", h.Warehouses.Create).
		GET("", h.Warehouses.List).
		GET("/default", h.Warehouses.GetDefault).
		GET("/check-code", h.Warehouses.CheckCode).
		GET("/:id", h.Warehouses.GetByID).
		PUT("/:id", h.Warehouses.Update).
		DELETE("/:id", h.Warehouses.Delete).
		POST("/:id/default", h.Warehouses.SetDefault)

	stock := NewDomainGroup("/stock").
		POST("", h.Stock.Create).
		GET("", h.Stock.List).
		GET("/low", h.Stock.GetLowStock).
		GET("/out", h.Stock.GetOutOfStock).
		GET("/summary", h.Stock.GetSummary).
		GET("/products/:productId", h.Stock.GetByProduct).
		GET("/:id", h.Stock.GetByID).
		POST("/adjust", h.Stock.Adjust).
		POST("/reserve", h.Stock.Reserve).
		POST("/release", h.Stock.Release)

	movements := NewDomainGroup("/stock-movements").
		POST("", h.Movements.Create).
		GET("", h.Movements.List).
		GET("/recent", h.Movements.GetRecent).
		GET("/counts", h.Movements.CountByType).
		GET("/:id", h.Movements.GetByID)

	products := NewDomainGroup("/products").
		POST("", h.Products.Create).
		GET("", h.Products.List).
		GET("/check-sku", h.Products.CheckSKU).
		GET("/sku/:sku", h.Products.GetBySKU).
		GET("/:id", h.Products.GetByID).
		PUT("/:id", h.Products.Update).
		DELETE("/:id", h.Products.Delete).
		POST("/:id/duplicate", h.Products.Duplicate)

	session := NewDomainGroup("/session").
		GET("/organization", h.Session.Current).
		PUT("/organization", h.Session.Select).
		DELETE("/organization", h.Session.Clear)

	return []*DomainGroup{system, numbering, warehouses, stock, movements, products, session}
}
