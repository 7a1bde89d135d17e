package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/application/catalog"
	inventoryapp "github.com/erp/backoffice/internal/application/inventory"
	numberingapp "github.com/erp/backoffice/internal/application/numbering"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/session"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

var testNow = time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)

type testEnv struct {
	engine   *gin.Engine
	store    *docstore.MemoryStore
	sessions *session.MemoryStore
	tenantID uuid.UUID
	userID   string
}

// apiResponse mirrors dto.Response with raw data for per-test decoding
type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
		Details   []struct {
			Field string `json:"field"`
		} `json:"details"`
	} `json:"error"`
	Meta *struct {
		Total int `json:"total"`
	} `json:"meta"`
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := docstore.NewMemoryStore(docstore.RetryPolicy{
		MaxAttempts:     500,
		InitialInterval: time.Millisecond,
		MaxInterval:     10 * time.Millisecond,
	})
	sessions := session.NewMemoryStore(time.Hour)
	t.Cleanup(func() { _ = sessions.Close() })

	numbers := numberingapp.NewService(store, numberingapp.WithClock(func() time.Time { return testNow }))
	numberingHandler := NewNumberingHandler(numbers)
	warehouses := NewWarehouseHandler(inventoryapp.NewWarehouseService(store, numbers))
	stock := NewStockHandler(inventoryapp.NewStockService(store, nil))
	movements := NewMovementHandler(inventoryapp.NewMovementService(store, numbers))
	products := NewProductHandler(catalog.NewProductService(store, numbers))
	sessionHandler := NewSessionHandler(sessions)
	system := NewSystemHandler("erp-backoffice", "test", nil)

	engine := gin.New()
	engine.Use(logger.GinMiddleware(zap.NewNop()), middleware.Authenticate(middleware.AuthConfig{Sessions: sessions}))
	engine.GET("/health", system.Health)

	api := engine.Group("/api/v1")
	api.GET("/numbering/settings", numberingHandler.GetSettings)
	api.POST("/numbering/settings/initialize", numberingHandler.InitializeSettings)
	api.POST("/numbering/sequences/:type/next", numberingHandler.Generate)
	api.GET("/numbering/sequences/:type/preview", numberingHandler.Preview)
	api.PUT("/numbering/sequences/:type/format", numberingHandler.UpdateFormat)
	api.PUT("/numbering/sequences/:type/counter", numberingHandler.ResetCounter)

	api.POST("/warehouses", warehouses.Create)
	api.GET("/warehouses", warehouses.List)
	api.GET("/warehouses/default", warehouses.GetDefault)
	api.GET("/warehouses/check-code", warehouses.CheckCode)
	api.GET("/warehouses/:id", warehouses.GetByID)
	api.PUT("/warehouses/:id", warehouses.Update)
	api.DELETE("/warehouses/:id", warehouses.Delete)
	api.POST("/warehouses/:id/default", warehouses.SetDefault)

	api.POST("/stock", stock.Create)
	api.GET("/stock", stock.List)
	api.GET("/stock/low", stock.GetLowStock)
	api.GET("/stock/out", stock.GetOutOfStock)
	api.GET("/stock/summary", stock.GetSummary)
	api.GET("/stock/products/:productId", stock.GetByProduct)
	api.GET("/stock/:id", stock.GetByID)
	api.POST("/stock/adjust", stock.Adjust)
	api.POST("/stock/reserve", stock.Reserve)
	api.POST("/stock/release", stock.Release)

	api.POST("/stock-movements", movements.Create)
	api.GET("/stock-movements", movements.List)
	api.GET("/stock-movements/recent", movements.GetRecent)
	api.GET("/stock-movements/counts", movements.CountByType)
	api.GET("/stock-movements/:id", movements.GetByID)

	api.POST("/products", products.Create)
	api.GET("/products", products.List)
	api.GET("/products/check-sku", products.CheckSKU)
	api.GET("/products/sku/:sku", products.GetBySKU)
	api.GET("/products/:id", products.GetByID)
	api.PUT("/products/:id", products.Update)
	api.DELETE("/products/:id", products.Delete)
	api.POST("/products/:id/duplicate", products.Duplicate)

	api.GET("/session/organization", sessionHandler.Current)
	api.PUT("/session/organization", sessionHandler.Select)
	api.DELETE("/session/organization", sessionHandler.Clear)

	return &testEnv{
		engine:   engine,
		store:    store,
		sessions: sessions,
		tenantID: uuid.New(),
		userID:   "clerk-1",
	}
}

// requestOption adjusts the identity headers of a test request
type requestOption func(*http.Request)

func asTenant(id uuid.UUID) requestOption {
	return func(r *http.Request) {
		if id == uuid.Nil {
			r.Header.Del(middleware.TenantIDHeader)
			return
		}
		r.Header.Set(middleware.TenantIDHeader, id.String())
	}
}

func asUser(id string) requestOption {
	return func(r *http.Request) {
		if id == "" {
			r.Header.Del(middleware.UserIDHeader)
			return
		}
		r.Header.Set(middleware.UserIDHeader, id)
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, opts ...requestOption) (int, apiResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.TenantIDHeader, e.tenantID.String())
	req.Header.Set(middleware.UserIDHeader, e.userID)
	for _, opt := range opts {
		opt(req)
	}

	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)

	var resp apiResponse
	if rec.Code != http.StatusNoContent {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "body: %s", rec.Body.String())
	}
	return rec.Code, resp
}

// decode unmarshals the data of a successful response
func decode[T any](t *testing.T, resp apiResponse) T {
	t.Helper()
	var out T
	require.NotNil(t, resp.Data, "response carries no data")
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	return out
}

func errCode(resp apiResponse) string {
	if resp.Error == nil {
		return ""
	}
	return resp.Error.Code
}

func path(format string, args ...any) string {
	return "/api/v1" + fmt.Sprintf(format, args...)
}
