package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/application/catalog"
	inventoryapp "github.com/erp/backoffice/internal/application/inventory"
	numberingapp "github.com/erp/backoffice/internal/application/numbering"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/erp/backoffice/internal/infrastructure/session"
	"github.com/erp/backoffice/internal/interfaces/http/handler"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestDomainGroup(t *testing.T) {
	g := NewDomainGroup("/stock")
	ok := func(c *gin.Context) { c.String(http.StatusOK, c.Request.Method) }
	g.Use(func(c *gin.Context) {
		c.Header("X-Group", "stock")
		c.Next()
	}).
		GET("/items", ok).
		POST("/items", ok).
		PUT("/items/:id", ok).
		DELETE("/items/:id", ok)

	engine := gin.New()
	mountAPI(engine, []*DomainGroup{g})

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/stock/items"},
		{http.MethodPost, "/api/v1/stock/items"},
		{http.MethodPut, "/api/v1/stock/items/1"},
		{http.MethodDelete, "/api/v1/stock/items/1"},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, http.StatusOK, w.Code, "%s %s", tt.method, tt.path)
		assert.Equal(t, tt.method, w.Body.String())
		assert.Equal(t, "stock", w.Header().Get("X-Group"))
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stock/items", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDomainGroup_MiddlewareStaysInGroup(t *testing.T) {
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	tagged := NewDomainGroup("/stock").Use(func(c *gin.Context) {
		c.Header("X-Group", "stock")
		c.Next()
	}).GET("", ok)
	plain := NewDomainGroup("/products").GET("", ok)

	engine := gin.New()
	mountAPI(engine, []*DomainGroup{tagged, plain})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, APIPrefix+"/products", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-Group"))
}

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()

	store := docstore.NewMemoryStore(docstore.DefaultRetryPolicy())
	sessions := session.NewMemoryStore(time.Hour)
	t.Cleanup(func() { _ = sessions.Close() })

	numbers := numberingapp.NewService(store)
	engine, err := NewEngine(EngineConfig{
		Logger:       zap.NewNop(),
		Auth:         middleware.AuthConfig{Sessions: sessions},
		CORSOrigins:  []string{"https://erp.example.com"},
		MaxBodyBytes: 1 << 20,
	}, Handlers{
		System:     handler.NewSystemHandler("erp-backoffice", "test", nil),
		Numbering:  handler.NewNumberingHandler(numbers),
		Warehouses: handler.NewWarehouseHandler(inventoryapp.NewWarehouseService(store, numbers)),
		Stock:      handler.NewStockHandler(inventoryapp.NewStockService(store, nil)),
		Movements:  handler.NewMovementHandler(inventoryapp.NewMovementService(store, numbers)),
		Products:   handler.NewProductHandler(catalog.NewProductService(store, numbers)),
		Session:    handler.NewSessionHandler(sessions),
	})
	require.NoError(t, err)
	return engine
}

func TestNewEngine(t *testing.T) {
	engine := newTestEngine(t)

	t.Run("health", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, HealthPath, nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("api route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/numbering/sequences/product/next", nil)
		req.Header.Set(middleware.TenantIDHeader, uuid.NewString())
		req.Header.Set(middleware.UserIDHeader, "clerk-1")
		req.Header.Set("Origin", "https://erp.example.com")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "https://erp.example.com", w.Header().Get("Access-Control-Allow-Origin"))

		var body struct {
			Data handler.NumberResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "PRD-0001", body.Data.Number)
	})

	t.Run("unknown route", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestNewEngine_Routes(t *testing.T) {
	registered := make(map[string]bool)
	for _, route := range newTestEngine(t).Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"GET /health",
		"GET /api/v1/system/info",
		"POST /api/v1/numbering/sequences/:type/next",
		"PUT /api/v1/numbering/sequences/:type/counter",
		"GET /api/v1/warehouses/default",
		"POST /api/v1/warehouses/:id/default",
		"POST /api/v1/stock/adjust",
		"GET /api/v1/stock/products/:productId",
		"GET /api/v1/stock-movements/counts",
		"POST /api/v1/products/:id/duplicate",
		"PUT /api/v1/session/organization",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}
}
