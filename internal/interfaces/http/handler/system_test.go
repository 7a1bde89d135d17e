package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveSystem(t *testing.T, h *SystemHandler, target string) (int, apiResponse) {
	t.Helper()
	router := gin.New()
	router.GET("/health", h.Health)
	router.GET("/info", h.GetSystemInfo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestSystemHandler_Health(t *testing.T) {
	ok := func(context.Context) error { return nil }

	t.Run("healthy", func(t *testing.T) {
		h := NewSystemHandler("erp-backoffice", "1.0.0", map[string]HealthCheck{"store": ok, "sessions": ok})
		status, resp := serveSystem(t, h, "/health")
		assert.Equal(t, http.StatusOK, status)

		health := decode[HealthResponse](t, resp)
		assert.Equal(t, "ok", health.Status)
		assert.Equal(t, map[string]string{"store": "ok", "sessions": "ok"}, health.Checks)
	})

	t.Run("degraded", func(t *testing.T) {
		down := func(context.Context) error { return errors.New("connection refused") }
		h := NewSystemHandler("erp-backoffice", "1.0.0", map[string]HealthCheck{"store": ok, "sessions": down})
		status, resp := serveSystem(t, h, "/health")
		assert.Equal(t, http.StatusServiceUnavailable, status)

		health := decode[HealthResponse](t, resp)
		assert.Equal(t, "degraded", health.Status)
		assert.Equal(t, "connection refused", health.Checks["sessions"])
		assert.Equal(t, "ok", health.Checks["store"])
	})

	t.Run("no checks", func(t *testing.T) {
		status, resp := serveSystem(t, NewSystemHandler("erp-backoffice", "1.0.0", nil), "/health")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "ok", decode[HealthResponse](t, resp).Status)
	})
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	status, resp := serveSystem(t, NewSystemHandler("erp-backoffice", "1.2.3", nil), "/info")
	require.Equal(t, http.StatusOK, status)

	info := decode[SystemInfoResponse](t, resp)
	assert.Equal(t, "erp-backoffice", info.Name)
	assert.Equal(t, "1.2.3", info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestSystemHandler_GetSystemInfo_Diagnostics(t *testing.T) {
	pool := func() (any, error) { return map[string]int{"open_connections": 3, "in_use": 1}, nil }
	broken := func() (any, error) { return nil, errors.New("database is closed") }
	h := NewSystemHandler("erp-backoffice", "1.2.3", nil,
		WithDiagnostic("database", pool),
		WithDiagnostic("replica", broken),
	)

	status, resp := serveSystem(t, h, "/info")
	require.Equal(t, http.StatusOK, status)

	info := decode[SystemInfoResponse](t, resp)
	require.Len(t, info.Diagnostics, 2)
	assert.Equal(t, map[string]any{"open_connections": float64(3), "in_use": float64(1)}, info.Diagnostics["database"])
	assert.Equal(t, map[string]any{"error": "database is closed"}, info.Diagnostics["replica"])
}
