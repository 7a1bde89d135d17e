package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/domain/identity"
	"github.com/erp/backoffice/internal/infrastructure/auth"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/erp/backoffice/internal/infrastructure/session"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Enabled:               true,
		Secret:                "test-secret-key-at-least-32-chars",
		Issuer:                "test-issuer",
		AccessTokenExpiration: 15 * time.Minute,
	})
}

// scopeRouter answers every request with the resolved scope
func scopeRouter(cfg AuthConfig) *gin.Engine {
	router := gin.New()
	router.Use(Authenticate(cfg))
	router.GET("/test", func(c *gin.Context) {
		scope := GetScope(c)
		c.JSON(http.StatusOK, gin.H{"tenant": scope.TenantID.String(), "user": scope.Actor.ID})
	})
	router.GET("/health", func(c *gin.Context) {
		_, resolved := c.Get(ScopeKey)
		c.JSON(http.StatusOK, gin.H{"resolved": resolved})
	})
	return router
}

func serve(t *testing.T, router *gin.Engine, req *http.Request) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func errorCode(body map[string]any) string {
	errInfo, _ := body["error"].(map[string]any)
	code, _ := errInfo["code"].(string)
	return code
}

func TestAuthenticate_ValidToken(t *testing.T) {
	jwtService := newTestJWTService()
	tenantID := uuid.New()
	token, _, err := jwtService.GenerateToken(identity.Actor{ID: "user-1", Name: "Ann"}, tenantID)
	require.NoError(t, err)

	router := scopeRouter(AuthConfig{JWTService: jwtService})
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)

	status, body := serve(t, router, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, tenantID.String(), body["tenant"])
	assert.Equal(t, "user-1", body["user"])
}

func TestAuthenticate_TokenErrors(t *testing.T) {
	jwtService := newTestJWTService()
	router := scopeRouter(AuthConfig{JWTService: jwtService})

	t.Run("missing header", func(t *testing.T) {
		status, body := serve(t, router, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, dto.ErrCodeUnauthorized, errorCode(body))
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+"not-a-token")
		status, body := serve(t, router, req)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, dto.ErrCodeTokenInvalid, errorCode(body))
	})

	t.Run("expired token", func(t *testing.T) {
		expired := auth.NewJWTService(config.JWTConfig{
			Secret:                "test-secret-key-at-least-32-chars",
			Issuer:                "test-issuer",
			AccessTokenExpiration: -time.Minute,
		})
		token, _, err := expired.GenerateToken(identity.Actor{ID: "user-1"}, uuid.Nil)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		status, body := serve(t, router, req)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, dto.ErrCodeTokenExpired, errorCode(body))
	})

	t.Run("skip path", func(t *testing.T) {
		skipping := scopeRouter(AuthConfig{JWTService: jwtService, SkipPaths: []string{"/health"}})
		status, body := serve(t, skipping, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, false, body["resolved"])
	})
}

func TestAuthenticate_HeaderIdentity(t *testing.T) {
	router := scopeRouter(AuthConfig{})
	tenantID := uuid.New()

	t.Run("headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(UserIDHeader, "dev-user")
		req.Header.Set(TenantIDHeader, tenantID.String())
		status, body := serve(t, router, req)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, tenantID.String(), body["tenant"])
		assert.Equal(t, "dev-user", body["user"])
	})

	t.Run("anonymous passes through", func(t *testing.T) {
		status, body := serve(t, router, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, uuid.Nil.String(), body["tenant"])
		assert.Equal(t, "", body["user"])
	})

	t.Run("malformed tenant", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(TenantIDHeader, "acme")
		status, body := serve(t, router, req)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, dto.ErrCodeBadRequest, errorCode(body))
	})
}

func TestAuthenticate_RestoresActiveOrganization(t *testing.T) {
	sessions := session.NewMemoryStore(time.Hour)
	defer sessions.Close()

	selected := uuid.New()
	require.NoError(t, sessions.SetActiveTenant(context.Background(), "user-1", selected))

	jwtService := newTestJWTService()
	router := scopeRouter(AuthConfig{JWTService: jwtService, Sessions: sessions})

	t.Run("token without tenant", func(t *testing.T) {
		token, _, err := jwtService.GenerateToken(identity.Actor{ID: "user-1"}, uuid.Nil)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)

		_, body := serve(t, router, req)
		assert.Equal(t, selected.String(), body["tenant"])
	})

	t.Run("token tenant wins", func(t *testing.T) {
		explicit := uuid.New()
		token, _, err := jwtService.GenerateToken(identity.Actor{ID: "user-1"}, explicit)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)

		_, body := serve(t, router, req)
		assert.Equal(t, explicit.String(), body["tenant"])
	})

	t.Run("other user has no selection", func(t *testing.T) {
		token, _, err := jwtService.GenerateToken(identity.Actor{ID: "user-2"}, uuid.Nil)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)

		_, body := serve(t, router, req)
		assert.Equal(t, uuid.Nil.String(), body["tenant"])
	})
}
