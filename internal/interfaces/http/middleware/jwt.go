package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/erp/backoffice/internal/domain/identity"
	"github.com/erp/backoffice/internal/infrastructure/auth"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/session"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Context keys and headers
const (
	ScopeKey       = "scope"
	JWTClaimsKey   = "jwt_claims"
	AuthHeaderKey  = "Authorization"
	BearerPrefix   = "Bearer "
	UserIDHeader   = "X-User-ID"
	UserNameHeader = "X-User-Name"
	TenantIDHeader = "X-Tenant-ID"
)

// AuthConfig holds configuration for the authentication middleware
type AuthConfig struct {
	// JWTService validates bearer tokens. When nil the caller is identified by the
	// X-User-ID and X-Tenant-ID headers, which is meant for development only.
	JWTService *auth.JWTService
	// Sessions restores the active organization of a caller whose credentials carry none
	Sessions session.Store
	// SkipPaths are paths that don't require authentication
	SkipPaths []string
}

// Authenticate resolves the caller scope of every request and stores it in the gin
// context and in the request logger. A scope without tenant or actor is still passed
// on; the services reject it where the operation needs one.
func Authenticate(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath {
				c.Next()
				return
			}
		}

		var (
			scope identity.Scope
			err   error
		)
		if cfg.JWTService != nil {
			scope, err = scopeFromToken(c, cfg.JWTService)
		} else {
			scope, err = scopeFromHeaders(c)
		}
		if err != nil {
			respondAuthError(c, err)
			return
		}

		ctx := c.Request.Context()
		if !scope.HasTenant() && !scope.Actor.IsZero() && cfg.Sessions != nil {
			tenantID, found, err := cfg.Sessions.ActiveTenant(ctx, scope.Actor.ID)
			switch {
			case err != nil:
				logger.L(ctx).Warn("Failed to restore active organization",
					zap.String("user_id", scope.Actor.ID),
					zap.Error(err))
			case found:
				scope = scope.WithTenant(tenantID)
			}
		}

		c.Set(ScopeKey, scope)
		c.Request = c.Request.WithContext(logger.WithScope(ctx, scope))

		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			if scope.HasTenant() {
				telemetry.SetAttributes(span, telemetry.AttrTenantID, scope.TenantID.String())
			}
			if !scope.Actor.IsZero() {
				telemetry.SetAttributes(span, telemetry.AttrUserID, scope.Actor.ID)
			}
		}

		c.Next()
	}
}

// GetScope returns the caller scope resolved by Authenticate, or the zero scope
func GetScope(c *gin.Context) identity.Scope {
	if v, ok := c.Get(ScopeKey); ok {
		if scope, ok := v.(identity.Scope); ok {
			return scope
		}
	}
	return identity.Scope{}
}

// GetJWTClaims returns the validated token claims, or nil under header identity
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(JWTClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

var errMissingToken = errors.New("missing bearer token")

func scopeFromToken(c *gin.Context, jwtService *auth.JWTService) (identity.Scope, error) {
	authHeader := c.GetHeader(AuthHeaderKey)
	if !strings.HasPrefix(authHeader, BearerPrefix) {
		return identity.Scope{}, errMissingToken
	}
	tokenString := strings.TrimPrefix(authHeader, BearerPrefix)
	if tokenString == "" {
		return identity.Scope{}, errMissingToken
	}

	claims, err := jwtService.ValidateToken(tokenString)
	if err != nil {
		return identity.Scope{}, err
	}
	c.Set(JWTClaimsKey, claims)
	return claims.Scope(), nil
}

func scopeFromHeaders(c *gin.Context) (identity.Scope, error) {
	actor := identity.Actor{
		ID:   strings.TrimSpace(c.GetHeader(UserIDHeader)),
		Name: strings.TrimSpace(c.GetHeader(UserNameHeader)),
	}
	tenantID := uuid.Nil
	if raw := strings.TrimSpace(c.GetHeader(TenantIDHeader)); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return identity.Scope{}, auth.ErrInvalidTenantID
		}
		tenantID = parsed
	}
	return identity.NewScope(tenantID, actor), nil
}

func respondAuthError(c *gin.Context, err error) {
	logger.L(c.Request.Context()).Warn("Authentication failed",
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
	)

	status := http.StatusUnauthorized
	code := dto.ErrCodeUnauthorized
	message := "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code = dto.ErrCodeTokenExpired
		message = "Token has expired"
	case errors.Is(err, auth.ErrInvalidTenantID):
		status = http.StatusBadRequest
		code = dto.ErrCodeBadRequest
		message = "Invalid organization id"
	case !errors.Is(err, errMissingToken):
		code = dto.ErrCodeTokenInvalid
		message = "Invalid token"
	}
	c.AbortWithStatusJSON(status, dto.NewErrorResponseWithRequestID(code, message, logger.GetRequestID(c.Request.Context())))
}
