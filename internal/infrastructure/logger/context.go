package logger

import (
	"context"

	"github.com/erp/backoffice/internal/domain/identity"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID stores the request id and tags the context logger with it
func WithRequestID(ctx context.Context, requestID string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	return WithContext(ctx, FromContext(ctx).With(zap.String("request_id", requestID)))
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithScope tags the context logger with the tenant and actor of the scope
func WithScope(ctx context.Context, scope identity.Scope) context.Context {
	return WithContext(ctx, FromContext(ctx).With(ScopeFields(scope)...))
}

// ScopeFields returns the log fields identifying a scope
func ScopeFields(scope identity.Scope) []zap.Field {
	fields := make([]zap.Field, 0, 2)
	if scope.HasTenant() {
		fields = append(fields, zap.String("tenant_id", scope.TenantID.String()))
	}
	if !scope.Actor.IsZero() {
		fields = append(fields, zap.String("user_id", scope.Actor.ID))
	}
	return fields
}

// L returns the context logger with trace_id and span_id of the active span
func L(ctx context.Context) *zap.Logger {
	l := FromContext(ctx)
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return l
	}
	return l.With(
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	)
}
