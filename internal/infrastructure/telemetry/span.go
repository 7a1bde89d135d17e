package telemetry

import (
	"context"
	"fmt"

	"github.com/erp/backoffice/internal/domain/identity"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer used for service spans
const TracerName = "erp-backoffice"

// Span attribute keys
const (
	AttrTenantID     = "tenant_id"
	AttrUserID       = "user_id"
	AttrDocumentType = "document_type"
	AttrProductID    = "product_id"
	AttrWarehouseID  = "warehouse_id"
	AttrQuantity     = "quantity"
)

// StartServiceSpan starts a span named {service}.{method} carrying the scope's tenant and user
func StartServiceSpan(ctx context.Context, service, method string, scope identity.Scope, keyValues ...any) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrTenantID, scope.TenantID.String()),
		attribute.String(AttrUserID, scope.Actor.ID),
	}
	attrs = append(attrs, toAttributes(keyValues)...)
	return otel.Tracer(TracerName).Start(ctx, service+"."+method,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// SetAttributes adds key/value pairs to span
func SetAttributes(span trace.Span, keyValues ...any) {
	span.SetAttributes(toAttributes(keyValues)...)
}

// RecordError marks span failed with err. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func toAttributes(keyValues []any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(keyValues)/2)
	for i := 0; i+1 < len(keyValues); i += 2 {
		key, ok := keyValues[i].(string)
		if !ok {
			continue
		}
		attrs = append(attrs, toAttribute(key, keyValues[i+1]))
	}
	return attrs
}

func toAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}
