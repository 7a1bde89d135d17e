package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys. Tenant ids go on spans only, never on metrics.
var (
	AttrKeyDocumentType = attribute.Key("document_type")
	AttrKeyOperation    = attribute.Key("operation")
	AttrKeyOutcome      = attribute.Key("outcome")
)

// BusinessMetrics records domain counters
type BusinessMetrics struct {
	numbersIssued metric.Int64Counter
	stockChanges  metric.Int64Counter
}

// NewBusinessMetrics creates the instruments on meter
func NewBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	numbersIssued, err := meter.Int64Counter("erp.numbering.issued",
		metric.WithDescription("Document numbers issued"),
		metric.WithUnit("{number}"),
	)
	if err != nil {
		return nil, err
	}
	stockChanges, err := meter.Int64Counter("erp.stock.changes",
		metric.WithDescription("Stock adjust, reserve and release attempts by outcome"),
		metric.WithUnit("{change}"),
	)
	if err != nil {
		return nil, err
	}
	return &BusinessMetrics{numbersIssued: numbersIssued, stockChanges: stockChanges}, nil
}

// DefaultBusinessMetrics creates the instruments on the global meter provider.
// Instrument creation on the global provider does not fail.
func DefaultBusinessMetrics() *BusinessMetrics {
	m, err := NewBusinessMetrics(otel.Meter(TracerName))
	if err != nil {
		panic(err)
	}
	return m
}

// RecordNumberIssued counts one issued document number
func (m *BusinessMetrics) RecordNumberIssued(ctx context.Context, documentType string) {
	m.numbersIssued.Add(ctx, 1, metric.WithAttributes(AttrKeyDocumentType.String(documentType)))
}

// RecordStockChange counts one stock mutation attempt
func (m *BusinessMetrics) RecordStockChange(ctx context.Context, operation, outcome string) {
	m.stockChanges.Add(ctx, 1, metric.WithAttributes(
		AttrKeyOperation.String(operation),
		AttrKeyOutcome.String(outcome),
	))
}
