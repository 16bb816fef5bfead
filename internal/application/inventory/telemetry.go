package inventory

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/jhoicas/stock-engine/internal/application/inventory"

var tracer = otel.Tracer(instrumentationName)

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

type engineMetrics struct {
	attempts  metric.Int64Counter
	conflicts metric.Int64Counter
	entries   metric.Int64Counter
}

func newEngineMetrics() engineMetrics {
	m := otel.Meter(instrumentationName)
	return engineMetrics{
		attempts:  counter(m, "stock.tx.attempts", "Intentos de unidades atómicas"),
		conflicts: counter(m, "stock.tx.conflicts", "Conflictos de escritura detectados"),
		entries:   counter(m, "stock.ledger.entries", "Entradas agregadas al historial"),
	}
}

func counter(m metric.Meter, name, desc string) metric.Int64Counter {
	c, err := m.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		c, _ = metricnoop.NewMeterProvider().Meter(instrumentationName).Int64Counter(name)
	}
	return c
}
