package app

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/fd1az/pooldash/business/pools/app"
	meterName  = "github.com/fd1az/pooldash/business/pools/app"
)

type fetchMetrics struct {
	tracer  trace.Tracer
	fetches metric.Int64Counter
}

func newFetchMetrics() *fetchMetrics {
	m := &fetchMetrics{tracer: otel.Tracer(tracerName)}
	counter, err := otel.Meter(meterName).Int64Counter("pool_data_fetches_total",
		metric.WithDescription("Downstream data fetches by family and outcome"))
	if err == nil {
		m.fetches = counter
	}
	return m
}

// start opens a span for one fetch family.
func (m *fetchMetrics) start(ctx context.Context, family string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "pools."+family, trace.WithAttributes(attrs...))
}

// end closes span and counts the fetch.
func (m *fetchMetrics) end(ctx context.Context, span trace.Span, family string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	if m.fetches != nil {
		m.fetches.Add(ctx, 1, metric.WithAttributes(
			attribute.String("family", family),
			attribute.Bool("success", err == nil),
		))
	}
}
