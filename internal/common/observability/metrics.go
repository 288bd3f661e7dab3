package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

// Observability bundles the meter instruments and tracer shared by the hub
// transport and the dispatcher. A zero value is valid and records nothing.
type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	tracer        trace.Tracer
	hubCalls      otelmetric.Int64Counter
	hubDuration   otelmetric.Float64Histogram
	dispatches    otelmetric.Int64Counter
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{tracer: otel.Tracer(serviceName)}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	return newWithMeter(provider, provider.Meter(serviceName), otel.Tracer(serviceName))
}

// NewWithMeter builds instruments on an existing meter, used by tests with a manual reader.
func NewWithMeter(meter otelmetric.Meter, tracer trace.Tracer) *Observability {
	return newWithMeter(nil, meter, tracer)
}

func newWithMeter(provider *metric.MeterProvider, meter otelmetric.Meter, tracer trace.Tracer) *Observability {
	hubCalls, _ := meter.Int64Counter(
		"hub.requests",
		otelmetric.WithDescription("Number of notification hub requests"),
	)

	hubDuration, _ := meter.Float64Histogram(
		"hub.request.duration",
		otelmetric.WithDescription("Notification hub request duration"),
		otelmetric.WithUnit("ms"),
	)

	dispatches, _ := meter.Int64Counter(
		"notifications.dispatched",
		otelmetric.WithDescription("Number of send requests by result"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		tracer:        tracer,
		hubCalls:      hubCalls,
		hubDuration:   hubDuration,
		dispatches:    dispatches,
	}
}

// StartSpan starts a client span; it falls back to the global tracer when none is configured.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer("notification-gateway")
	if o != nil && o.tracer != nil {
		tracer = o.tracer
	}
	return tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}

func (o *Observability) RecordHubCall(ctx context.Context, operation, status string, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	)
	if o.hubCalls != nil {
		o.hubCalls.Add(ctx, 1, attrs)
	}
	if o.hubDuration != nil {
		o.hubDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) RecordDispatch(ctx context.Context, status string) {
	if o == nil || o.dispatches == nil {
		return
	}
	o.dispatches.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("status", status),
	))
}

func (o *Observability) Shutdown() {
	if o != nil && o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
