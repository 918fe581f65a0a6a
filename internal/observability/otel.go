// internal/observability/otel.go
package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "pawcare-back"

// Metrics holds the analysis pipeline instruments
type Metrics struct {
	AnalysisRuns       metric.Int64Counter
	ModalityCalls      metric.Int64Counter
	ProcessingDuration metric.Float64Histogram
}

// Setup initializes OpenTelemetry trace and metric providers exporting over OTLP/gRPC
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		_ = tracerProvider.Shutdown(ctx)
		return nil, err
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(30*time.Second))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	shutdown := func(ctx context.Context) error {
		return errors.Join(tracerProvider.Shutdown(ctx), meterProvider.Shutdown(ctx))
	}

	return shutdown, nil
}

// InitMetrics creates the pipeline instruments on the global meter provider.
// Without Setup they are no-ops.
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	runs, err := meter.Int64Counter(
		"analysis.runs",
		metric.WithDescription("Background analysis runs by final status"),
	)
	if err != nil {
		return nil, err
	}

	calls, err := meter.Int64Counter(
		"analysis.modality.calls",
		metric.WithDescription("Per-modality analysis outcomes"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"analysis.processing.duration",
		metric.WithDescription("Time from submission to completed record"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		AnalysisRuns:       runs,
		ModalityCalls:      calls,
		ProcessingDuration: duration,
	}, nil
}

// RecordRun counts one finished background run
func (m *Metrics) RecordRun(ctx context.Context, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.AnalysisRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	if status == "completed" {
		m.ProcessingDuration.Record(ctx, float64(elapsed.Milliseconds()))
	}
}

// RecordModality counts one modality outcome: "success", "error" or "fallback"
func (m *Metrics) RecordModality(ctx context.Context, modality, outcome string) {
	if m == nil {
		return
	}
	m.ModalityCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("modality", modality),
		attribute.String("outcome", outcome),
	))
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, spanName)
}

// RecordError records an error in the span and marks it failed
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
