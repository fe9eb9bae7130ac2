package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerScope = "github.com/404drakefound/ucl-deepflow-task-delegation"

// Trace exporters accepted in OTEL_TRACES_EXPORTER.
const (
	TracesExporterOTLP   = "otlp"
	TracesExporterStdout = "stdout"
)

// traceExporters builds span exporters by OTEL_TRACES_EXPORTER value.
// The OTLP exporter reads OTEL_EXPORTER_OTLP_ENDPOINT and friends from the environment.
var traceExporters = map[string]func(ctx context.Context) (sdktrace.SpanExporter, error){
	TracesExporterOTLP: func(ctx context.Context) (sdktrace.SpanExporter, error) {
		return otlptracehttp.New(ctx)
	},
	TracesExporterStdout: func(context.Context) (sdktrace.SpanExporter, error) {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	},
}

// Tracer returns the pipeline tracer from the global provider (a no-op until one is installed).
func Tracer() trace.Tracer {
	return otel.Tracer(tracerScope)
}

// StartRecordSpan starts a span for work on one person, task or agent and tags the
// returned context with the record for logging.
func StartRecordSpan(ctx context.Context, name, kind, externalID string) (context.Context, trace.Span) {
	kind = NormalizeKind(kind)
	ctx = WithRecord(ctx, kind, externalID)

	return Tracer().Start(ctx, name, trace.WithAttributes(
		attribute.String("record.kind", kind),
		attribute.String("record.external_id", externalID),
	))
}

// NewTracerProvider creates a batching TracerProvider for exporter ("otlp" or "stdout").
// An empty or unknown exporter disables tracing and returns (nil, nil).
func NewTracerProvider(exporter string) (*sdktrace.TracerProvider, error) {
	newExporter, ok := traceExporters[exporter]
	if !ok {
		//nolint:nilnil // tracing disabled, caller checks for nil
		return nil, nil
	}

	exp, err := newExporter(context.Background())
	if err != nil {
		return nil, fmt.Errorf("create %s trace exporter: %w", exporter, err)
	}

	return sdktrace.NewTracerProvider(sdktrace.WithResource(serviceResource(defaultServiceName)), sdktrace.WithBatcher(exp)), nil
}

// ShutdownTracerProvider flushes and shuts down the TracerProvider. Safe to call with nil.
func ShutdownTracerProvider(ctx context.Context, provider *sdktrace.TracerProvider) error {
	if provider == nil {
		return nil
	}

	if err := provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracer provider shutdown: %w", err)
	}

	return nil
}
