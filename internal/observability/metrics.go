package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	prometheusexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const (
	meterScope         = "github.com/404drakefound/ucl-deepflow-task-delegation/internal/observability"
	defaultServiceName = "delegation-hub"
	cardinalityLimit   = 2000
)

// latencyHistogramBoundaries are request-scale buckets (seconds).
var latencyHistogramBoundaries = []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5}

// pipelineHistogramBoundaries cover model round trips, which take seconds rather than milliseconds.
var pipelineHistogramBoundaries = []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120}

// HTTPMetrics records HTTP request metrics.
type HTTPMetrics interface {
	RecordRequest(ctx context.Context, method, route, statusClass string, duration time.Duration)
	RecordRequestBodyTooLarge(ctx context.Context)
}

// MeterProviderShutdown is the subset of the SDK MeterProvider needed for shutdown.
type MeterProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// MeterProviderConfig holds configuration for creating the MeterProvider and metrics.
type MeterProviderConfig struct {
	// ServiceName is used in the resource (default: delegation-hub).
	ServiceName string
}

// Metrics implements HTTPMetrics and PipelineMetrics on one meter.
type Metrics struct {
	requestCount        metric.Int64Counter
	requestDuration     metric.Float64Histogram
	requestBodyTooLarge metric.Int64Counter
	extractions         metric.Int64Counter
	extractionAttempts  metric.Int64Counter
	embeddings          metric.Int64Counter
	delegations         metric.Int64Counter
	delegationDuration  metric.Float64Histogram
}

// NewMeterProvider creates a MeterProvider with Prometheus exporter and returns the provider,
// an HTTP handler for /metrics, and Metrics that use the provider's Meter.
// Caller must call provider.Shutdown on exit. When metrics are disabled, pass nil for metrics at call sites.
func NewMeterProvider(_ context.Context, cfg MeterProviderConfig) (provider MeterProviderShutdown, metricsHandler http.Handler, metrics *Metrics, err error) {
	serviceNameVal := cfg.ServiceName
	if serviceNameVal == "" {
		serviceNameVal = defaultServiceName
	}

	res := serviceResource(serviceNameVal)

	reg := prometheus.NewRegistry()

	exporter, err := prometheusexporter.New(
		prometheusexporter.WithRegisterer(reg),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
		sdkmetric.WithCardinalityLimit(cardinalityLimit),
		sdkmetric.WithView(
			sdkmetric.NewView(
				sdkmetric.Instrument{Name: MetricNameRequestDuration},
				sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: latencyHistogramBoundaries}},
			),
			sdkmetric.NewView(
				sdkmetric.Instrument{Name: MetricNameDelegationDuration},
				sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: pipelineHistogramBoundaries}},
			),
		),
	)

	metrics, err = NewMetrics(mp.Meter(meterScope))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create metrics instruments: %w", err)
	}

	metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	return mp, metricsHandler, metrics, nil
}

// serviceResource describes the process to both providers. It is built directly instead of
// merged with resource.Default(), whose schema URL follows the SDK's semconv version.
func serviceResource(serviceName string) *resource.Resource {
	return resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName))
}

// NewMetrics creates every instrument on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.requestCount, MetricNameRequestCount, "Total HTTP requests"},
		{&m.requestBodyTooLarge, MetricNameRequestBodyTooLarge, "Requests rejected because the body exceeded the configured limit (413)"},
		{&m.extractions, MetricNameExtractions, "Structured extraction outcomes by kind"},
		{&m.extractionAttempts, MetricNameExtractionAttempts, "Model calls made by retried extractions, by kind"},
		{&m.embeddings, MetricNameEmbeddings, "Embedding outcomes by kind (unavailable means the record was stored without a vector)"},
		{&m.delegations, MetricNameDelegations, "Delegation outcomes"},
	}

	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.name, err)
		}
	}

	m.requestDuration, err = meter.Float64Histogram(
		MetricNameRequestDuration,
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameRequestDuration, err)
	}

	m.delegationDuration, err = meter.Float64Histogram(
		MetricNameDelegationDuration,
		metric.WithDescription("Delegation duration in seconds, including the decision model call"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameDelegationDuration, err)
	}

	return &m, nil
}

// RecordRequest implements HTTPMetrics.
func (m *Metrics) RecordRequest(ctx context.Context, method, route, statusClass string, duration time.Duration) {
	attrs := attribute.NewSet(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status_class", statusClass),
	)
	m.requestCount.Add(ctx, 1, metric.WithAttributeSet(attrs))

	durAttrs := attribute.NewSet(
		attribute.String("method", method),
		attribute.String("route", route),
	)
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributeSet(durAttrs))
}

// RecordRequestBodyTooLarge implements HTTPMetrics.
func (m *Metrics) RecordRequestBodyTooLarge(ctx context.Context) {
	m.requestBodyTooLarge.Add(ctx, 1)
}
