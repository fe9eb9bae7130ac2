package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics records extraction, embedding and delegation outcomes.
// Services accept a nil PipelineMetrics and skip recording.
type PipelineMetrics interface {
	RecordExtraction(ctx context.Context, kind, outcome string, attempts int)
	RecordEmbedding(ctx context.Context, kind, outcome string)
	RecordDelegation(ctx context.Context, outcome string, duration time.Duration)
}

// RecordExtraction implements PipelineMetrics.
func (m *Metrics) RecordExtraction(ctx context.Context, kind, outcome string, attempts int) {
	kind = NormalizeKind(kind)
	outcome = NormalizeOutcome(outcome)

	m.extractions.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrKind, kind),
		attribute.String(AttrOutcome, outcome),
	))

	if attempts > 0 {
		m.extractionAttempts.Add(ctx, int64(attempts), metric.WithAttributes(attribute.String(AttrKind, kind)))
	}
}

// RecordEmbedding implements PipelineMetrics.
func (m *Metrics) RecordEmbedding(ctx context.Context, kind, outcome string) {
	m.embeddings.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrKind, NormalizeKind(kind)),
		attribute.String(AttrOutcome, NormalizeOutcome(outcome)),
	))
}

// RecordDelegation implements PipelineMetrics.
func (m *Metrics) RecordDelegation(ctx context.Context, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String(AttrOutcome, NormalizeOutcome(outcome)))

	m.delegations.Add(ctx, 1, attrs)
	m.delegationDuration.Record(ctx, duration.Seconds(), attrs)
}
