// Package observability provides OpenTelemetry metrics and tracing for the delegation hub.
package observability

// Metric names (Prometheus / OpenTelemetry).
const (
	MetricNameRequestCount        = "http.server.request_count"
	MetricNameRequestDuration     = "http.server.duration"
	MetricNameRequestBodyTooLarge = "http_request_body_too_large_total"
	MetricNameExtractions         = "pipeline_extractions_total"
	MetricNameExtractionAttempts  = "pipeline_extraction_attempts_total"
	MetricNameEmbeddings          = "pipeline_embeddings_total"
	MetricNameDelegations         = "pipeline_delegations_total"
	MetricNameDelegationDuration  = "pipeline_delegation_duration_seconds"
)

// Attribute keys.
const (
	AttrKind    = "kind"
	AttrOutcome = "outcome"
)

// Record kinds passed through the pipeline.
const (
	KindPerson     = "person"
	KindTask       = "task"
	KindAgent      = "agent"
	KindDelegation = "delegation"
)

// Pipeline outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeExhausted   = "exhausted"
	OutcomeUnavailable = "unavailable"
	OutcomeTaskMissing = "task_not_found"
	OutcomeNoEmbedding = "no_embedding"
	OutcomeError       = "error"
)

var allowedKinds = map[string]bool{
	KindPerson:     true,
	KindTask:       true,
	KindAgent:      true,
	KindDelegation: true,
}

var allowedOutcomes = map[string]bool{
	OutcomeSuccess:     true,
	OutcomeExhausted:   true,
	OutcomeUnavailable: true,
	OutcomeTaskMissing: true,
	OutcomeNoEmbedding: true,
	OutcomeError:       true,
}

// NormalizeKind returns kind if known, otherwise "unknown".
func NormalizeKind(kind string) string {
	if allowedKinds[kind] {
		return kind
	}

	return "unknown"
}

// NormalizeOutcome returns outcome if known, otherwise "other".
func NormalizeOutcome(outcome string) string {
	if allowedOutcomes[outcome] {
		return outcome
	}

	return "other"
}
