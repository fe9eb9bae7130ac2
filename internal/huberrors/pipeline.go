package huberrors

import "errors"

// Extraction failures. Each one counts as a failed attempt for the retry executor.
var (
	// ErrEmptyResponse is returned when the generative model replies with no content.
	ErrEmptyResponse = errors.New("model returned an empty response")
	// ErrMalformedOutput is returned when the model content is not a JSON object.
	ErrMalformedOutput = errors.New("model output is not a JSON object")
	// ErrSchemaViolation is returned when the parsed object misses a required field,
	// carries a field of the wrong type, or breaks a value constraint.
	ErrSchemaViolation = errors.New("model output does not match the schema")
)

// ErrEmbeddingUnavailable marks an embedding that could not be produced. It is only logged;
// records are stored with an absent vector instead.
var ErrEmbeddingUnavailable = errors.New("embedding unavailable")

// ErrRetryExhausted is returned once every attempt of a retried operation failed.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// ErrDuplicateExternalID is returned when a person with the same external id already exists.
var ErrDuplicateExternalID = &Error{Kind: KindConflict, Resource: "person", Message: "external id already exists"}

// Matching failures.
var (
	ErrTaskNotFound = errors.New("task not found")
	ErrNoEmbedding  = errors.New("task has no embedding")
)
