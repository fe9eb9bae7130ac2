package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/huberrors"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/observability"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/repository"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/retry"
)

// SchemaEnsurer creates the tables when they are missing.
type SchemaEnsurer interface {
	Ensure(ctx context.Context) error
}

// insertEnsuringSchema runs insert; if it failed because the table does not exist yet, it
// ensures the schema and runs insert exactly once more.
func insertEnsuringSchema[T any](
	ctx context.Context, schema SchemaEnsurer, logger *slog.Logger, kind string, insert func(context.Context) (T, error),
) (T, error) {
	rec, err := insert(ctx)
	if err == nil || schema == nil || !repository.IsUndefinedTable(err) {
		return rec, err
	}

	logger.WarnContext(ctx, "table missing, creating schema and retrying insert", "kind", kind)

	if ensureErr := schema.Ensure(ctx); ensureErr != nil {
		var zero T

		return zero, fmt.Errorf("failed to create schema: %w", ensureErr)
	}

	return insert(ctx)
}

// extractWithRetry runs one extraction under the retry executor and records its outcome.
func extractWithRetry[T any](
	ctx context.Context, metrics observability.PipelineMetrics, kind string, maxAttempts int,
	extract func(context.Context) (*T, error),
) (*T, error) {
	res := retry.Do(ctx, "extract "+kind, maxAttempts, extract)

	outcome := observability.OutcomeSuccess
	if !res.OK() {
		outcome = observability.OutcomeExhausted
	}

	if metrics != nil {
		metrics.RecordExtraction(ctx, kind, outcome, res.Attempts)
	}

	if !res.OK() {
		return nil, fmt.Errorf("failed to extract %s: %w", kind, res.Err())
	}

	return res.Value, nil
}

func requireField(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", huberrors.Invalid(field, field+" is required")
	}

	return value, nil
}
