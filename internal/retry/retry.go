// Package retry runs an operation up to a fixed number of attempts.
//
// Attempts are immediate: there is no backoff, no jitter and no error classification.
// Every failure, including a panic inside the operation, counts as one attempt.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/huberrors"
)

// errNotAttempted is the cause reported when the budget allowed no attempt at all.
var errNotAttempted = errors.New("no attempts allowed")

// Result is either a value (OK reports true) or "no result".
type Result[T any] struct {
	Value    T
	Attempts int

	ok      bool
	lastErr error
}

// OK reports whether an attempt succeeded.
func (r Result[T]) OK() bool {
	return r.ok
}

// Err returns nil on success. Otherwise it wraps huberrors.ErrRetryExhausted; the last
// attempt error appears in the message only.
func (r Result[T]) Err() error {
	if r.ok {
		return nil
	}

	cause := r.lastErr
	if cause == nil {
		cause = errNotAttempted
	}

	// Only ErrRetryExhausted is matchable; the cause is kept as text for logs.
	return fmt.Errorf("%w after %d attempt(s): %v", huberrors.ErrRetryExhausted, r.Attempts, cause) //nolint:errorlint // cause is not part of the contract
}

// Do invokes op until it succeeds or maxAttempts invocations have failed.
// maxAttempts <= 0 returns "no result" without invoking op. A cancelled context stops
// further attempts.
func Do[T any](ctx context.Context, name string, maxAttempts int, op func(ctx context.Context) (T, error)) Result[T] {
	var res Result[T]

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if res.lastErr == nil {
				res.lastErr = err
			}

			break
		}

		res.Attempts = attempt

		value, err := invoke(ctx, op)
		if err == nil {
			res.Value = value
			res.ok = true
			res.lastErr = nil

			return res
		}

		res.lastErr = err

		slog.WarnContext(ctx, "attempt failed",
			"operation", name,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"error", err,
		)
	}

	return res
}

func invoke[T any](ctx context.Context, op func(ctx context.Context) (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T

			value = zero
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()

	return op(ctx)
}
