package dashboard

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable marks failures to reach the statement store.
	ErrStoreUnavailable = errors.New("dashboard: statement store unavailable")

	// ErrDeadlineExceeded is returned when the caller's context expires or is
	// cancelled before a computation completes.
	ErrDeadlineExceeded = errors.New("dashboard: deadline exceeded")
)

// QueryError records which sub-computation failed and for what scope.
type QueryError struct {
	Op    string
	Scope Scope
	Range *DateRange
	Err   error
}

func (e *QueryError) Error() string {
	if e.Range != nil {
		return fmt.Sprintf("dashboard %s (%s, %s): %v", e.Op, e.Scope, e.Range, e.Err)
	}
	return fmt.Sprintf("dashboard %s (%s): %v", e.Op, e.Scope, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

func queryError(ctx context.Context, op string, scope Scope, rng *DateRange, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		err = fmt.Errorf("%w: %w", ErrDeadlineExceeded, err)
	}
	return &QueryError{Op: op, Scope: scope, Range: rng, Err: err}
}
