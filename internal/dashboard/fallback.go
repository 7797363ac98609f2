package dashboard

import (
	"context"
	"fmt"
)

// Reason says why a Fallback substituted its fixed value.
type Reason string

const (
	ReasonUnavailable Reason = "unavailable"
	ReasonError       Reason = "error"
	ReasonPanic       Reason = "panic"
)

// Result is the outcome of Fallback.Run. Degraded is set when Data is the
// fixed fallback value; Err carries the triggering error, if any.
type Result[T any] struct {
	Data     T
	Degraded bool
	Reason   Reason
	Err      error
}

// Fallback runs an operation and substitutes a fixed value when the
// precondition fails, the operation errors, or it panics.
type Fallback[T any] struct {
	// Value builds the substitute. It must not fail.
	Value func() T
	// Available is checked first; false skips the operation entirely.
	// Nil means always available.
	Available func() bool
	// OnDegrade, if set, is called once per substitution.
	OnDegrade func(reason Reason, err error)
}

func (f Fallback[T]) Run(ctx context.Context, op func(context.Context) (T, error)) (res Result[T]) {
	if f.Available != nil && !f.Available() {
		return f.degrade(ReasonUnavailable, nil)
	}

	defer func() {
		if r := recover(); r != nil {
			res = f.degrade(ReasonPanic, fmt.Errorf("dashboard: recovered panic: %v", r))
		}
	}()

	data, err := op(ctx)
	if err != nil {
		return f.degrade(ReasonError, err)
	}
	return Result[T]{Data: data}
}

func (f Fallback[T]) degrade(reason Reason, err error) Result[T] {
	if f.OnDegrade != nil {
		f.OnDegrade(reason, err)
	}
	return Result[T]{Data: f.Value(), Degraded: true, Reason: reason, Err: err}
}
