package routing

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for requests rejected before any graph work
	ErrInvalidInput = errors.New("invalid routing input")

	// ErrInvalidDistance is returned for negative or non-finite edge distances
	ErrInvalidDistance = fmt.Errorf("%w: distance must be a finite non-negative number", ErrInvalidInput)
)

// InputError describes which part of a request was rejected and why
type InputError struct {
	Field  string
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap exposes the sentinel so callers can use errors.Is
func (e *InputError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

func invalidField(field, format string, args ...any) *InputError {
	return &InputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
