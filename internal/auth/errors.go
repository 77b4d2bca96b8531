package auth

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds used as the error_type attribute on the error counter.
const (
	// KindInvalidInput marks malformed or rejected request input.
	KindInvalidInput = "invalid_input"

	// KindTimeout marks a domain operation that exceeded its deadline.
	KindTimeout = "timeout"

	// KindCanceled marks a domain operation aborted by context
	// cancellation.
	KindCanceled = "canceled"

	// KindInternal is the fallback for errors with no more specific
	// classification.
	KindInternal = "internal"
)

// Error is a classified domain error. Kind feeds the error_type metric
// attribute; the wrapped error carries the cause.
type Error struct {
	Kind string
	err  error
}

// NewError builds a classified error from a message.
func NewError(kind, format string, args ...any) *Error {
	return &Error{Kind: kind, err: fmt.Errorf(format, args...)}
}

// WrapError classifies an existing error. Returns nil when err is nil.
func WrapError(kind string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, err: err}
}

func (e *Error) Error() string {
	if e.err == nil {
		return e.Kind
	}
	return e.err.Error()
}

func (e *Error) Unwrap() error { return e.err }

// KindOf classifies an arbitrary error into a metric-safe kind string.
// Classified errors report their own kind; context errors map to
// timeout and canceled; everything else is internal.
func KindOf(err error) string {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	default:
		return KindInternal
	}
}
