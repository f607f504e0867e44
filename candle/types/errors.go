package types

import (
	"errors"
	"fmt"
)

// ErrListenerClosed marks a send against a session whose transport is
// already closed. Broadcast ignores it silently; the session layer reaps
// the listener once the disconnect propagates.
var ErrListenerClosed = errors.New("listener closed")

// ValidationError reports a client-correctable problem: a bad tag, an
// unknown exchange, interval or network, or a malformed symbol. It is
// surfaced to the originating session only and is never fatal.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Validationf formats a new ValidationError.
func Validationf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// LookupError reports an upstream HTTP or JSON failure, or an empty result
// where one was required. Source names the upstream venue.
type LookupError struct {
	Source string
	Err    error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("failed to fetch data from %s: %v", e.Source, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// Lookupf wraps a formatted error as a LookupError for the given source.
func Lookupf(source, format string, args ...interface{}) *LookupError {
	return &LookupError{Source: source, Err: fmt.Errorf(format, args...)}
}
