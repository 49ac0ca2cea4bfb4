package prompt

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAborted is returned by Run when the user escapes or abandons.
	ErrAborted = errors.New("prompt aborted")
	// ErrTimeout matches any *TimeoutError.
	ErrTimeout = errors.New("prompt timed out")
	// ErrNotIdle is returned when Run is called on a started session.
	ErrNotIdle = errors.New("prompt already started")
	// ErrClosed is returned when messages are sent to a finished session.
	ErrClosed = errors.New("prompt closed")
)

// TimeoutError reports that the session timeout elapsed before submission.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("prompt timed out after %s", e.After)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// ValidationError reports a value rejected by the validator.
type ValidationError struct {
	Value  any
	Reason string
	Cause  error
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}
