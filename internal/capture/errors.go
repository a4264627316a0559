package capture

import (
	"errors"
	"fmt"

	"github.com/smazurov/vcapture/pkg/xlnx"
)

// Error codes.
const (
	ErrCodeResourceExhausted    = "RESOURCE_EXHAUSTED"
	ErrCodeInitializationFailed = "INITIALIZATION_FAILED"
	ErrCodeOutOfRange           = "OUT_OF_RANGE"
	ErrCodeInvalidArgument      = "INVALID_ARGUMENT"
	ErrCodeClosed               = "CLOSED"
	ErrCodeDriver               = "DRIVER_ERROR"
)

// Error represents a capture error with a code.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches sentinel errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Message == "" && t.Code == e.Code
}

func newError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Sentinels for errors.Is.
var (
	ErrResourceExhausted    = &Error{Code: ErrCodeResourceExhausted}
	ErrInitializationFailed = &Error{Code: ErrCodeInitializationFailed}
	ErrOutOfRange           = &Error{Code: ErrCodeOutOfRange}
	ErrInvalidArgument      = &Error{Code: ErrCodeInvalidArgument}
	ErrClosed               = &Error{Code: ErrCodeClosed}
	ErrDriver               = &Error{Code: ErrCodeDriver}
)

// RangeError reports a frame index outside [Min, Max].
type RangeError struct {
	Index int
	Min   int
	Max   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: index %d out of range [%d,%d]", ErrCodeOutOfRange, e.Index, e.Min, e.Max)
}

// Is matches ErrOutOfRange.
func (e *RangeError) Is(target error) bool {
	return target == ErrOutOfRange
}

// InitError carries the raw driver status of a rejected configuration.
type InitError struct {
	Status xlnx.Status
}

func (e *InitError) Error() string {
	return fmt.Sprintf("%s: video capture initialization failed [%d]: %s", ErrCodeInitializationFailed, int(e.Status), e.Status)
}

// Is matches ErrInitializationFailed.
func (e *InitError) Is(target error) bool {
	return target == ErrInitializationFailed
}

// CodeOf returns the capture error code carried by err, or "" if none.
func CodeOf(err error) string {
	var rangeErr *RangeError
	if errors.As(err, &rangeErr) {
		return ErrCodeOutOfRange
	}
	var initErr *InitError
	if errors.As(err, &initErr) {
		return ErrCodeInitializationFailed
	}
	var capErr *Error
	if errors.As(err, &capErr) {
		return capErr.Code
	}
	return ""
}
