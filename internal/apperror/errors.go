package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by how the pipeline recovers from it.
type Kind string

// Error kinds
const (
	KindTransientFetch    Kind = "TRANSIENT_FETCH"
	KindMalformedResponse Kind = "MALFORMED_RESPONSE"
	KindMalformedPoint    Kind = "MALFORMED_POINT"
	KindUnavailable       Kind = "UNAVAILABLE"
	KindStore             Kind = "STORE"
)

// Error represents a classified error with additional context
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a new classified error
func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Transient wraps a network, status or timeout failure.
func Transient(message string, err error) *Error {
	return New(KindTransientFetch, message, err)
}

// Malformed wraps a response whose shape could not be understood.
func Malformed(message string, err error) *Error {
	return New(KindMalformedResponse, message, err)
}

// Unavailable reports that no valid data exists from any source.
func Unavailable(series string, err error) *Error {
	return New(KindUnavailable, series+" data unavailable", err)
}

// KindOf returns the kind of the first classified error in err's chain.
// Unclassified errors are reported as transient fetch failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransientFetch
}

// IsUnavailable reports whether err is a hard "no data" failure.
func IsUnavailable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindUnavailable
}
