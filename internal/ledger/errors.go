package ledger

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrorClass partitions backend failures for diagnostics. All three backend
// classes collapse into the same caller-visible effect (fallback); the class
// only survives in logs, metrics, and probe results.
type ErrorClass string

const (
	// ClassUnavailable covers DNS failures, connection refusal, and any
	// other transport-level inability to reach the backend.
	ClassUnavailable ErrorClass = "unavailable"
	// ClassTimeout means the per-attempt deadline was exceeded.
	ClassTimeout ErrorClass = "timeout"
	// ClassRejected means the backend was reachable but returned a semantic
	// error (unknown function, bad arguments, reverted transaction).
	ClassRejected ErrorClass = "rejected"
)

// ErrInvalidInput is returned for caller mistakes (negative price, empty
// event type). It is surfaced synchronously and never downgraded to fallback.
var ErrInvalidInput = errors.New("invalid input")

// ErrConfiguration is returned when the selected ledger mode is missing
// required settings. Raised at startup, never mid-call.
var ErrConfiguration = errors.New("ledger configuration error")

// BackendError wraps a failure from a concrete backend with its
// classification and the operation that produced it.
type BackendError struct {
	Backend string
	Op      string
	Class   ErrorClass
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend: %s: %s: %v", e.Backend, e.Op, e.Class, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// backendErr builds a BackendError, classifying err when no explicit class
// is forced by the caller.
func backendErr(backend, op string, err error) *BackendError {
	return &BackendError{Backend: backend, Op: op, Class: Classify(err), Err: err}
}

// rejectedErr builds a BackendError for a semantic rejection.
func rejectedErr(backend, op string, err error) *BackendError {
	return &BackendError{Backend: backend, Op: op, Class: ClassRejected, Err: err}
}

// Classify maps a transport error onto an ErrorClass. Deadline and
// cancellation map to timeout, resolution and connection failures to
// unavailable, everything else to rejected.
func Classify(err error) ErrorClass {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Class
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ClassTimeout
	}

	var ue *url.Error
	if errors.As(err, &ue) {
		if ue.Timeout() {
			return ClassTimeout
		}
		return ClassUnavailable
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ClassUnavailable
	}

	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return ClassTimeout
		}
		return ClassUnavailable
	}

	return ClassRejected
}
