package ledger

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"deadline", context.DeadlineExceeded, ClassTimeout},
		{"cancelled", context.Canceled, ClassTimeout},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), ClassTimeout},
		{"dns", &net.DNSError{Err: "no such host", Name: "gateway.invalid"}, ClassUnavailable},
		{"url connection", &url.Error{Op: "Post", URL: "http://x", Err: errors.New("connection refused")}, ClassUnavailable},
		{"url timeout", &url.Error{Op: "Post", URL: "http://x", Err: timeoutErr{}}, ClassTimeout},
		{"semantic", errors.New("chaincode function not found"), ClassRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v): got %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassify_backendErrorKeepsClass(t *testing.T) {
	inner := &BackendError{Backend: "gateway", Op: "record", Class: ClassUnavailable, Err: errors.New("refused")}
	wrapped := fmt.Errorf("record: %w", inner)

	if got := Classify(wrapped); got != ClassUnavailable {
		t.Errorf("got %q, want %q", got, ClassUnavailable)
	}
}

func TestBackendError_unwrap(t *testing.T) {
	base := errors.New("boom")
	be := backendErr("gateway", "verify", fmt.Errorf("wrap: %w", base))

	if !errors.Is(be, base) {
		t.Error("BackendError should unwrap to the original error")
	}
	if be.Class != ClassRejected {
		t.Errorf("plain error class: got %q, want %q", be.Class, ClassRejected)
	}
}

func TestRejectedErr_forcesClass(t *testing.T) {
	be := rejectedErr("chain", "record", context.DeadlineExceeded)
	if be.Class != ClassRejected {
		t.Errorf("got %q, want %q", be.Class, ClassRejected)
	}
}

// timeoutErr satisfies net.Error with Timeout() == true.
type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }
