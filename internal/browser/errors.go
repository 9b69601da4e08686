package browser

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// ErrorKind tags a check failure with its retry class. Classification
// happens at the point of origin (the navigation or pool call), never by
// scanning error message text downstream.
type ErrorKind int

const (
	// KindTransient covers timeouts, connection resets, and DNS failures;
	// retried with bounded exponential backoff inside navigation only
	KindTransient ErrorKind = iota
	// KindPermanent covers malformed URLs and invalid selector syntax;
	// fails immediately without retry
	KindPermanent
	// KindResource covers pool exhaustion and browser-process crashes;
	// aborts only the affected check
	KindResource
	// KindTimeout covers the overall per-check budget being exceeded
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindResource:
		return "resource"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is a tagged check error
type Error struct {
	Kind ErrorKind
	Op   string // originating operation, e.g. "navigate", "acquire"
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with an explicit kind tag
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the tag of err, or KindPermanent when err carries no tag.
// Untagged errors default to permanent so an unclassified failure is
// never retried blindly.
func KindOf(err error) ErrorKind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindPermanent
}

// IsTransient reports whether err is tagged retryable
func IsTransient(err error) bool {
	var be *Error
	return errors.As(err, &be) && be.Kind == KindTransient
}

// classifyNavigation tags a navigation failure based on the underlying
// error type. context deadline means the wait condition timed out;
// net/dns/connection errors are transient; everything else (bad URL,
// protocol errors) is permanent.
func classifyNavigation(op string, err error) *Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return NewError(KindTransient, op, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return NewError(KindTransient, op, err)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return NewError(KindTransient, op, err)
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return NewError(KindTransient, op, err)
	}

	return NewError(KindPermanent, op, err)
}
