package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// RequestError wraps any fault raised while performing a network attempt,
// keeping the original cause reachable for classification.
type RequestError struct {
	message string
	cause   error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request error: %s: %v", e.message, e.cause)
}

func (e *RequestError) Unwrap() error {
	return e.cause
}

// Cause returns the underlying fault that triggered the error.
func (e *RequestError) Cause() error {
	return e.cause
}

// NewRequestError creates a RequestError wrapping the given cause.
func NewRequestError(message string, cause error) *RequestError {
	return &RequestError{message: message, cause: cause}
}

// IsTransient reports whether err stems from a fault class known to clear
// on its own: connection resets, truncated chunked bodies, and read
// timeouts.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
