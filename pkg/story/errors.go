package story

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when no usable backend credential is present.
var ErrNotConfigured = errors.New("generation backend is not configured")

// ErrInputTooShort is returned by speech synthesis for degenerate input.
var ErrInputTooShort = errors.New("text too short for speech generation")

// UpstreamError is a non-success response from a reachable backend.
type UpstreamError struct {
	Status int
	Detail string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream request failed with status %d: %s", e.Status, e.Detail)
}

// TransportError is a network-level failure reaching a backend.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsUpstream reports whether err wraps an UpstreamError.
func IsUpstream(err error) bool {
	var u *UpstreamError
	return errors.As(err, &u)
}

// IsTransport reports whether err wraps a TransportError.
func IsTransport(err error) bool {
	var t *TransportError
	return errors.As(err, &t)
}
