package backend

import (
	"fmt"
	"net/http"
)

// StatusError is a typed upstream protocol error: the backend answered with
// an HTTP status outside the set this layer accepts for the given verb. It
// carries the backend status code with fidelity — this layer never masks it.
type StatusError struct {
	Method string
	Path   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s %s: unexpected status %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// NewStatusError builds a StatusError for the given method/path/status.
func NewStatusError(method, path string, status int) *StatusError {
	return &StatusError{Method: method, Path: path, Status: status}
}

// TransportError wraps a network-level failure (connection refused, timeout,
// DNS failure, ...). Per spec §7 kind 2, callers treat this as "not found"
// for metadata lookups and as a plain I/O error for streaming bodies.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("backend %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NewTransportError wraps a transport-level err, or returns nil if err is nil.
func NewTransportError(method, path string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Method: method, Path: path, Err: err}
}
