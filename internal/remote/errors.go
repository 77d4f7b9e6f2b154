package remote

import (
	"errors"
	"fmt"
)

// TransportError means the call never completed (dial, TLS, timeout,
// cancellation).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError means the service answered with a non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %s", e.Op, e.Status)
}

// HTTPStatusCode exposes the response code to status-aware callers.
func (e *StatusError) HTTPStatusCode() int { return e.StatusCode }

// DecodeError means the response body could not be decoded.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Kind names the failure class of err: "transport", "status", "decode",
// or "other".
func Kind(err error) string {
	var te *TransportError
	var se *StatusError
	var de *DecodeError
	switch {
	case errors.As(err, &te):
		return "transport"
	case errors.As(err, &se):
		return "status"
	case errors.As(err, &de):
		return "decode"
	default:
		return "other"
	}
}
