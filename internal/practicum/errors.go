package practicum

import "fmt"

// TransportError wraps a connection-level failure (DNS, refused, timeout).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "status api unreachable: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// UnexpectedStatusError reports a non-200 response. The body is not kept.
type UnexpectedStatusError struct {
	Code int
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("status api responded with %d", e.Code)
}

// DecodeError reports a 200 response whose body is not valid JSON.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "status api body is not json: " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }
