package homework

import (
	"errors"
	"fmt"
)

// ErrInvalidPayload is matched by every error this package returns.
var ErrInvalidPayload = errors.New("invalid payload")

// SchemaError reports a malformed response or element shape.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string { return "schema error: " + e.Reason }

func (e *SchemaError) Is(target error) bool { return target == ErrInvalidPayload }

// MissingFieldError reports a work item without a required key.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("key %s not found in homework", e.Field)
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrInvalidPayload }

// UnknownStatusError reports a status that has no verdict in the catalog.
type UnknownStatusError struct {
	Status string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown homework status %q", e.Status)
}

func (e *UnknownStatusError) Is(target error) bool { return target == ErrInvalidPayload }
