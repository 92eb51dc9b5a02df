package service

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when no bug exists with the requested id.
var ErrNotFound = errors.New("bug not found")

// ValidationError carries every rule the caller's payload violated, in
// report order.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// InternalError wraps store failures and other unexpected faults. Op names the
// failing operation; Err keeps the cause for logs.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *InternalError) Unwrap() error {
	return e.Err
}
