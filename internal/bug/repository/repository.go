package repository

import (
	"errors"
	"strings"
)

var (
	ErrNotFound = errors.New("bug not found")
	// ErrInvalidID is returned when an id is not a well-formed store identifier.
	ErrInvalidID = errors.New("invalid bug id")
)

// SchemaError reports a document rejected by the store's own constraints.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return "schema validation failed: " + strings.Join(e.Violations, "; ")
}
