/*
errors.go - Error types for the society engine

ERROR CATEGORIES:
  1. NotFound     - update/delete of an id that does not exist
  2. DuplicateKey - a uniqueness invariant (house number, vehicle number)
  3. Validation   - amount bounds, enum values, malformed snapshot documents
  4. Storage      - KV misses and undecodable collections

  Callers match categories with errors.Is against the sentinels, or errors.As
  against the structured types for field-level detail.

SEE ALSO:
  - api/handlers.go: maps categories to HTTP status codes
*/
package society

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrValidation   = errors.New("validation failed")

	// ErrKeyNotFound is returned by KV.Get for a key that was never set.
	ErrKeyNotFound = errors.New("key not found")

	// ErrCorruptCollection is returned when a stored collection cannot be decoded.
	ErrCorruptCollection = errors.New("corrupt collection")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind EntityKind
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// DuplicateKeyError names the natural key that collided.
type DuplicateKeyError struct {
	Kind  EntityKind
	Field string
	Value string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s %s %q already exists", e.Kind, e.Field, e.Value)
}

func (e *DuplicateKeyError) Unwrap() error { return ErrDuplicateKey }

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func notFound(kind EntityKind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrDuplicateKey)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
