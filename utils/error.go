package utils

import (
	"errors"
	"fmt"
	"strings"
)

var ErrorRecordNotFound = errors.New("record not found")

// ValidationError reports a missing or invalid input field.
// Surfaced to the caller immediately, never retried, no partial write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func NewValidationError(field string, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StorageCorruptionError means the primary store was unreadable and the
// backup fallback also failed. Attempts holds human-readable descriptions of
// what was tried (base names only, never full paths).
type StorageCorruptionError struct {
	Collection string
	Attempts   []string
	Err        error
}

func (e *StorageCorruptionError) Error() string {
	return fmt.Sprintf("collection %q is unreadable (attempted: %s)", e.Collection, strings.Join(e.Attempts, ", "))
}

func (e *StorageCorruptionError) Unwrap() error {
	return e.Err
}
