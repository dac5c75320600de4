package record

import (
	"errors"
	"fmt"
)

// ErrConflict signals that another writer changed or created the group's
// record between read and write. Stores wrap it; the engine retries on it.
var ErrConflict = errors.New("concurrent update conflict")

// ValidationError reports input rejected before any store mutation.
type ValidationError struct {
	// Field names the offending input ("group", "candidate_ids", ...).
	Field string

	// Reason is a human-readable description.
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StoreError reports a storage failure. Callers own the retry policy.
type StoreError struct {
	// Op is the store operation that failed ("find", "upsert", "delete", "stats").
	Op string

	// Group is the affected group key, if any.
	Group string

	// Err is the underlying cause.
	Err error
}

func (e *StoreError) Error() string {
	if e.Group != "" {
		return fmt.Sprintf("store %s (group=%s): %v", e.Op, e.Group, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps err as a StoreError. Returns nil if err is nil.
// Errors that already are a StoreError or a ValidationError are returned unchanged.
func NewStoreError(op, group string, err error) error {
	if err == nil {
		return nil
	}
	if IsStoreError(err) || IsValidationError(err) {
		return err
	}
	return &StoreError{Op: op, Group: group, Err: err}
}

// Conflict wraps cause so that IsConflict reports true.
func Conflict(op, group string, cause error) error {
	if cause == nil {
		return &StoreError{Op: op, Group: group, Err: ErrConflict}
	}
	return &StoreError{Op: op, Group: group, Err: fmt.Errorf("%w: %v", ErrConflict, cause)}
}

// IsValidationError reports whether err is, or wraps, a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err wraps ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsStoreError reports whether err is, or wraps, a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
