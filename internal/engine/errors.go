package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/rotation/internal/record"
)

// ErrContention is wrapped in the StoreError returned when conflicts on a
// group persisted through every attempt.
var ErrContention = errors.New("contention did not resolve")

// newContentionError reports exhausted conflict retries as a StoreError.
// The last conflict is kept as text only, so IsConflict reports false and
// callers see a plain storage failure.
func newContentionError(group string, attempts int, last error) error {
	return &record.StoreError{
		Op:    "upsert",
		Group: group,
		Err:   fmt.Errorf("%w after %d attempts: %v", ErrContention, attempts, last),
	}
}

// IsContentionError returns true if err reports exhausted conflict retries.
// Uses errors.Is to handle wrapped errors.
func IsContentionError(err error) bool {
	return errors.Is(err, ErrContention)
}
