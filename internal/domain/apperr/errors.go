// Package apperr defines the error kinds shared by all services.
// Callers classify failures with errors.Is against these sentinels.
package apperr

import "errors"

var (
	// ErrNotFound is returned when a referenced id is absent or soft-deleted.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when an action is not legal from the
	// current status. Checked before any mutation is attempted.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrConcurrentModification is returned when a conditional update lost
	// the race against another transition. The caller may re-read and retry;
	// the engine never retries on its own.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrValidation is returned for malformed input, before touching storage.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned on a uniqueness violation, such as a duplicate
	// digital signature or a duplicate resident NIK.
	ErrConflict = errors.New("conflict")
)
