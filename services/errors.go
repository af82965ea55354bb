package services

import (
	"errors"
	"fmt"

	"tourbook/database/docstore"
)

// Errors returned by the reservation, rating and catalog services.
// Callers match them with errors.Is; the wrapped message carries the detail.
var (
	// ErrNotFound means the referenced tour or booking does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyBooked means the user already holds an active booking for the tour.
	ErrAlreadyBooked = errors.New("tour already booked by this user")
	// ErrInvalidInput is returned before any store call is made.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStoreUnavailable wraps store failures and timeouts. Retryable.
	ErrStoreUnavailable = errors.New("document store unavailable")
	// ErrConflict surfaces only after the internal retry budget is spent.
	ErrConflict = errors.New("concurrent modification conflict")
	// ErrForbidden means the caller may not perform the operation on this resource.
	ErrForbidden = errors.New("forbidden")
	// ErrCorruptData means a stored document no longer matches its model.
	// Retrying will not help.
	ErrCorruptData = errors.New("stored data is corrupt")
)

// IsRetryable reports whether a caller may safely retry the failed operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrConflict)
}

// StoreError classifies a repository error into the service error kinds while
// keeping the original error in the chain.
func StoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, docstore.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, docstore.ErrVersionConflict):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, docstore.ErrMalformed):
		return fmt.Errorf("%w: %w", ErrCorruptData, err)
	default:
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
}

// InvalidInput builds an ErrInvalidInput with a field-level reason.
func InvalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
