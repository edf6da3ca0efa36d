package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations.
var (
	ErrNotFound         = errors.New("entity not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrValidationFailed = errors.New("validation failed")

	// ErrLocked is returned by the Scrape-Run Coordinator when a brand's
	// lock could not be acquired because a run is already in progress and
	// has not gone stale. The API surface maps this to HTTP 409.
	ErrLocked = errors.New("brand is already being scraped")
)

// ValidationError carries the field that failed validation alongside a
// human-readable reason.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}
