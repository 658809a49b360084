package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("could not read database row")

	// Intake errors
	ErrPollingConflict = errors.New("another consumer is polling with the same token")
	ErrLockNotAcquired = errors.New("lock is held by another process")

	// Payment errors
	ErrPaymentsDisabled  = errors.New("payments are disabled")
	ErrInvalidTransition = errors.New("invalid purchase status transition")
)

// RetryAfterError is returned by outbound messaging when the platform asks
// the caller to slow down.
type RetryAfterError struct {
	After time.Duration
	Err   error
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s: %v", e.After, e.Err)
}

func (e *RetryAfterError) Unwrap() error { return e.Err }
