// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Entity integrity errors. These indicate bugs or bad writes rather
	// than noisy input and must fail loudly.
	ErrDuplicateEntity  = errors.New("entity with identical type and identifier already exists")
	ErrOwnerCycle       = errors.New("entity owner reference forms a cycle")
	ErrProtectedEntity  = errors.New("household entity cannot be deactivated or deleted")
	ErrInvalidEntity    = errors.New("invalid entity")
	ErrUnknownReference = errors.New("referenced entity does not exist")

	// Insight errors.
	ErrInvalidTransition = errors.New("invalid insight status transition")

	// Extraction errors.
	ErrExtractionFailed = errors.New("fact extraction failed")
	ErrNoDocuments      = errors.New("no documents to process")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
