package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound         = errors.New("not found")
	ErrUnknownIndex     = errors.New("unknown index field")
	ErrServerIDConflict = errors.New("server id already assigned")

	// Write-path errors.
	ErrValidation = errors.New("validation error")

	// Queue processing errors.
	ErrUnsupportedAction = errors.New("unsupported queue action")
	ErrParentNotFound    = errors.New("parent record not found")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrUnauthorized = errors.New("unauthorized")
)
