package domain

import "errors"

// Sentinel errors shared by services and storage backends. Backends wrap
// these with context; callers match with errors.Is.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrAlreadyExists       = errors.New("user already exists")
	ErrSelfFollow          = errors.New("users cannot follow themselves")
	ErrInvalidToken        = errors.New("invalid token")
	ErrTransactionConflict = errors.New("transaction conflict: retries exhausted")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUserInactive        = errors.New("user account is not open")
)
