package domain

import "errors"

// Error message string constants - single source of truth for error messages
// Use these in assert.Contains() checks when testing error messages
const (
	// Input errors
	ErrMsgInvalidInput = "invalid input"

	// Lookup errors
	ErrMsgNotFound = "record not found"

	// Storage errors
	ErrMsgConstraintViolation = "constraint violation"
	ErrMsgStorageUnavailable  = "storage unavailable"
	ErrMsgNotInitialized      = "store not initialized"
	ErrMsgUnderlyingStore     = "underlying store error"

	// Session errors
	ErrMsgSessionNotFound    = "check-in session not found"
	ErrMsgSessionAlreadyOpen = "store already has an open check-in session"

	// Auth errors
	ErrMsgInvalidCredentials = "invalid username or password"
	ErrMsgForbidden          = "forbidden"

	// Transaction errors
	ErrMsgTxClosed = "tx is closed"
)

// Common domain errors
// These errors should be used consistently across all layers of the application.
// Wrap these errors with fmt.Errorf("%w: %s", domain.ErrXxx, details) for additional context.
var (
	ErrInvalidInput = errors.New(ErrMsgInvalidInput)
	ErrNotFound     = errors.New(ErrMsgNotFound)

	// ErrConstraintViolation is returned alongside ErrUnderlyingStore when the
	// backend rejects a write for a reason other than the declared conflict.
	ErrConstraintViolation = errors.New(ErrMsgConstraintViolation)
	ErrStorageUnavailable  = errors.New(ErrMsgStorageUnavailable)
	ErrNotInitialized      = errors.New(ErrMsgNotInitialized)
	ErrUnderlyingStore     = errors.New(ErrMsgUnderlyingStore)

	ErrSessionNotFound    = errors.New(ErrMsgSessionNotFound)
	ErrSessionAlreadyOpen = errors.New(ErrMsgSessionAlreadyOpen)

	ErrInvalidCredentials = errors.New(ErrMsgInvalidCredentials)
	ErrForbidden          = errors.New(ErrMsgForbidden)
)
