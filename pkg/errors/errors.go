package agrilink_errors

import "errors"

// Business-rule errors surfaced to callers. Services return these directly;
// handlers translate them to HTTP statuses. Infrastructure faults travel as
// ordinary wrapped errors and are reported generically at the boundary.
var (
	// Authorization
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrSelfResponse = errors.New("cannot respond to your own request")

	// State conflicts
	ErrDuplicatePending      = errors.New("a pending connection request already exists")
	ErrAlreadyConnected      = errors.New("already connected")
	ErrPreviouslyRejected    = errors.New("a previous request was rejected")
	ErrAlreadyResolved       = errors.New("already resolved")
	ErrConnectionNotAccepted = errors.New("connection is not accepted")

	// Not found / missing preconditions
	ErrNotFound          = errors.New("not found")
	ErrProfileIncomplete = errors.New("profile incomplete")
	ErrTargetNotFound    = errors.New("target profile not found")

	ErrInvalidInput  = errors.New("invalid input")
	ErrAlreadyExists = errors.New("already exists")
)
