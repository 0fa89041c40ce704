package errors

import "errors"

// Outcomes of the reservation core. Conflict covers both reasons a
// reservation can be denied; callers that care about the reason check
// ErrInsufficientSeats or ErrVersionConflict.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrConflict       = errors.New("conflict")
	ErrNotFound       = errors.New("not found")
)

var ErrInsufficientSeats = &reasonError{reason: "not enough seats left", base: ErrConflict}
var ErrVersionConflict = &reasonError{reason: "concurrency conflict or seats taken", base: ErrConflict}

// ErrEventMissing means the seeded event row is gone. It is an invariant
// violation, never a business outcome.
var ErrEventMissing = errors.New("event not initialized")

type reasonError struct {
	reason string
	base   error
}

func (e *reasonError) Error() string { return e.reason }

func (e *reasonError) Unwrap() error { return e.base }

// Invalid returns an ErrInvalidRequest carrying a caller-facing reason.
func Invalid(reason string) error {
	return &reasonError{reason: reason, base: ErrInvalidRequest}
}
