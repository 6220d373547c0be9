// Package repository defines the data access layer and the sentinel
// errors shared across it. These sentinel values let the service and
// handler layers distinguish failure scenarios with errors.Is and map
// them to specific HTTP responses: capacity and code races must surface
// as precise, actionable messages rather than a generic failure.
package repository

import "errors"

// ErrSlotFull is returned when a conditional capacity increment matched
// no row: every seat in the slot is already held by a non-cancelled
// booking. Callers must re-fetch availability instead of retrying with
// the same slot.
var ErrSlotFull = errors.New("slot full")

// ErrSlotNotFound is returned when no generated slot exists for the
// requested professional, service and start time. Missing
// materialization deliberately reads as "no availability".
var ErrSlotNotFound = errors.New("slot not found")

// ErrSlotInactiveOrPast is returned when a slot exists but is
// deactivated or starts inside the rule's minimum lead window.
var ErrSlotInactiveOrPast = errors.New("slot inactive or past")

// ErrCodeInvalid is returned when a string matches neither a session
// code nor a discount coupon.
var ErrCodeInvalid = errors.New("code invalid")

// ErrCodeExpired is returned when a session code or coupon exists but
// its validity window has passed.
var ErrCodeExpired = errors.New("code expired")

// ErrCodeAlreadyUsed is returned when a session code has already been
// consumed by another booking, or a coupon has hit its usage cap.
var ErrCodeAlreadyUsed = errors.New("code already used")

// ErrCodeNotApplicable is returned when a code exists and is live but
// does not cover the requested service or purchase context.
var ErrCodeNotApplicable = errors.New("code not applicable")

// ErrCodeNoLongerValid is returned when a code passed validation but the
// conditional consumption inside the booking transaction lost the race:
// another request spent it between validation and commit.
var ErrCodeNoLongerValid = errors.New("code no longer valid")

// ErrBookingNotFound is returned when a booking lookup matches no row.
var ErrBookingNotFound = errors.New("booking not found")

// ErrInvalidTransition is returned when a status change violates the
// booking state machine (CANCELLED is terminal; CONFIRMED can only move
// to CANCELLED).
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrStorageConflict is returned when the database aborted a transaction
// because of a concurrent writer. Safe to retry once with fresh data.
var ErrStorageConflict = errors.New("storage conflict")

// ErrServiceNotFound is returned when the referenced service does not
// exist or is deactivated.
var ErrServiceNotFound = errors.New("service not found")
