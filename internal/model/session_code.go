package model

import "time"

// SessionCode is a prepaid credit redeemable for exactly one booking.
// Consuming a code bypasses payment entirely.
//
// Invariant: IsUsed is true iff UsedInBookingID points at a booking that
// is not cancelled.  Cancellation un-consumes the code so the customer
// can rebook.
type SessionCode struct {
	ID              uint64
	Code            string
	PackageID       uint64
	IsUsed          bool
	UsedInBookingID *uint64
	ExpiresAt       time.Time
	CreatedAt       time.Time
}

// Expired reports whether the code can no longer be redeemed at the
// given instant.
func (s SessionCode) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
