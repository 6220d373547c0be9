package model

import "time"

// GeneratedSlot is a materialized bookable instance produced from an
// availability rule.  Start and end are stored in UTC; all date
// arithmetic happens in the studio's fixed time zone before conversion.
//
// Invariant: ConfirmedBookings never exceeds MaxCapacity.  The counter is
// mutated only through conditional database updates, never read-modify-
// write in process.
//
// Fields:
//  ID                – primary key identifier.
//  RuleID            – rule the slot was generated from (provenance).
//  ProfessionalID    – professional delivering the session.
//  ServiceID         – service being booked.
//  StartsAt          – slot start (UTC).
//  EndsAt            – slot end (UTC).
//  MaxCapacity       – seats available in this slot.
//  ConfirmedBookings – seats taken by non-cancelled bookings.
//  MinLeadHours      – copied from the rule at materialization so the
//                      resolver re-applies lead-time filtering without
//                      joining rules.
//  Active            – soft deactivation flag; slots referenced by
//                      bookings are deactivated, never deleted.
type GeneratedSlot struct {
	ID                uint64
	RuleID            uint64
	ProfessionalID    uint64
	ServiceID         uint64
	StartsAt          time.Time
	EndsAt            time.Time
	MaxCapacity       int
	ConfirmedBookings int
	MinLeadHours      int
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Available returns the number of seats still bookable.
func (s GeneratedSlot) Available() int {
	n := s.MaxCapacity - s.ConfirmedBookings
	if n < 0 {
		return 0
	}
	return n
}
