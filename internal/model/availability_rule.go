package model

import "time"

// RecurrenceKind discriminates how an availability rule repeats.
type RecurrenceKind string

const (
	// RecurrenceWeekly repeats on a fixed weekday every week.
	RecurrenceWeekly RecurrenceKind = "weekly"
	// RecurrenceSpecificDate applies to exactly one calendar date.
	RecurrenceSpecificDate RecurrenceKind = "specific_date"
)

// Recurrence is a closed variant: either a weekday (weekly) or a single
// calendar date (specific_date) is meaningful, selected by Kind.  Use
// WeeklyOn or OnDate to construct values so the unused field is never
// relied upon.
type Recurrence struct {
	Kind    RecurrenceKind
	Weekday time.Weekday // meaningful only when Kind == RecurrenceWeekly
	Date    time.Time    // meaningful only when Kind == RecurrenceSpecificDate; date portion only
}

// WeeklyOn builds a weekly recurrence for the given weekday.
func WeeklyOn(w time.Weekday) Recurrence {
	return Recurrence{Kind: RecurrenceWeekly, Weekday: w}
}

// OnDate builds a single-date recurrence.  Only the Y/M/D portion of d is
// significant; the time of day is ignored.
func OnDate(d time.Time) Recurrence {
	return Recurrence{Kind: RecurrenceSpecificDate, Date: d}
}

// Matches reports whether the recurrence covers the given calendar date.
// Callers pass dates already anchored to the studio time zone.
func (r Recurrence) Matches(date time.Time) bool {
	switch r.Kind {
	case RecurrenceWeekly:
		return date.Weekday() == r.Weekday
	case RecurrenceSpecificDate:
		y1, m1, d1 := r.Date.Date()
		y2, m2, d2 := date.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	}
	return false
}

// AvailabilityRule defines a recurring or one-off bookable window for a
// professional.  Rules are written by the administrative side and are
// read-only to the engine; deactivation is a soft flag so slots generated
// from a rule keep their provenance.
//
// Fields:
//  ID              – primary key identifier.
//  ProfessionalID  – professional the rule belongs to.
//  ServiceID       – optional service restriction; nil means the rule
//                    applies to every service the professional offers.
//  Recurrence      – weekly weekday or specific calendar date.
//  StartTime       – window start, "HH:MM" in the studio time zone.
//  EndTime         – window end, "HH:MM" in the studio time zone.
//  SlotDurationMin – length of each generated slot in minutes.
//  MaxDaysAhead    – horizon: how many days ahead slots may exist.
//  MinLeadHours    – minimum hours before a slot start that a booking
//                    may still be made.
//  Active          – soft deactivation flag.
type AvailabilityRule struct {
	ID              uint64
	ProfessionalID  uint64
	ServiceID       *uint64
	Recurrence      Recurrence
	StartTime       string
	EndTime         string
	SlotDurationMin int
	MaxDaysAhead    int
	MinLeadHours    int
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CapacityOverride replaces a slot's default capacity for one specific
// instance, keyed by professional, service, date and start time.  The
// date and start time are expressed in the studio time zone.
type CapacityOverride struct {
	ID             uint64
	ProfessionalID uint64
	ServiceID      uint64
	Date           string // "2006-01-02"
	StartTime      string // "15:04"
	MaxCapacity    int
}
