package model

import "time"

// Service is a bookable offering (class, treatment, session type).  The
// engine reads services; the administrative side writes them.
//
// Fields:
//  ID              – primary key identifier.
//  Name            – display name.
//  PriceCents      – price in cents; zero means always-free and
//                    bookings confirm instantly without payment.
//  DefaultCapacity – per-slot capacity unless a CapacityOverride applies.
//  DurationMin     – nominal session length in minutes.
//  Active          – soft deactivation flag.
type Service struct {
	ID              uint64
	Name            string
	PriceCents      int64
	DefaultCapacity int
	DurationMin     int
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Professional is an instructor customers book sessions with.  Read-only
// to the engine.
type Professional struct {
	ID        uint64
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
