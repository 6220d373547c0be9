// Package availability answers the read-side question: which slots can
// still be booked on a given date.  It never mutates state and reflects
// the latest committed booking counts.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/ateliera/studio-booking/internal/model"
	"github.com/ateliera/studio-booking/internal/repository"
)

const dateLayout = "2006-01-02"

// Slot is one bookable option returned to customers.  Times are UTC;
// clients render them in the studio time zone.
type Slot struct {
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	ProfessionalID uint64    `json:"professional_id"`
	ServiceID      uint64    `json:"service_id"`
	Available      int       `json:"available"`
	MaxCapacity    int       `json:"max_capacity"`
}

// Resolver merges materialized slots with live booking counts.  Missing
// materialization reads as no availability: the resolver never expands
// rules on the fly.
type Resolver struct {
	Slots *repository.SlotRepo
	Loc   *time.Location
	Now   func() time.Time
}

// NewResolver builds a Resolver over the slot repository.  loc is the
// studio's fixed time zone used to interpret the query date.
func NewResolver(slots *repository.SlotRepo, loc *time.Location) *Resolver {
	return &Resolver{Slots: slots, Loc: loc, Now: time.Now}
}

// ForDate returns the bookable slots for a calendar date, optionally
// filtered by professional, ordered by start time.  A slot is excluded
// when it is inactive, full, or starts inside its minimum lead window.
func (r *Resolver) ForDate(ctx context.Context, date string, professionalID *uint64) ([]Slot, error) {
	day, err := time.ParseInLocation(dateLayout, date, r.Loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date: %w", err)
	}
	dayEnd := day.AddDate(0, 0, 1)

	slots, err := r.Slots.ListByRange(ctx, day.UTC(), dayEnd.UTC(), professionalID)
	if err != nil {
		return nil, err
	}

	now := r.Now().UTC()
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		if !Bookable(s, now) {
			continue
		}
		out = append(out, Slot{
			Start:          s.StartsAt,
			End:            s.EndsAt,
			ProfessionalID: s.ProfessionalID,
			ServiceID:      s.ServiceID,
			Available:      s.Available(),
			MaxCapacity:    s.MaxCapacity,
		})
	}
	return out, nil
}

// Bookable reports whether a slot can be offered at the given instant.
// The lead-time check is re-applied here even though materialization
// already bounded the horizon, so a stale materialization never offers
// an un-bookable slot.
func Bookable(s model.GeneratedSlot, now time.Time) bool {
	if !s.Active || s.Available() <= 0 {
		return false
	}
	lead := time.Duration(s.MinLeadHours) * time.Hour
	return !s.StartsAt.Before(now.Add(lead))
}
