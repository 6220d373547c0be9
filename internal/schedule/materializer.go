// Package schedule expands availability rules into concrete generated
// slots for a bounded future horizon.  Materialization is idempotent:
// re-running it for an already-covered range updates capacities in place
// and never duplicates or loses slots.
package schedule

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/ateliera/studio-booking/internal/model"
	"github.com/ateliera/studio-booking/internal/repository"
)

// dateLayout is the calendar-date format used at the API boundary and
// for override keys.
const dateLayout = "2006-01-02"

// Materializer turns availability rules into generated slot rows.  It is
// the only writer of slot capacity metadata; booking flows only touch
// the confirmed counter.
type Materializer struct {
	DB       *sql.DB
	Rules    *repository.RuleRepo
	Slots    *repository.SlotRepo
	Services *repository.ServiceRepo
	Loc      *time.Location
	Now      func() time.Time
}

// NewMaterializer wires a Materializer over the engine repositories.
// loc is the studio's fixed time zone; all recurrence matching and
// window slicing happens there before conversion to UTC.
func NewMaterializer(db *sql.DB, rules *repository.RuleRepo, slots *repository.SlotRepo, services *repository.ServiceRepo, loc *time.Location) *Materializer {
	return &Materializer{DB: db, Rules: rules, Slots: slots, Services: services, Loc: loc, Now: time.Now}
}

// Request bounds a materialization run.  From and To are inclusive
// calendar dates ("2006-01-02") in the studio time zone; the optional
// filters narrow which rules are expanded.
type Request struct {
	From           string
	To             string
	ProfessionalID *uint64
	ServiceID      *uint64
}

// Result reports what a run did.  Warnings carry the slots whose
// requested capacity had to be clamped because bookings already exceed
// it; the data is never silently corrupted.
type Result struct {
	SlotsCreated int      `json:"slots_created"`
	SlotsUpdated int      `json:"slots_updated"`
	Warnings     []string `json:"warnings,omitempty"`
}

// overrideKey addresses one capacity override: a single slot instance.
type overrideKey struct {
	professionalID uint64
	serviceID      uint64
	date           string
	startTime      string
}

// Generate expands every matching rule over [req.From, req.To] and
// upserts the resulting slots in one transaction.  Existing slots keep
// their identity (and their confirmed counters); only max_capacity is
// reconciled, clamped at the current confirmed count.
func (m *Materializer) Generate(ctx context.Context, req Request) (*Result, error) {
	from, err := time.ParseInLocation(dateLayout, req.From, m.Loc)
	if err != nil {
		return nil, fmt.Errorf("invalid from date: %w", err)
	}
	to, err := time.ParseInLocation(dateLayout, req.To, m.Loc)
	if err != nil {
		return nil, fmt.Errorf("invalid to date: %w", err)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("date range ends before it starts")
	}

	rules, err := m.Rules.ListActive(ctx, req.ProfessionalID, req.ServiceID)
	if err != nil {
		return nil, err
	}
	services, err := m.Services.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	overrides, err := m.Rules.OverridesInRange(ctx, req.From, req.To, req.ProfessionalID, req.ServiceID)
	if err != nil {
		return nil, err
	}
	capOverrides := make(map[overrideKey]int, len(overrides))
	for _, o := range overrides {
		capOverrides[overrideKey{o.ProfessionalID, o.ServiceID, o.Date, o.StartTime}] = o.MaxCapacity
	}

	// Today in the studio time zone anchors every rule's horizon.
	today := dateOnly(m.Now().In(m.Loc))

	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rangeEnd := to.AddDate(0, 0, 1)
	existing, err := m.Slots.ExistingInRangeTx(ctx, tx, from.UTC(), rangeEnd.UTC(), req.ProfessionalID, req.ServiceID)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	planned := make(map[repository.SlotKey]bool)
	var inserts []model.GeneratedSlot

	for _, rule := range rules {
		starts, err := expandRule(rule, from, to, today, m.Loc)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", rule.ID, err)
		}
		serviceIDs, err := m.ruleServices(ctx, rule, req.ServiceID)
		if err != nil {
			return nil, err
		}
		for _, start := range starts {
			for _, svcID := range serviceIDs {
				svc, ok := services[svcID]
				if !ok {
					continue
				}
				capacity := svc.DefaultCapacity
				if c, found := capOverrides[overrideKey{
					rule.ProfessionalID, svcID,
					start.Format(dateLayout), start.Format("15:04"),
				}]; found {
					capacity = c
				}
				key := repository.KeyOf(rule.ProfessionalID, svcID, start)
				if planned[key] {
					// Overlapping rules: the first expansion wins.
					continue
				}
				planned[key] = true
				if ex, found := existing[key]; found {
					if ex.MaxCapacity == capacity {
						continue
					}
					if capacity < ex.ConfirmedBookings {
						res.Warnings = append(res.Warnings, fmt.Sprintf(
							"slot %s prof=%d svc=%d: requested capacity %d below %d confirmed bookings, clamped",
							start.Format("2006-01-02 15:04"), rule.ProfessionalID, svcID, capacity, ex.ConfirmedBookings))
					}
					if err := m.Slots.UpdateCapacityTx(ctx, tx, ex.ID, capacity); err != nil {
						return nil, err
					}
					res.SlotsUpdated++
					continue
				}
				inserts = append(inserts, model.GeneratedSlot{
					RuleID:         rule.ID,
					ProfessionalID: rule.ProfessionalID,
					ServiceID:      svcID,
					StartsAt:       start.UTC(),
					EndsAt:         start.Add(time.Duration(rule.SlotDurationMin) * time.Minute).UTC(),
					MaxCapacity:    capacity,
					MinLeadHours:   rule.MinLeadHours,
					Active:         true,
				})
			}
		}
	}

	if err := m.Slots.InsertBulkTx(ctx, tx, inserts); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	res.SlotsCreated = len(inserts)
	return res, nil
}

// ruleServices resolves which services a rule expands into.  A rule
// bound to one service expands into just that service; an unrestricted
// rule covers everything its professional offers, narrowed by the
// request filter when present.
func (m *Materializer) ruleServices(ctx context.Context, rule model.AvailabilityRule, filter *uint64) ([]uint64, error) {
	if rule.ServiceID != nil {
		if filter != nil && *filter != *rule.ServiceID {
			return nil, nil
		}
		return []uint64{*rule.ServiceID}, nil
	}
	offered, err := m.Services.ServicesForProfessional(ctx, rule.ProfessionalID)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return offered, nil
	}
	for _, id := range offered {
		if id == *filter {
			return []uint64{id}, nil
		}
	}
	return nil, nil
}

// expandRule returns the slot start instants (in the studio time zone)
// the rule produces over [from, to], honoring the recurrence and the
// rule's horizon.  The returned times are sorted.
func expandRule(rule model.AvailabilityRule, from, to, today time.Time, loc *time.Location) ([]time.Time, error) {
	startMin, err := parseClock(rule.StartTime)
	if err != nil {
		return nil, fmt.Errorf("bad start time %q: %w", rule.StartTime, err)
	}
	endMin, err := parseClock(rule.EndTime)
	if err != nil {
		return nil, fmt.Errorf("bad end time %q: %w", rule.EndTime, err)
	}
	if rule.SlotDurationMin <= 0 || endMin <= startMin {
		return nil, fmt.Errorf("empty window")
	}
	horizon := today.AddDate(0, 0, rule.MaxDaysAhead)

	var starts []time.Time
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if !rule.Recurrence.Matches(day) {
			continue
		}
		if day.Before(today) || day.After(horizon) {
			continue
		}
		for min := startMin; min+rule.SlotDurationMin <= endMin; min += rule.SlotDurationMin {
			starts = append(starts, time.Date(day.Year(), day.Month(), day.Day(), min/60, min%60, 0, 0, loc))
		}
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	return starts, nil
}

// parseClock converts "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// dateOnly truncates a time to midnight in its own location.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
