package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ateliera/studio-booking/internal/model"
)

// RuleRepo reads availability rules and capacity overrides.  Both tables
// are written by the administrative side only; the engine never mutates
// them, so this repository intentionally exposes no write methods.
type RuleRepo struct {
	db *sql.DB
}

// NewRuleRepo returns a new RuleRepo bound to the given database.
func NewRuleRepo(db *sql.DB) *RuleRepo { return &RuleRepo{db: db} }

// ListActive returns every active availability rule, optionally filtered
// by professional and service.  A rule whose service_id is NULL applies
// to all services of its professional and therefore always survives a
// service filter.
func (r *RuleRepo) ListActive(ctx context.Context, professionalID, serviceID *uint64) ([]model.AvailabilityRule, error) {
	q := `SELECT id, professional_id, service_id, recurrence_kind, day_of_week, specific_date,
	             start_time, end_time, slot_duration_min, max_days_ahead, min_lead_hours,
	             is_active, created_at, updated_at
	      FROM availability_rules
	      WHERE is_active = 1`
	args := []interface{}{}
	if professionalID != nil {
		q += ` AND professional_id = ?`
		args = append(args, *professionalID)
	}
	if serviceID != nil {
		q += ` AND (service_id = ? OR service_id IS NULL)`
		args = append(args, *serviceID)
	}
	q += ` ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var rules []model.AvailabilityRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// scanRule maps one availability_rules row into the model, folding the
// (recurrence_kind, day_of_week, specific_date) columns into the closed
// Recurrence variant.
func scanRule(rows *sql.Rows) (model.AvailabilityRule, error) {
	var (
		rule      model.AvailabilityRule
		serviceID sql.NullInt64
		kind      string
		dayOfWeek sql.NullInt64
		specific  sql.NullTime
	)
	if err := rows.Scan(
		&rule.ID, &rule.ProfessionalID, &serviceID, &kind, &dayOfWeek, &specific,
		&rule.StartTime, &rule.EndTime, &rule.SlotDurationMin, &rule.MaxDaysAhead,
		&rule.MinLeadHours, &rule.Active, &rule.CreatedAt, &rule.UpdatedAt,
	); err != nil {
		return model.AvailabilityRule{}, err
	}
	if serviceID.Valid {
		id := uint64(serviceID.Int64)
		rule.ServiceID = &id
	}
	switch model.RecurrenceKind(kind) {
	case model.RecurrenceWeekly:
		rule.Recurrence = model.WeeklyOn(time.Weekday(dayOfWeek.Int64))
	case model.RecurrenceSpecificDate:
		rule.Recurrence = model.OnDate(specific.Time)
	}
	return rule, nil
}

// OverridesInRange returns the capacity overrides whose date falls in
// [from, to].  Dates are "2006-01-02" strings in the studio time zone,
// matching how the administrative side keys overrides.
func (r *RuleRepo) OverridesInRange(ctx context.Context, from, to string, professionalID, serviceID *uint64) ([]model.CapacityOverride, error) {
	q := `SELECT id, professional_id, service_id, DATE_FORMAT(override_date, '%Y-%m-%d'),
	             start_time, max_capacity
	      FROM capacity_overrides
	      WHERE override_date BETWEEN ? AND ?`
	args := []interface{}{from, to}
	if professionalID != nil {
		q += ` AND professional_id = ?`
		args = append(args, *professionalID)
	}
	if serviceID != nil {
		q += ` AND service_id = ?`
		args = append(args, *serviceID)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var overrides []model.CapacityOverride
	for rows.Next() {
		var o model.CapacityOverride
		if err := rows.Scan(&o.ID, &o.ProfessionalID, &o.ServiceID, &o.Date, &o.StartTime, &o.MaxCapacity); err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}
