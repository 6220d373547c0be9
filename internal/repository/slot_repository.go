package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ateliera/studio-booking/internal/model"
)

// dbtime is the DATETIME layout used when binding time values.  All
// stored timestamps are UTC; the driver is configured with loc=UTC so
// scans come back consistent.
const dbtime = "2006-01-02 15:04:05"

// SlotRepo persists generated slots and owns the only write paths to the
// confirmed_bookings counter.  Capacity accounting is done exclusively
// with conditional single-statement updates so correctness holds across
// horizontally scaled workers without in-process locks.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo returns a new SlotRepo bound to the given database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

// DB exposes the underlying handle so services can open transactions
// that span multiple repositories.
func (r *SlotRepo) DB() *sql.DB { return r.db }

// SlotKey identifies a slot by its natural key: one professional, one
// service, one start instant.  The generated_slots table carries a
// unique index over these three columns, which is what makes
// materialization idempotent.
type SlotKey struct {
	ProfessionalID uint64
	ServiceID      uint64
	StartUnix      int64
}

// KeyOf builds the natural key for a slot.
func KeyOf(professionalID, serviceID uint64, start time.Time) SlotKey {
	return SlotKey{ProfessionalID: professionalID, ServiceID: serviceID, StartUnix: start.Unix()}
}

const slotColumns = `id, rule_id, professional_id, service_id, starts_at, ends_at,
	             max_capacity, confirmed_bookings, min_lead_hours, is_active, created_at, updated_at`

func scanSlot(scan func(dest ...interface{}) error) (model.GeneratedSlot, error) {
	var s model.GeneratedSlot
	err := scan(&s.ID, &s.RuleID, &s.ProfessionalID, &s.ServiceID, &s.StartsAt, &s.EndsAt,
		&s.MaxCapacity, &s.ConfirmedBookings, &s.MinLeadHours, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// ListByRange returns active slots whose start falls in [fromUTC, toUTC),
// optionally filtered by professional, ordered by start time then
// professional.  This is the resolver's read path; it reflects the
// latest committed booking counts.
func (r *SlotRepo) ListByRange(ctx context.Context, fromUTC, toUTC time.Time, professionalID *uint64) ([]model.GeneratedSlot, error) {
	q := `SELECT ` + slotColumns + `
	      FROM generated_slots
	      WHERE is_active = 1 AND starts_at >= ? AND starts_at < ?`
	args := []interface{}{fromUTC.UTC().Format(dbtime), toUTC.UTC().Format(dbtime)}
	if professionalID != nil {
		q += ` AND professional_id = ?`
		args = append(args, *professionalID)
	}
	q += ` ORDER BY starts_at, professional_id, service_id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var slots []model.GeneratedSlot
	for rows.Next() {
		s, err := scanSlot(rows.Scan)
		if err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// ExistingInRangeTx loads the slots already materialized for a range,
// keyed by their natural key, inside the materialization transaction.
// The materializer diffs expansions against this map so re-runs update
// in place instead of duplicating rows.
func (r *SlotRepo) ExistingInRangeTx(ctx context.Context, tx *sql.Tx, fromUTC, toUTC time.Time, professionalID, serviceID *uint64) (map[SlotKey]model.GeneratedSlot, error) {
	q := `SELECT ` + slotColumns + `
	      FROM generated_slots
	      WHERE starts_at >= ? AND starts_at < ?`
	args := []interface{}{fromUTC.UTC().Format(dbtime), toUTC.UTC().Format(dbtime)}
	if professionalID != nil {
		q += ` AND professional_id = ?`
		args = append(args, *professionalID)
	}
	if serviceID != nil {
		q += ` AND service_id = ?`
		args = append(args, *serviceID)
	}
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	existing := make(map[SlotKey]model.GeneratedSlot)
	for rows.Next() {
		s, err := scanSlot(rows.Scan)
		if err != nil {
			return nil, err
		}
		existing[KeyOf(s.ProfessionalID, s.ServiceID, s.StartsAt)] = s
	}
	return existing, rows.Err()
}

// InsertBulkTx inserts multiple generated slots in a single statement.
// Counters start at zero and timestamps default in the database.
// Passing an empty slice has no effect and returns nil.
func (r *SlotRepo) InsertBulkTx(ctx context.Context, tx *sql.Tx, slots []model.GeneratedSlot) error {
	if len(slots) == 0 {
		return nil
	}
	query := `INSERT INTO generated_slots (rule_id, professional_id, service_id, starts_at, ends_at, max_capacity, min_lead_hours, is_active) VALUES `
	args := make([]interface{}, 0, len(slots)*8)
	for i, s := range slots {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, 1)"
		args = append(args, s.RuleID, s.ProfessionalID, s.ServiceID,
			s.StartsAt.UTC().Format(dbtime), s.EndsAt.UTC().Format(dbtime),
			s.MaxCapacity, s.MinLeadHours)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// UpdateCapacityTx sets a slot's max_capacity, clamped so it never drops
// below the current confirmed count.  The clamp happens in the statement
// itself (GREATEST) so a concurrent booking between read and write
// cannot push confirmed_bookings past the new capacity.
func (r *SlotRepo) UpdateCapacityTx(ctx context.Context, tx *sql.Tx, slotID uint64, maxCapacity int) error {
	const q = `UPDATE generated_slots
	           SET max_capacity = GREATEST(confirmed_bookings, ?), updated_at = UTC_TIMESTAMP()
	           WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, maxCapacity, slotID)
	return err
}

// GetByKeyTx fetches a slot by its natural key inside a transaction.
// Returns ErrSlotNotFound when the slot was never materialized.
func (r *SlotRepo) GetByKeyTx(ctx context.Context, tx *sql.Tx, professionalID, serviceID uint64, startUTC time.Time) (*model.GeneratedSlot, error) {
	const q = `SELECT ` + slotColumns + `
	           FROM generated_slots
	           WHERE professional_id = ? AND service_id = ? AND starts_at = ?`
	row := tx.QueryRowContext(ctx, q, professionalID, serviceID, startUTC.UTC().Format(dbtime))
	s, err := scanSlot(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ReserveTx atomically takes one seat in the slot.  The WHERE clause is
// the capacity invariant: if no row matches, the slot is full (or was
// deactivated) and ErrSlotFull is returned.  There is deliberately no
// retry here; the caller surfaces the failure so the customer picks a
// fresh slot.
func (r *SlotRepo) ReserveTx(ctx context.Context, tx *sql.Tx, slotID uint64) error {
	const q = `UPDATE generated_slots
	           SET confirmed_bookings = confirmed_bookings + 1, updated_at = UTC_TIMESTAMP()
	           WHERE id = ? AND is_active = 1 AND confirmed_bookings < max_capacity`
	res, err := tx.ExecContext(ctx, q, slotID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSlotFull
	}
	return nil
}

// ReleaseTx returns one seat to the slot after a cancellation or payment
// failure.  Guarded below zero so a double release cannot corrupt the
// counter.
func (r *SlotRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, slotID uint64) error {
	const q = `UPDATE generated_slots
	           SET confirmed_bookings = confirmed_bookings - 1, updated_at = UTC_TIMESTAMP()
	           WHERE id = ? AND confirmed_bookings > 0`
	_, err := tx.ExecContext(ctx, q, slotID)
	return err
}
