package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/ateliera/studio-booking/internal/model"
)

// BookingRepo provides CRUD operations for bookings.  Creation and
// status transitions only happen inside transactions that also adjust
// the slot counter and code state, so the mutating methods are Tx
// variants; plain reads serve lookups and listings.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, professional_id, service_id, slot_id, starts_at, ends_at,
	               customer_name, customer_email, customer_phone, status,
	               coupon_id, session_code_id, original_price_cents, final_price_cents,
	               payment_ref, feedback_email_sent, created_at, updated_at`

func scanBooking(scan func(dest ...interface{}) error) (model.Booking, error) {
	var (
		b          model.Booking
		couponID   sql.NullInt64
		codeID     sql.NullInt64
		paymentRef sql.NullString
	)
	err := scan(&b.ID, &b.ProfessionalID, &b.ServiceID, &b.SlotID, &b.StartsAt, &b.EndsAt,
		&b.Customer.Name, &b.Customer.Email, &b.Customer.Phone, &b.Status,
		&couponID, &codeID, &b.OriginalPriceCents, &b.FinalPriceCents,
		&paymentRef, &b.FeedbackEmailSent, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return model.Booking{}, err
	}
	if couponID.Valid {
		id := uint64(couponID.Int64)
		b.CouponID = &id
	}
	if codeID.Valid {
		id := uint64(codeID.Int64)
		b.SessionCodeID = &id
	}
	if paymentRef.Valid {
		ref := paymentRef.String
		b.PaymentRef = &ref
	}
	return b, nil
}

// CreateTx inserts a new booking within the scope of an existing
// transaction and populates the generated ID and timestamps on the
// provided record.  The caller must commit or roll back.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings
	           (professional_id, service_id, slot_id, starts_at, ends_at,
	            customer_name, customer_email, customer_phone, status,
	            coupon_id, session_code_id, original_price_cents, final_price_cents, payment_ref)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var couponID, codeID interface{}
	if b.CouponID != nil {
		couponID = *b.CouponID
	}
	if b.SessionCodeID != nil {
		codeID = *b.SessionCodeID
	}
	var paymentRef interface{}
	if b.PaymentRef != nil {
		paymentRef = *b.PaymentRef
	}
	res, err := tx.ExecContext(ctx, q,
		b.ProfessionalID, b.ServiceID, b.SlotID,
		b.StartsAt.UTC().Format(dbtime), b.EndsAt.UTC().Format(dbtime),
		b.Customer.Name, b.Customer.Email, b.Customer.Phone, b.Status,
		couponID, codeID, b.OriginalPriceCents, b.FinalPriceCents, paymentRef)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	// Query back the row to populate timestamps and defaults.
	const sel = `SELECT created_at, updated_at FROM bookings WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, b.ID).Scan(&b.CreatedAt, &b.UpdatedAt)
}

// GetByID returns a single booking or ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByPaymentRef resolves the booking behind a payment handoff token.
// Webhook payloads identify bookings by this token, never by raw ID.
func (r *BookingRepo) GetByPaymentRef(ctx context.Context, ref string) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE payment_ref = ?`, ref)
	b, err := scanBooking(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetForUpdateTx loads a booking with a row lock so a status transition
// and its compensating actions see a stable view.  Concurrent
// reconciliation attempts serialize on this lock.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, id)
	b, err := scanBooking(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateStatusTx moves a booking to a new status, conditional on its
// current status being one of from.  Zero matched rows means a
// concurrent transition won; callers translate that to
// ErrInvalidTransition or treat it as already-done.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, from []string, to string) (bool, error) {
	placeholders := make([]string, len(from))
	args := []interface{}{to, id}
	for i, s := range from {
		placeholders[i] = "?"
		args = append(args, s)
	}
	q := `UPDATE bookings SET status = ?, updated_at = UTC_TIMESTAMP()
	      WHERE id = ? AND status IN (` + strings.Join(placeholders, ",") + `)`
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListForRange returns bookings whose slot start falls in
// [fromUTC, toUTC), optionally filtered by professional, ordered by
// slot start; bookings sharing a start are listed newest first.  Used
// by the operator day view.
func (r *BookingRepo) ListForRange(ctx context.Context, fromUTC, toUTC time.Time, professionalID *uint64) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + `
	      FROM bookings
	      WHERE starts_at >= ? AND starts_at < ?`
	args := []interface{}{fromUTC.UTC().Format(dbtime), toUTC.UTC().Format(dbtime)}
	if professionalID != nil {
		q += ` AND professional_id = ?`
		args = append(args, *professionalID)
	}
	q += ` ORDER BY starts_at, created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	bookings := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
