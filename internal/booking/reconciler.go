package booking

import (
	"context"
	"database/sql"
	"time"

	"github.com/ateliera/studio-booking/internal/model"
	"github.com/ateliera/studio-booking/internal/repository"
)

// Reconciler moves bookings through their terminal transitions after
// the fact: the payment provider's webhook and the operator's cancel
// action.  Compensating writes (slot counter, coupon counter, session
// code) happen in the same transaction as the status change, so a
// cancelled booking can never leave capacity or a code stranded.
//
// State machine: PENDING_PAYMENT -> {CONFIRMED, CANCELLED},
// CONFIRMED -> CANCELLED (operator only).  CANCELLED is terminal.
type Reconciler struct {
	DB       *sql.DB
	Slots    *repository.SlotRepo
	Bookings *repository.BookingRepo
	Codes    *repository.CodeRepo
	Now      func() time.Time
}

// NewReconciler wires a Reconciler over the engine repositories.
func NewReconciler(db *sql.DB, slots *repository.SlotRepo, bookings *repository.BookingRepo, codeRepo *repository.CodeRepo) *Reconciler {
	return &Reconciler{DB: db, Slots: slots, Bookings: bookings, Codes: codeRepo, Now: time.Now}
}

// ConfirmPayment transitions PENDING_PAYMENT -> CONFIRMED when the
// provider reports a settled payment.  Capacity was already reserved at
// creation, so nothing else moves.  Confirming an already-confirmed
// booking is a no-op: payment webhooks are delivered at least once.
func (r *Reconciler) ConfirmPayment(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	var out *model.Booking
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		b, err := r.Bookings.GetForUpdateTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		switch b.Status {
		case model.BookingConfirmed:
			out = b
			return nil
		case model.BookingCancelled:
			return repository.ErrInvalidTransition
		}
		if _, err := r.Bookings.UpdateStatusTx(ctx, tx, b.ID, []string{model.BookingPendingPayment}, model.BookingConfirmed); err != nil {
			return err
		}
		b.Status = model.BookingConfirmed
		out = b
		return nil
	})
	return out, err
}

// FailPayment transitions PENDING_PAYMENT -> CANCELLED when the
// provider reports a failed or expired payment, releasing the seat and
// compensating the coupon counter.  Session-code bookings never reach
// this path: they confirm instantly at creation.  A repeated failure
// notification for an already-cancelled booking is a no-op.
func (r *Reconciler) FailPayment(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	var out *model.Booking
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		b, err := r.Bookings.GetForUpdateTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		switch b.Status {
		case model.BookingCancelled:
			out = b
			return nil
		case model.BookingConfirmed:
			return repository.ErrInvalidTransition
		}
		if err := r.release(ctx, tx, b); err != nil {
			return err
		}
		b.Status = model.BookingCancelled
		out = b
		return nil
	})
	return out, err
}

// CancelAndRelease is the operator's cancel action.  It works from both
// PENDING_PAYMENT and CONFIRMED, releases the seat, compensates any
// coupon, and un-consumes any session code so the customer can rebook.
func (r *Reconciler) CancelAndRelease(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	var out *model.Booking
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		b, err := r.Bookings.GetForUpdateTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if b.Status == model.BookingCancelled {
			return repository.ErrInvalidTransition
		}
		if err := r.release(ctx, tx, b); err != nil {
			return err
		}
		b.Status = model.BookingCancelled
		out = b
		return nil
	})
	return out, err
}

// release performs the shared compensation: status to CANCELLED, seat
// back to the slot, coupon usage decremented, session code freed.
func (r *Reconciler) release(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	changed, err := r.Bookings.UpdateStatusTx(ctx, tx, b.ID,
		[]string{model.BookingPendingPayment, model.BookingConfirmed}, model.BookingCancelled)
	if err != nil {
		return err
	}
	if !changed {
		return repository.ErrInvalidTransition
	}
	if err := r.Slots.ReleaseTx(ctx, tx, b.SlotID); err != nil {
		return err
	}
	if b.CouponID != nil {
		if err := r.Codes.DecrementCouponUsageTx(ctx, tx, *b.CouponID); err != nil {
			return err
		}
	}
	if b.SessionCodeID != nil {
		if err := r.Codes.ReleaseSessionCodeTx(ctx, tx, *b.SessionCodeID); err != nil {
			return err
		}
	}
	return nil
}

// inTx runs fn inside a transaction: commit on success, rollback
// otherwise, driver aborts mapped to ErrStorageConflict.
func (r *Reconciler) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return translateDBErr(err)
	}
	if err := tx.Commit(); err != nil {
		return translateDBErr(err)
	}
	committed = true
	return nil
}
