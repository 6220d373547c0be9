// Package booking holds the concurrency-critical core of the engine:
// converting a slot selection into a booking, and reconciling booking
// state after payment callbacks and cancellations.  All capacity and
// code mutations are conditional database writes inside one
// transaction; nothing here relies on in-process locking.
package booking

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/ateliera/studio-booking/internal/codes"
	"github.com/ateliera/studio-booking/internal/model"
	"github.com/ateliera/studio-booking/internal/repository"
)

// Transactor creates bookings.  One call makes a single attempt: on
// ErrSlotFull or a code race the caller re-fetches availability and the
// customer picks again; there is no internal retry loop to pile onto a
// contended slot.
type Transactor struct {
	DB       *sql.DB
	Slots    *repository.SlotRepo
	Bookings *repository.BookingRepo
	Codes    *repository.CodeRepo
	Services *repository.ServiceRepo
	Codeval  *codes.Validator
	Now      func() time.Time
}

// NewTransactor wires a Transactor over the engine repositories.
func NewTransactor(db *sql.DB, slots *repository.SlotRepo, bookings *repository.BookingRepo, codeRepo *repository.CodeRepo, services *repository.ServiceRepo, validator *codes.Validator) *Transactor {
	return &Transactor{
		DB:       db,
		Slots:    slots,
		Bookings: bookings,
		Codes:    codeRepo,
		Services: services,
		Codeval:  validator,
		Now:      time.Now,
	}
}

// CreateRequest describes one booking attempt.  Code is the raw string
// the customer entered (session code or coupon, classified during
// validation); empty means a plain paid booking.
type CreateRequest struct {
	ProfessionalID uint64
	ServiceID      uint64
	Start          time.Time
	Customer       model.Customer
	Code           string
}

// CreateResult is returned on success.  Confirmed is true when no
// payment step remains; otherwise PaymentHandoff carries the opaque
// token handed to the external payment provider.
type CreateResult struct {
	Booking        model.Booking
	Confirmed      bool
	PaymentHandoff string
}

// Create atomically reserves capacity, inserts the booking and settles
// any code, in one transaction.  Any failure after the transaction
// opens rolls everything back: no partial increment, no orphaned code
// consumption.
func (t *Transactor) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	svc, err := t.Services.GetByID(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}

	tx, err := t.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	slot, err := t.Slots.GetByKeyTx(ctx, tx, req.ProfessionalID, req.ServiceID, req.Start)
	if err != nil {
		return nil, err
	}
	now := t.Now().UTC()
	if !slot.Active || slot.StartsAt.Before(now.Add(time.Duration(slot.MinLeadHours)*time.Hour)) {
		return nil, repository.ErrSlotInactiveOrPast
	}

	// Re-validate the code inside the transaction.  The customer may
	// have validated it minutes ago; this closes the window in which a
	// concurrent booking could have spent it.
	var applied *codes.Result
	if req.Code != "" {
		applied, err = t.Codeval.ValidateTx(ctx, tx, codes.Input{
			Code:        req.Code,
			ServiceID:   req.ServiceID,
			AmountCents: svc.PriceCents,
		})
		if err != nil {
			return nil, translateDBErr(err)
		}
	}

	if err := t.Slots.ReserveTx(ctx, tx, slot.ID); err != nil {
		return nil, translateDBErr(err)
	}

	b := model.Booking{
		ProfessionalID:     req.ProfessionalID,
		ServiceID:          req.ServiceID,
		SlotID:             slot.ID,
		StartsAt:           slot.StartsAt,
		EndsAt:             slot.EndsAt,
		Customer:           req.Customer,
		OriginalPriceCents: svc.PriceCents,
		FinalPriceCents:    svc.PriceCents,
	}
	if applied != nil {
		b.FinalPriceCents = svc.PriceCents - applied.DiscountCents
		if b.FinalPriceCents < 0 {
			b.FinalPriceCents = 0
		}
		switch applied.Kind {
		case codes.KindSession:
			id := applied.SessionCode.ID
			b.SessionCodeID = &id
		case codes.KindCoupon:
			id := applied.Coupon.ID
			b.CouponID = &id
		}
	}

	var handoff string
	if b.SessionCodeID != nil || b.FinalPriceCents == 0 {
		// Prepaid and free bookings confirm instantly; no payment step.
		b.Status = model.BookingConfirmed
	} else {
		b.Status = model.BookingPendingPayment
		handoff, err = paymentToken()
		if err != nil {
			return nil, err
		}
		b.PaymentRef = &handoff
	}

	if err := t.Bookings.CreateTx(ctx, tx, &b); err != nil {
		return nil, translateDBErr(err)
	}

	if b.SessionCodeID != nil {
		if err := t.Codes.ConsumeSessionCodeTx(ctx, tx, *b.SessionCodeID, b.ID); err != nil {
			return nil, translateDBErr(err)
		}
	}
	if b.CouponID != nil {
		if err := t.Codes.IncrementCouponUsageTx(ctx, tx, *b.CouponID); err != nil {
			return nil, translateDBErr(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, translateDBErr(err)
	}
	committed = true

	return &CreateResult{
		Booking:        b,
		Confirmed:      b.Status == model.BookingConfirmed,
		PaymentHandoff: handoff,
	}, nil
}

// paymentToken generates the opaque reference handed to the payment
// provider for a pending booking.
func paymentToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// MySQL error numbers for aborted transactions.
const (
	mysqlDeadlock        = 1213
	mysqlLockWaitTimeout = 1205
)

// translateDBErr maps driver-level transaction aborts onto
// ErrStorageConflict so callers know a single retry with fresh slot
// data is safe.  Every other error passes through unchanged.
func translateDBErr(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && (me.Number == mysqlDeadlock || me.Number == mysqlLockWaitTimeout) {
		return repository.ErrStorageConflict
	}
	return err
}
