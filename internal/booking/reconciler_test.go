package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ateliera/studio-booking/internal/model"
	"github.com/ateliera/studio-booking/internal/repository"
)

func newMockReconciler(t *testing.T) (*Reconciler, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	rc := NewReconciler(db,
		repository.NewSlotRepo(db),
		repository.NewBookingRepo(db),
		repository.NewCodeRepo(db))
	return rc, mock, func() { db.Close() }
}

func bookingRows(id uint64, status string, couponID, codeID interface{}) *sqlmock.Rows {
	start := time.Date(2026, 9, 3, 14, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{"id", "professional_id", "service_id", "slot_id", "starts_at", "ends_at",
		"customer_name", "customer_email", "customer_phone", "status",
		"coupon_id", "session_code_id", "original_price_cents", "final_price_cents",
		"payment_ref", "feedback_email_sent", "created_at", "updated_at"}).
		AddRow(id, 2, 3, 99, start, start.Add(time.Hour),
			"Ana", "ana@example.com", "", status,
			couponID, codeID, 15000, 15000,
			"a1b2c3", false, testNow, testNow)
}

func TestConfirmPaymentPendingToConfirmed(t *testing.T) {
	rc, mock, done := newMockReconciler(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id = \\? FOR UPDATE").WithArgs(uint64(42)).
		WillReturnRows(bookingRows(42, model.BookingPendingPayment, nil, nil))
	mock.ExpectExec("UPDATE bookings SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, err := rc.ConfirmPayment(context.Background(), 42)
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if b.Status != model.BookingConfirmed {
		t.Fatalf("status = %q, want CONFIRMED", b.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConfirmPaymentIdempotent(t *testing.T) {
	rc, mock, done := newMockReconciler(t)
	defer done()

	// Second delivery of the same webhook: already confirmed, nothing
	// to write.
	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id = \\? FOR UPDATE").WithArgs(uint64(42)).
		WillReturnRows(bookingRows(42, model.BookingConfirmed, nil, nil))
	mock.ExpectCommit()

	b, err := rc.ConfirmPayment(context.Background(), 42)
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if b.Status != model.BookingConfirmed {
		t.Fatalf("status = %q, want CONFIRMED", b.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConfirmPaymentOfCancelledRejected(t *testing.T) {
	rc, mock, done := newMockReconciler(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id = \\? FOR UPDATE").WithArgs(uint64(42)).
		WillReturnRows(bookingRows(42, model.BookingCancelled, nil, nil))
	mock.ExpectRollback()

	_, err := rc.ConfirmPayment(context.Background(), 42)
	if !errors.Is(err, repository.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestFailPaymentReleasesSeatAndCoupon(t *testing.T) {
	rc, mock, done := newMockReconciler(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id = \\? FOR UPDATE").WithArgs(uint64(42)).
		WillReturnRows(bookingRows(42, model.BookingPendingPayment, 5, nil))
	mock.ExpectExec("UPDATE bookings SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE generated_slots").WithArgs(uint64(99)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE discount_coupons").WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, err := rc.FailPayment(context.Background(), 42)
	if err != nil {
		t.Fatalf("FailPayment: %v", err)
	}
	if b.Status != model.BookingCancelled {
		t.Fatalf("status = %q, want CANCELLED", b.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCancelReleasesSessionCode(t *testing.T) {
	rc, mock, done := newMockReconciler(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id = \\? FOR UPDATE").WithArgs(uint64(42)).
		WillReturnRows(bookingRows(42, model.BookingConfirmed, nil, 11))
	mock.ExpectExec("UPDATE bookings SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE generated_slots").WithArgs(uint64(99)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE session_codes").WithArgs(uint64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, err := rc.CancelAndRelease(context.Background(), 42)
	if err != nil {
		t.Fatalf("CancelAndRelease: %v", err)
	}
	if b.Status != model.BookingCancelled {
		t.Fatalf("status = %q, want CANCELLED", b.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCancelOfCancelledRejected(t *testing.T) {
	rc, mock, done := newMockReconciler(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id = \\? FOR UPDATE").WithArgs(uint64(42)).
		WillReturnRows(bookingRows(42, model.BookingCancelled, nil, nil))
	mock.ExpectRollback()

	_, err := rc.CancelAndRelease(context.Background(), 42)
	if !errors.Is(err, repository.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}
