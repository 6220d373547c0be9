package codes

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ateliera/studio-booking/internal/model"
	"github.com/ateliera/studio-booking/internal/repository"
)

func TestNormalize(t *testing.T) {
	if got := Normalize("  pkg-abc12 "); got != "PKG-ABC12" {
		t.Fatalf("Normalize = %q, want PKG-ABC12", got)
	}
}

func TestDiscountPercentageFloors(t *testing.T) {
	c := &model.DiscountCoupon{DiscountType: model.DiscountPercentage, DiscountValue: 33}
	// 33% of R$25,000.00 floors to R$8,250.00 exactly; check an amount
	// that does not divide evenly too.
	if got := Discount(c, 2500000); got != 825000 {
		t.Fatalf("Discount = %d, want 825000", got)
	}
	if got := Discount(c, 101); got != 33 {
		t.Fatalf("Discount = %d, want 33 (floored)", got)
	}
}

func TestDiscountFixedClampsToAmount(t *testing.T) {
	c := &model.DiscountCoupon{DiscountType: model.DiscountFixed, DiscountValue: 5000}
	if got := Discount(c, 3000); got != 3000 {
		t.Fatalf("Discount = %d, want 3000 (clamped)", got)
	}
	if got := Discount(c, 10000); got != 5000 {
		t.Fatalf("Discount = %d, want 5000", got)
	}
}

func newMockValidator(t *testing.T) (*Validator, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	v := NewValidator(repository.NewCodeRepo(db))
	v.Now = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }
	return v, mock, func() { db.Close() }
}

func sessionCodeRows(id uint64, code string, used bool, expires time.Time) *sqlmock.Rows {
	return emptySessionCodeRows().AddRow(id, code, 7, used, nil, expires, time.Now())
}

func emptySessionCodeRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "code", "package_id", "is_used", "used_in_booking_id", "expires_at", "created_at"})
}

func couponRows(c model.DiscountCoupon) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "code", "discount_type", "discount_value", "valid_from", "valid_until",
		"max_uses", "current_uses", "min_amount_cents", "is_active", "created_at", "updated_at"})
	var until interface{}
	if c.ValidUntil != nil {
		until = *c.ValidUntil
	}
	var maxUses interface{}
	if c.MaxUses != nil {
		maxUses = *c.MaxUses
	}
	return rows.AddRow(c.ID, c.Code, c.DiscountType, c.DiscountValue, c.ValidFrom, until,
		maxUses, c.CurrentUses, c.MinAmountCents, c.Active, time.Now(), time.Now())
}

func TestValidateSessionCodeWins(t *testing.T) {
	v, mock, done := newMockValidator(t)
	defer done()

	mock.ExpectQuery("FROM session_codes WHERE code").WithArgs("PKG-OK").
		WillReturnRows(sessionCodeRows(11, "PKG-OK", false, time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)))
	mock.ExpectQuery("FROM package_services WHERE package_id").WithArgs(uint64(3), uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"cnt", "matched"}).AddRow(2, 1))

	res, err := v.Validate(context.Background(), Input{Code: "pkg-ok", ServiceID: 3, AmountCents: 12000})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Kind != KindSession || res.SessionCode == nil || res.DiscountCents != 12000 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestValidateSessionCodeExpired(t *testing.T) {
	v, mock, done := newMockValidator(t)
	defer done()

	mock.ExpectQuery("FROM session_codes WHERE code").WithArgs("PKG-OLD").
		WillReturnRows(sessionCodeRows(11, "PKG-OLD", false, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)))

	_, err := v.Validate(context.Background(), Input{Code: "PKG-OLD", ServiceID: 3, AmountCents: 12000})
	if err != repository.ErrCodeExpired {
		t.Fatalf("err = %v, want ErrCodeExpired", err)
	}
}

func TestValidateSessionCodeAlreadyUsed(t *testing.T) {
	v, mock, done := newMockValidator(t)
	defer done()

	mock.ExpectQuery("FROM session_codes WHERE code").WithArgs("PKG-USED").
		WillReturnRows(sessionCodeRows(11, "PKG-USED", true, time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)))

	_, err := v.Validate(context.Background(), Input{Code: "PKG-USED", ServiceID: 3, AmountCents: 12000})
	if err != repository.ErrCodeAlreadyUsed {
		t.Fatalf("err = %v, want ErrCodeAlreadyUsed", err)
	}
}

func TestValidateSessionCodeServiceNotCovered(t *testing.T) {
	v, mock, done := newMockValidator(t)
	defer done()

	mock.ExpectQuery("FROM session_codes WHERE code").WithArgs("PKG-OK").
		WillReturnRows(sessionCodeRows(11, "PKG-OK", false, time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)))
	mock.ExpectQuery("FROM package_services WHERE package_id").WithArgs(uint64(9), uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"cnt", "matched"}).AddRow(2, 0))

	_, err := v.Validate(context.Background(), Input{Code: "PKG-OK", ServiceID: 9, AmountCents: 12000})
	if err != repository.ErrCodeNotApplicable {
		t.Fatalf("err = %v, want ErrCodeNotApplicable", err)
	}
}

func TestValidateFallsThroughToCoupon(t *testing.T) {
	v, mock, done := newMockValidator(t)
	defer done()

	mock.ExpectQuery("FROM session_codes WHERE code").WithArgs("SAVE10").
		WillReturnRows(emptySessionCodeRows())
	mock.ExpectQuery("FROM discount_coupons WHERE code").WithArgs("SAVE10").
		WillReturnRows(couponRows(model.DiscountCoupon{
			ID: 5, Code: "SAVE10", DiscountType: model.DiscountPercentage, DiscountValue: 10,
			ValidFrom: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Active: true,
		}))
	mock.ExpectQuery("FROM coupon_packages WHERE coupon_id").WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"package_id"}))

	res, err := v.Validate(context.Background(), Input{Code: "save10", ServiceID: 3, AmountCents: 20000})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Kind != KindCoupon || res.DiscountCents != 2000 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestValidateCouponBelowMinimum(t *testing.T) {
	v, mock, done := newMockValidator(t)
	defer done()

	mock.ExpectQuery("FROM session_codes WHERE code").WithArgs("BIG50").
		WillReturnRows(emptySessionCodeRows())
	mock.ExpectQuery("FROM discount_coupons WHERE code").WithArgs("BIG50").
		WillReturnRows(couponRows(model.DiscountCoupon{
			ID: 6, Code: "BIG50", DiscountType: model.DiscountFixed, DiscountValue: 5000,
			ValidFrom: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), MinAmountCents: 30000, Active: true,
		}))

	_, err := v.Validate(context.Background(), Input{Code: "BIG50", ServiceID: 3, AmountCents: 10000})
	if err != repository.ErrCodeNotApplicable {
		t.Fatalf("err = %v, want ErrCodeNotApplicable", err)
	}
}

func TestValidateCouponExhausted(t *testing.T) {
	v, mock, done := newMockValidator(t)
	defer done()

	maxUses := 100
	mock.ExpectQuery("FROM session_codes WHERE code").WithArgs("GONE").
		WillReturnRows(emptySessionCodeRows())
	mock.ExpectQuery("FROM discount_coupons WHERE code").WithArgs("GONE").
		WillReturnRows(couponRows(model.DiscountCoupon{
			ID: 7, Code: "GONE", DiscountType: model.DiscountPercentage, DiscountValue: 10,
			ValidFrom: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			MaxUses:   &maxUses, CurrentUses: 100, Active: true,
		}))

	_, err := v.Validate(context.Background(), Input{Code: "GONE", ServiceID: 3, AmountCents: 10000})
	if err != repository.ErrCodeAlreadyUsed {
		t.Fatalf("err = %v, want ErrCodeAlreadyUsed", err)
	}
}

func TestValidateUnknownCode(t *testing.T) {
	v, mock, done := newMockValidator(t)
	defer done()

	mock.ExpectQuery("FROM session_codes WHERE code").WithArgs("NOPE").
		WillReturnRows(emptySessionCodeRows())
	mock.ExpectQuery("FROM discount_coupons WHERE code").WithArgs("NOPE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "discount_type", "discount_value", "valid_from", "valid_until",
			"max_uses", "current_uses", "min_amount_cents", "is_active", "created_at", "updated_at"}))

	_, err := v.Validate(context.Background(), Input{Code: "NOPE", ServiceID: 3, AmountCents: 10000})
	if err != repository.ErrCodeInvalid {
		t.Fatalf("err = %v, want ErrCodeInvalid", err)
	}
}
