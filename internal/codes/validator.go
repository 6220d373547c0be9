// Package codes classifies raw code strings as prepaid session codes or
// discount coupons and decides what they are worth for a given purchase.
// Validation is strictly read-only: consumption happens only inside the
// booking transaction, so a validated-but-never-booked code is never
// wasted.
package codes

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/ateliera/studio-booking/internal/model"
	"github.com/ateliera/studio-booking/internal/repository"
)

// Kind tags the validation result.
type Kind string

const (
	// KindSession means the code is a prepaid session credit; the
	// booking confirms immediately and the price discounts to zero.
	KindSession Kind = "session"
	// KindCoupon means the code is a discount coupon; the booking still
	// goes through payment at the reduced price.
	KindCoupon Kind = "coupon"
)

// Input describes the purchase a code is being applied to.
type Input struct {
	Code        string
	ServiceID   uint64
	AmountCents int64
	// PackageID is set when the purchase is a package checkout rather
	// than a single service booking.  Coupons with a package allow-list
	// only apply in that context.
	PackageID *uint64
}

// Result is the tagged outcome of a successful validation.  Exactly one
// of SessionCode and Coupon is non-nil, selected by Kind, which forces
// the booking transactor to handle both branches explicitly.
type Result struct {
	Kind          Kind
	SessionCode   *model.SessionCode
	Coupon        *model.DiscountCoupon
	DiscountCents int64
}

// Normalize canonicalizes a raw code: upper-case, surrounding whitespace
// stripped.  Codes are stored normalized, so lookups use this form.
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Discount computes how many cents a coupon takes off the given amount.
// Percentage discounts floor through integer division; fixed discounts
// never exceed the amount itself.
func Discount(c *model.DiscountCoupon, amountCents int64) int64 {
	switch c.DiscountType {
	case model.DiscountPercentage:
		return amountCents * c.DiscountValue / 100
	case model.DiscountFixed:
		if c.DiscountValue > amountCents {
			return amountCents
		}
		return c.DiscountValue
	}
	return 0
}

// Validator resolves code strings against the code repository.  The
// same logic runs in two places: as a plain read when the customer
// enters a code, and inside the booking transaction as the re-check
// that closes the window between validation and consumption.
type Validator struct {
	Codes *repository.CodeRepo
	Now   func() time.Time
}

// NewValidator constructs a Validator over the given repository.
func NewValidator(codes *repository.CodeRepo) *Validator {
	return &Validator{Codes: codes, Now: time.Now}
}

// Validate classifies a code outside any transaction.  Session codes are
// tried first; coupons second; anything else fails with ErrCodeInvalid.
func (v *Validator) Validate(ctx context.Context, in Input) (*Result, error) {
	return v.validate(ctx, nil, in)
}

// ValidateTx re-runs the same checks inside the booking transaction so a
// code that was spent between validation and booking is caught before
// anything commits.
func (v *Validator) ValidateTx(ctx context.Context, tx *sql.Tx, in Input) (*Result, error) {
	return v.validate(ctx, tx, in)
}

func (v *Validator) validate(ctx context.Context, tx *sql.Tx, in Input) (*Result, error) {
	code := Normalize(in.Code)
	if code == "" {
		return nil, repository.ErrCodeInvalid
	}
	now := v.Now().UTC()

	sc, err := v.sessionCode(ctx, tx, code)
	if err != nil {
		return nil, err
	}
	if sc != nil {
		if sc.Expired(now) {
			return nil, repository.ErrCodeExpired
		}
		if sc.IsUsed {
			return nil, repository.ErrCodeAlreadyUsed
		}
		allowed, err := v.packageAllowsService(ctx, tx, sc.PackageID, in.ServiceID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, repository.ErrCodeNotApplicable
		}
		// A session code always discounts the full amount.
		return &Result{Kind: KindSession, SessionCode: sc, DiscountCents: in.AmountCents}, nil
	}

	c, err := v.coupon(ctx, tx, code)
	if err != nil {
		return nil, err
	}
	if c != nil {
		if !c.Active {
			return nil, repository.ErrCodeInvalid
		}
		if !c.WithinWindow(now) {
			return nil, repository.ErrCodeExpired
		}
		if !c.UsesRemaining() {
			return nil, repository.ErrCodeAlreadyUsed
		}
		if in.AmountCents < c.MinAmountCents {
			return nil, repository.ErrCodeNotApplicable
		}
		pkgs, err := v.couponPackageList(ctx, tx, c.ID)
		if err != nil {
			return nil, err
		}
		if len(pkgs) > 0 {
			if in.PackageID == nil || !contains(pkgs, *in.PackageID) {
				return nil, repository.ErrCodeNotApplicable
			}
		}
		return &Result{Kind: KindCoupon, Coupon: c, DiscountCents: Discount(c, in.AmountCents)}, nil
	}

	return nil, repository.ErrCodeInvalid
}

func (v *Validator) sessionCode(ctx context.Context, tx *sql.Tx, code string) (*model.SessionCode, error) {
	if tx != nil {
		return v.Codes.SessionCodeByCodeTx(ctx, tx, code)
	}
	return v.Codes.SessionCodeByCode(ctx, code)
}

func (v *Validator) packageAllowsService(ctx context.Context, tx *sql.Tx, packageID, serviceID uint64) (bool, error) {
	if tx != nil {
		return v.Codes.PackageAllowsServiceTx(ctx, tx, packageID, serviceID)
	}
	return v.Codes.PackageAllowsService(ctx, packageID, serviceID)
}

func (v *Validator) coupon(ctx context.Context, tx *sql.Tx, code string) (*model.DiscountCoupon, error) {
	if tx != nil {
		return v.Codes.CouponByCodeTx(ctx, tx, code)
	}
	return v.Codes.CouponByCode(ctx, code)
}

func (v *Validator) couponPackageList(ctx context.Context, tx *sql.Tx, couponID uint64) ([]uint64, error) {
	if tx != nil {
		return v.Codes.CouponPackageListTx(ctx, tx, couponID)
	}
	return v.Codes.CouponPackageList(ctx, couponID)
}

func contains(ids []uint64, id uint64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
