package model

import "time"

// Discount types for coupons.
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// DiscountCoupon reduces the price of a booking.  Validation never
// mutates a coupon; CurrentUses is incremented only when a booking that
// carries it actually commits, and decremented again if that booking is
// cancelled or its payment fails.
//
// Fields:
//  ID             – primary key identifier.
//  Code           – normalized (upper-case) coupon code, unique.
//  DiscountType   – "percentage" or "fixed".
//  DiscountValue  – percent (0–100) or a fixed amount in cents.
//  ValidFrom      – start of the validity window.
//  ValidUntil     – optional end of the validity window.
//  MaxUses        – optional usage cap across all customers.
//  CurrentUses    – committed redemptions so far.
//  MinAmountCents – minimum purchase amount for the coupon to apply.
//  Active         – soft deactivation flag.
type DiscountCoupon struct {
	ID             uint64
	Code           string
	DiscountType   string
	DiscountValue  int64
	ValidFrom      time.Time
	ValidUntil     *time.Time
	MaxUses        *int
	CurrentUses    int
	MinAmountCents int64
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// WithinWindow reports whether now falls inside the coupon's validity
// window.
func (c DiscountCoupon) WithinWindow(now time.Time) bool {
	if now.Before(c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return false
	}
	return true
}

// UsesRemaining reports whether the coupon is still below its usage cap.
// Coupons without a cap always have uses remaining.
func (c DiscountCoupon) UsesRemaining() bool {
	return c.MaxUses == nil || c.CurrentUses < *c.MaxUses
}
