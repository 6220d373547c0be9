package model

import "time"

// Booking statuses.  PENDING_PAYMENT bookings hold capacity while an
// external payment settles; CANCELLED is terminal.
const (
	BookingPendingPayment = "PENDING_PAYMENT"
	BookingConfirmed      = "CONFIRMED"
	BookingCancelled      = "CANCELLED"
)

// Customer identifies the person booking a session.  Customers do not
// have accounts; identity travels with the booking.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Booking records a customer's reservation of one seat in a generated
// slot.  At most one of CouponID and SessionCodeID is set.
//
// Fields:
//  ID                 – primary key identifier.
//  ProfessionalID     – professional delivering the session.
//  ServiceID          – booked service.
//  SlotID             – generated slot whose capacity this booking holds.
//  StartsAt           – slot start (UTC), denormalized for display.
//  EndsAt             – slot end (UTC).
//  Customer           – name / email / phone.
//  Status             – PENDING_PAYMENT, CONFIRMED or CANCELLED.
//  CouponID           – applied discount coupon, if any.
//  SessionCodeID      – consumed prepaid session code, if any.
//  OriginalPriceCents – service price before discounts.
//  FinalPriceCents    – price after coupon or session code.
//  PaymentRef         – opaque handoff token for the payment provider.
//  FeedbackEmailSent  – whether the post-session feedback mail went out.
type Booking struct {
	ID                 uint64    `json:"id"`
	ProfessionalID     uint64    `json:"professional_id"`
	ServiceID          uint64    `json:"service_id"`
	SlotID             uint64    `json:"slot_id"`
	StartsAt           time.Time `json:"starts_at"`
	EndsAt             time.Time `json:"ends_at"`
	Customer           Customer  `json:"customer"`
	Status             string    `json:"status"`
	CouponID           *uint64   `json:"coupon_id,omitempty"`
	SessionCodeID      *uint64   `json:"session_code_id,omitempty"`
	OriginalPriceCents int64     `json:"original_price_cents"`
	FinalPriceCents    int64     `json:"final_price_cents"`
	PaymentRef         *string   `json:"payment_ref,omitempty"`
	FeedbackEmailSent  bool      `json:"feedback_email_sent"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
