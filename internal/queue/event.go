// Package queue defines message payloads exchanged over the message broker.
package queue

// Event types carried in BookingEvent.Type.
const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
)

// BookingEvent is published whenever a booking changes state. It carries
// enough information for downstream consumers to notify the customer or
// feed analytics without querying the primary database.
type BookingEvent struct {
	Type            string `json:"type"`
	BookingID       uint64 `json:"booking_id"`
	ProfessionalID  uint64 `json:"professional_id"`
	ServiceID       uint64 `json:"service_id"`
	ServiceName     string `json:"service_name"`
	StartsAt        string `json:"starts_at"`
	EndsAt          string `json:"ends_at"`
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	FinalPriceCents int64  `json:"final_price_cents"`
	OccurredAt      string `json:"occurred_at"`
}
