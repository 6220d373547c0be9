package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	avcache "github.com/ateliera/studio-booking/internal/cache"
	"github.com/ateliera/studio-booking/internal/queue"
	"github.com/ateliera/studio-booking/internal/repository"
)

// Webhook handles POST /v1/payments/webhook.  The payment provider
// reports the outcome of a handoff by echoing back the payment_ref
// token.  Deliveries are at-least-once, so repeating a settled outcome
// is a 200 no-op; only a contradictory outcome (failing a confirmed
// booking) is a conflict.
func (h *BookingHandler) Webhook(c echo.Context) error {
	var body struct {
		PaymentRef string `json:"payment_ref"`
		Status     string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.PaymentRef == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_ref is required"})
	}

	b, err := h.Bookings.GetByPaymentRef(c.Request().Context(), body.PaymentRef)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown payment_ref"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to resolve payment_ref"})
	}

	switch body.Status {
	case "succeeded":
		b, err = h.Reconciler.ConfirmPayment(c.Request().Context(), b.ID)
		if err != nil {
			return bookingError(c, err)
		}
		h.publishEvent(queue.EventBookingConfirmed, *b)
	case "failed":
		b, err = h.Reconciler.FailPayment(c.Request().Context(), b.ID)
		if err != nil {
			return bookingError(c, err)
		}
		avcache.Bump(c.Request().Context(), h.Rdb)
		h.publishEvent(queue.EventBookingCancelled, *b)
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be succeeded or failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}
