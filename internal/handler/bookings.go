package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/ateliera/studio-booking/internal/booking"
	avcache "github.com/ateliera/studio-booking/internal/cache"
	"github.com/ateliera/studio-booking/internal/model"
	"github.com/ateliera/studio-booking/internal/notify"
	"github.com/ateliera/studio-booking/internal/queue"
	"github.com/ateliera/studio-booking/internal/repository"
)

// BookingHandler wires booking creation and lifecycle operations to the
// HTTP surface.  Rdb may be nil; cache invalidation then becomes a
// no-op.
type BookingHandler struct {
	Transactor *booking.Transactor
	Reconciler *booking.Reconciler
	Bookings   *repository.BookingRepo
	Services   *repository.ServiceRepo
	Rdb        *redis.Client
	Loc        *time.Location
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(tr *booking.Transactor, rc *booking.Reconciler, bookings *repository.BookingRepo, services *repository.ServiceRepo, rdb *redis.Client, loc *time.Location) *BookingHandler {
	if tr == nil || rc == nil || bookings == nil || services == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Transactor: tr, Reconciler: rc, Bookings: bookings, Services: services, Rdb: rdb, Loc: loc}
}

// Create handles POST /v1/bookings.  The start time identifies the slot
// together with professional and service; capacity is reserved and any
// code settled atomically.  Responds 201 with either a confirmed
// booking or a payment handoff token, 409 when the slot or code was
// taken by a concurrent request.
func (h *BookingHandler) Create(c echo.Context) error {
	var body struct {
		ProfessionalID uint64 `json:"professional_id"`
		ServiceID      uint64 `json:"service_id"`
		Start          string `json:"start"`
		Customer       struct {
			Name  string `json:"name"`
			Email string `json:"email"`
			Phone string `json:"phone"`
		} `json:"customer"`
		Code string `json:"code"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ProfessionalID == 0 || body.ServiceID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "professional_id and service_id are required"})
	}
	start, err := time.Parse(time.RFC3339, body.Start)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start, expected RFC3339"})
	}
	if body.Customer.Name == "" || body.Customer.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "customer name and email are required"})
	}

	res, err := h.Transactor.Create(c.Request().Context(), booking.CreateRequest{
		ProfessionalID: body.ProfessionalID,
		ServiceID:      body.ServiceID,
		Start:          start,
		Customer: model.Customer{
			Name:  body.Customer.Name,
			Email: body.Customer.Email,
			Phone: body.Customer.Phone,
		},
		Code: body.Code,
	})
	if err != nil {
		return bookingError(c, err)
	}

	avcache.Bump(c.Request().Context(), h.Rdb)
	evType := queue.EventBookingCreated
	if res.Confirmed {
		evType = queue.EventBookingConfirmed
	}
	h.publishEvent(evType, res.Booking)

	resp := echo.Map{
		"booking":   res.Booking,
		"confirmed": res.Confirmed,
	}
	if res.PaymentHandoff != "" {
		resp["payment_ref"] = res.PaymentHandoff
	}
	return c.JSON(http.StatusCreated, resp)
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Bookings.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch booking"})
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

// ListDay handles GET /v1/admin/bookings.  It returns every booking
// starting on the given studio-local date, optionally filtered by
// professional.
func (h *BookingHandler) ListDay(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date is required"})
	}
	day, err := time.ParseInLocation("2006-01-02", date, h.Loc)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, expected YYYY-MM-DD"})
	}
	profID, err := optionalID(c.QueryParam("professional_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid professional_id"})
	}
	items, err := h.Bookings.ListForRange(c.Request().Context(), day.UTC(), day.AddDate(0, 0, 1).UTC(), profID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	return c.JSON(http.StatusOK, echo.Map{"date": date, "items": items})
}

// UpdateStatus handles PATCH /v1/admin/bookings/:id/status.  Operators
// may force a pending booking to CONFIRMED (payment settled out of
// band) or to CANCELLED.  Transitions out of a settled state are
// rejected with 409.
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	var b *model.Booking
	switch body.Status {
	case model.BookingConfirmed:
		b, err = h.Reconciler.ConfirmPayment(c.Request().Context(), id)
	case model.BookingCancelled:
		b, err = h.Reconciler.CancelAndRelease(c.Request().Context(), id)
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be CONFIRMED or CANCELLED"})
	}
	if err != nil {
		return bookingError(c, err)
	}

	if body.Status == model.BookingCancelled {
		avcache.Bump(c.Request().Context(), h.Rdb)
		h.publishEvent(queue.EventBookingCancelled, *b)
	} else {
		h.publishEvent(queue.EventBookingConfirmed, *b)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

// Cancel handles POST /v1/admin/bookings/:id/cancel.  Cancelling frees
// the slot seat and un-consumes any code the booking spent.
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Reconciler.CancelAndRelease(c.Request().Context(), id)
	if err != nil {
		return bookingError(c, err)
	}
	avcache.Bump(c.Request().Context(), h.Rdb)
	h.publishEvent(queue.EventBookingCancelled, *b)
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

// publishEvent fires a booking event without holding up the response.
// Broker failures are already logged by the publisher.
func (h *BookingHandler) publishEvent(evType string, b model.Booking) {
	svcName := ""
	if svc, err := h.Services.GetByID(context.Background(), b.ServiceID); err == nil {
		svcName = svc.Name
	}
	ev := queue.BookingEvent{
		Type:            evType,
		BookingID:       b.ID,
		ProfessionalID:  b.ProfessionalID,
		ServiceID:       b.ServiceID,
		ServiceName:     svcName,
		StartsAt:        b.StartsAt.Format(time.RFC3339),
		EndsAt:          b.EndsAt.Format(time.RFC3339),
		CustomerName:    b.Customer.Name,
		CustomerEmail:   b.Customer.Email,
		FinalPriceCents: b.FinalPriceCents,
		OccurredAt:      time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = notify.PublishBookingEvent(ctx, ev)
	}()
}

// bookingError translates engine sentinels into HTTP responses.
func bookingError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrServiceNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "service not found"})
	case errors.Is(err, repository.ErrSlotNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no such time slot"})
	case errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, repository.ErrSlotFull), errors.Is(err, repository.ErrSlotInactiveOrPast):
		return c.JSON(http.StatusConflict, echo.Map{"error": "this time is no longer available"})
	case errors.Is(err, repository.ErrCodeNoLongerValid):
		return c.JSON(http.StatusConflict, echo.Map{"error": "code is no longer valid"})
	case errors.Is(err, repository.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not in a state that allows this"})
	case errors.Is(err, repository.ErrStorageConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "please retry, a concurrent update interfered"})
	default:
		if reason, known := codeRejection(err); known {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": reason})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
