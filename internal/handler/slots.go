package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ateliera/studio-booking/internal/schedule"
)

// SlotHandler exposes slot materialization to operators.
type SlotHandler struct {
	Materializer *schedule.Materializer
}

// NewSlotHandler constructs a SlotHandler.
func NewSlotHandler(m *schedule.Materializer) *SlotHandler {
	if m == nil {
		panic("nil materializer passed to NewSlotHandler")
	}
	return &SlotHandler{Materializer: m}
}

// Generate handles POST /v1/admin/slots/generate.  The body selects a
// date range and optional professional/service filters; the run is
// idempotent, so re-posting the same range only reconciles capacities.
// Returns 200 with created/updated counts and any capacity-clamp
// warnings.
func (h *SlotHandler) Generate(c echo.Context) error {
	var body struct {
		From           string  `json:"from"`
		To             string  `json:"to"`
		ProfessionalID *uint64 `json:"professional_id"`
		ServiceID      *uint64 `json:"service_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.From == "" || body.To == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "from and to are required"})
	}
	// ISO dates order lexically.
	if body.To < body.From {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "to must not precede from"})
	}

	res, err := h.Materializer.Generate(c.Request().Context(), schedule.Request{
		From:           body.From,
		To:             body.To,
		ProfessionalID: body.ProfessionalID,
		ServiceID:      body.ServiceID,
	})
	if err != nil {
		if isBadDate(err) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date range, expected YYYY-MM-DD"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "slot generation failed"})
	}
	return c.JSON(http.StatusOK, res)
}
