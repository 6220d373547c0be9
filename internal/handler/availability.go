package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ateliera/studio-booking/internal/availability"
)

// AvailabilityHandler serves the customer-facing availability listing.
type AvailabilityHandler struct {
	Resolver *availability.Resolver
}

// NewAvailabilityHandler constructs an AvailabilityHandler.
func NewAvailabilityHandler(resolver *availability.Resolver) *AvailabilityHandler {
	if resolver == nil {
		panic("nil resolver passed to NewAvailabilityHandler")
	}
	return &AvailabilityHandler{Resolver: resolver}
}

// List handles GET /v1/availability.  It requires a "date" query
// parameter (YYYY-MM-DD, interpreted in the studio time zone) and
// accepts an optional "professional_id" filter.  A date with no
// materialized slots returns an empty array, not an error.
func (h *AvailabilityHandler) List(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date is required"})
	}
	profID, err := optionalID(c.QueryParam("professional_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid professional_id"})
	}

	slots, err := h.Resolver.ForDate(c.Request().Context(), date, profID)
	if err != nil {
		if isBadDate(err) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, expected YYYY-MM-DD"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load availability"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"date":  date,
		"slots": slots,
	})
}

// optionalID parses an optional numeric query/path value.  Empty input
// yields a nil pointer; anything non-numeric or zero is an error.
func optionalID(s string) (*uint64, error) {
	if s == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return nil, echo.ErrBadRequest
	}
	return &id, nil
}

// isBadDate reports whether an error came from date parsing rather than
// the database.
func isBadDate(err error) bool {
	var pe *time.ParseError
	return errors.As(err, &pe)
}
