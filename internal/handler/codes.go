package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ateliera/studio-booking/internal/codes"
	"github.com/ateliera/studio-booking/internal/repository"
)

// CodeHandler answers "is this code worth anything for this purchase"
// without consuming the code.
type CodeHandler struct {
	Validator *codes.Validator
}

// NewCodeHandler constructs a CodeHandler.
func NewCodeHandler(v *codes.Validator) *CodeHandler {
	if v == nil {
		panic("nil validator passed to NewCodeHandler")
	}
	return &CodeHandler{Validator: v}
}

// Validate handles POST /v1/codes/validate.  A recognizably invalid
// code returns 200 with valid=false and a reason, so the storefront can
// show inline feedback without treating it as a failure.  Only malformed
// requests get a 4xx.
func (h *CodeHandler) Validate(c echo.Context) error {
	var body struct {
		Code        string  `json:"code"`
		ServiceID   uint64  `json:"service_id"`
		AmountCents int64   `json:"amount_cents"`
		PackageID   *uint64 `json:"package_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code is required"})
	}
	if body.ServiceID == 0 && body.PackageID == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "service_id or package_id is required"})
	}
	if body.AmountCents < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount_cents must not be negative"})
	}

	res, err := h.Validator.Validate(c.Request().Context(), codes.Input{
		Code:        body.Code,
		ServiceID:   body.ServiceID,
		AmountCents: body.AmountCents,
		PackageID:   body.PackageID,
	})
	if err != nil {
		if reason, known := codeRejection(err); known {
			return c.JSON(http.StatusOK, echo.Map{"valid": false, "reason": reason})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to validate code"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"valid":          true,
		"kind":           res.Kind,
		"discount_cents": res.DiscountCents,
	})
}

// codeRejection maps validation sentinels to customer-facing reasons.
func codeRejection(err error) (string, bool) {
	switch {
	case errors.Is(err, repository.ErrCodeInvalid):
		return "unknown code", true
	case errors.Is(err, repository.ErrCodeExpired):
		return "code has expired", true
	case errors.Is(err, repository.ErrCodeAlreadyUsed):
		return "code has already been used", true
	case errors.Is(err, repository.ErrCodeNotApplicable):
		return "code does not apply to this purchase", true
	}
	return "", false
}
