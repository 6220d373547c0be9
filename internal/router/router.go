// Package router registers the HTTP route table.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/ateliera/studio-booking/internal/config"
	"github.com/ateliera/studio-booking/internal/handler"
	"github.com/ateliera/studio-booking/internal/middleware"
)

// Deps carries the constructed handlers and shared infrastructure the
// route table needs.
type Deps struct {
	Availability *handler.AvailabilityHandler
	Slots        *handler.SlotHandler
	Codes        *handler.CodeHandler
	Bookings     *handler.BookingHandler
	Rdb          *redis.Client
	JWTSecret    string
}

// Register wires every route.  Customer-facing endpoints are public;
// everything under /v1/admin requires an operator token.  The webhook
// is public by necessity (the payment provider has no JWT) and relies
// on the unguessable payment_ref token instead.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	cacheCfg := config.LoadCacheConfig()
	rlCfg := config.LoadRateLimitConfig()

	// Availability reads are the hot path; cache them.
	e.GET("/v1/availability", d.Availability.List, middleware.AvailabilityCache(cacheCfg, d.Rdb))

	limited := middleware.TokenBucket(rlCfg, d.Rdb)
	e.POST("/v1/codes/validate", d.Codes.Validate, limited)
	e.POST("/v1/bookings", d.Bookings.Create, limited)
	e.GET("/v1/bookings/:id", d.Bookings.Get)

	e.POST("/v1/payments/webhook", d.Bookings.Webhook)

	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(d.JWTSecret))
	admin.Use(middleware.RequireRole("OPERATOR", "ADMIN"))
	admin.POST("/slots/generate", d.Slots.Generate)
	admin.GET("/bookings", d.Bookings.ListDay)
	admin.PATCH("/bookings/:id/status", d.Bookings.UpdateStatus)
	admin.POST("/bookings/:id/cancel", d.Bookings.Cancel)
}
