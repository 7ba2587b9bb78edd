package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/clinic-booking/internal/handler"
	"github.com/iliyamo/clinic-booking/internal/middleware"
)

// RegisterProvider registers provider-scoped endpoints under /v1/provider.
// All routes require a valid JWT carrying the PROVIDER role.
func RegisterProvider(e *echo.Echo, h *handler.ProviderHandler, jwtSecret string) {
	g := e.Group(
		"/v1/provider",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleProvider),
	)

	g.GET("/me", h.Me)
	g.PATCH("/me", h.UpdateContact)

	// ---- Slots ----
	g.POST("/slots/generate", h.GenerateSlots)
	g.GET("/slots", h.ListSlots)
	g.PATCH("/slots/:id", h.SetBlocked)
	g.DELETE("/slots/:id", h.DeleteSlot)

	// ---- Bookings ----
	g.GET("/bookings", h.ListBookings)
	g.PATCH("/bookings/:id", h.UpdateBookingStatus)

	// ---- Notifications ----
	g.GET("/messages/failed", h.ListFailedMessages)
	g.POST("/messages/retry", h.RetryFailedMessages)
}
