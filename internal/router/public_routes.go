package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/clinic-booking/internal/handler"
)

// RegisterPublic registers the client-facing booking page endpoints.  No JWT
// is required.  The slug lookup may be wrapped in a response cache and the
// reservation endpoint in a rate limiter; pass nil to skip either.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache, limit echo.MiddlewareFunc) {
	var slugMW, bookMW []echo.MiddlewareFunc
	if cache != nil {
		slugMW = append(slugMW, cache)
	}
	if limit != nil {
		bookMW = append(bookMW, limit)
	}

	e.GET("/v1/providers/:slug", p.GetProvider, slugMW...)
	e.GET("/v1/providers/:id/availability", p.Availability)
	e.POST("/v1/bookings", p.CreateBooking, bookMW...)
}
